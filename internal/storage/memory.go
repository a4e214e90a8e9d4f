package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
}

// MemoryStore is an in-memory ObjectStore, used in tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryStore returns a new empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Put stores data under key with the given content type.
func (s *MemoryStore) Put(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{
		data:         data,
		contentType:  contentType,
		etag:         fmt.Sprintf("%q", strconv.Itoa(len(data))+"-"+key),
		lastModified: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Exists implements ObjectStore.Exists.
func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

// Get implements ObjectStore.Get. A satisfiable byteRange yields a partial
// body with ContentRange set; an unparseable or unsatisfiable range falls back
// to the full object, matching the leniency of S3-compatible stores that
// ignore malformed Range headers.
func (s *MemoryStore) Get(_ context.Context, key string, byteRange string) (*Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	data := obj.data
	contentRange := ""
	if byteRange != "" {
		if start, end, ok := parseByteRange(byteRange, int64(len(obj.data))); ok {
			data = obj.data[start : end+1]
			contentRange = fmt.Sprintf("bytes %d-%d/%d", start, end, len(obj.data))
		}
	}

	return &Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   obj.contentType,
		ContentLength: int64(len(data)),
		ContentRange:  contentRange,
		ETag:          obj.etag,
		LastModified:  obj.lastModified,
	}, nil
}

// parseByteRange parses a single-range HTTP Range header value ("bytes=a-b",
// "bytes=a-", or "bytes=-n") against an object of the given size. It returns
// the inclusive start and end offsets, with ok false when the value is
// malformed or unsatisfiable.
func parseByteRange(value string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(value, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, 0, false
	}

	first, last, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	if first == "" {
		// Suffix range: last n bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, size > 0
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}

	return start, end, true
}
