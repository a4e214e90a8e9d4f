package storage

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestMemoryStore_exists(t *testing.T) {
	s := NewMemoryStore()
	s.Put("a/b.ts", []byte("x"), "video/mp2t")

	ok, err := s.Exists(context.Background(), "a/b.ts")
	if err != nil || !ok {
		t.Errorf("expected existing key, got ok=%v err=%v", ok, err)
	}

	ok, err = s.Exists(context.Background(), "missing")
	if err != nil || ok {
		t.Errorf("expected missing key, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_get_full(t *testing.T) {
	s := NewMemoryStore()
	s.Put("k", []byte("hello"), "text/plain")

	obj, err := s.Get(context.Background(), "k", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer obj.Body.Close()

	b, _ := io.ReadAll(obj.Body)
	if string(b) != "hello" {
		t.Errorf("unexpected body %q", b)
	}
	if obj.ContentLength != 5 || obj.ContentRange != "" {
		t.Errorf("unexpected metadata: length=%d range=%q", obj.ContentLength, obj.ContentRange)
	}
	if obj.ContentType != "text/plain" {
		t.Errorf("unexpected content type %q", obj.ContentType)
	}
	if obj.ETag == "" || obj.LastModified.IsZero() {
		t.Error("expected etag and last modified to be set")
	}
}

func TestMemoryStore_get_not_found(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_get_range(t *testing.T) {
	s := NewMemoryStore()
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	s.Put("k", data, "")

	obj, err := s.Get(context.Background(), "k", "bytes=0-99")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer obj.Body.Close()

	b, _ := io.ReadAll(obj.Body)
	if len(b) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(b))
	}
	if obj.ContentRange != "bytes 0-99/1000" {
		t.Errorf("unexpected Content-Range %q", obj.ContentRange)
	}
	if obj.ContentLength != 100 {
		t.Errorf("unexpected Content-Length %d", obj.ContentLength)
	}
}

func TestParseByteRange(t *testing.T) {
	cases := []struct {
		value      string
		size       int64
		start, end int64
		ok         bool
	}{
		{"bytes=0-99", 1000, 0, 99, true},
		{"bytes=500-", 1000, 500, 999, true},
		{"bytes=-100", 1000, 900, 999, true},
		{"bytes=0-5000", 1000, 0, 999, true},
		{"bytes=1000-", 1000, 0, 0, false},
		{"bytes=5-2", 1000, 0, 0, false},
		{"bytes=0-99,200-299", 1000, 0, 0, false},
		{"items=0-99", 1000, 0, 0, false},
		{"bytes=", 1000, 0, 0, false},
	}
	for _, c := range cases {
		start, end, ok := parseByteRange(c.value, c.size)
		if ok != c.ok || (ok && (start != c.start || end != c.end)) {
			t.Errorf("parseByteRange(%q, %d) = (%d, %d, %v), want (%d, %d, %v)",
				c.value, c.size, start, end, ok, c.start, c.end, c.ok)
		}
	}
}
