package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get and reported by Exists when the requested
// key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// Object is a single object read from the store. Body must be closed by the
// caller. ContentRange is non-empty when the store served a partial body in
// response to a byte-range request.
type Object struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64 // -1 when unknown
	ContentRange  string
	ETag          string
	LastModified  time.Time // zero when unknown
}

// ObjectStore is the gateway's read-only view of the backing object store.
// Implementations can be S3-compatible or in-memory.
type ObjectStore interface {
	// Exists reports whether key exists. A missing key is (false, nil);
	// any other probe failure is returned as an error.
	Exists(ctx context.Context, key string) (bool, error)

	// Get opens the object at key. byteRange, when non-empty, is an HTTP
	// Range header value (e.g. "bytes=0-99") forwarded to the store
	// verbatim. A missing key yields ErrNotFound.
	Get(ctx context.Context, key string, byteRange string) (*Object, error)
}
