package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier is returned for a malformed asset id (400).
	ErrInvalidIdentifier = errors.New("invalid asset identifier")

	// ErrAssetNotFound is returned when no asset exists for the id (404).
	ErrAssetNotFound = errors.New("asset not found")

	// ErrObjectNotFound is returned when every candidate key reported
	// "not found" (404 for manifests, variants, and segments alike).
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidSegmentName is returned when a requested segment file does
	// not carry an accepted media extension (400).
	ErrInvalidSegmentName = errors.New("invalid segment file name")
)

// NotReadyError reports that an asset exists but is not servable yet. It
// carries the current status so clients can poll and back off (423).
type NotReadyError struct {
	Status AssetStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("asset not ready: status %s", e.Status)
}

// StorageError wraps a non-"not found" failure from the object store on the
// last attempted candidate key (500). Intermediate candidate failures are
// logged and swallowed by the resolver, never surfaced through this type.
type StorageError struct {
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error at %s: %v", e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
