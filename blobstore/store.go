// Package blobstore abstracts the durable storage location that holds
// persisted vector-index snapshots.
//
// A snapshot is always read and replaced as a whole, so the interface is a
// deliberately small Get/Put pair. Put must be atomic: a reader that races a
// writer observes either the previous blob or the new one, never a torn mix.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore reads and atomically replaces whole named blobs.
type BlobStore interface {
	// Get returns the full contents of the named blob.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put durably replaces the named blob with data.
	Put(ctx context.Context, name string, data []byte) error
}
