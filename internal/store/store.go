// Package store provides the narrow key-value interface the protocol runs
// against. Backends offer per-key reads, writes and deletes plus an
// equality-filtered scan, nothing stronger: no cross-key transactions and no
// compare-and-swap. Every multi-record operation built on top of this is a
// best-effort sequence of independent writes.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists under the key.
var ErrNotFound = errors.New("record not found")

// DefaultOpTimeout bounds every single store operation.
const DefaultOpTimeout = 3 * time.Second

// Store is an asynchronous key-value store partitioned into collections.
type Store interface {
	// Get returns the raw record under (collection, key) or ErrNotFound.
	Get(ctx context.Context, collection string, key string) ([]byte, error)

	// Put creates or replaces the record under (collection, key).
	Put(ctx context.Context, collection string, key string, value []byte) error

	// Delete removes the record under (collection, key). Deleting a missing
	// record is not an error.
	Delete(ctx context.Context, collection string, key string) error

	// Scan returns every record in the collection whose top-level JSON field
	// equals the given value, keyed by record key.
	Scan(ctx context.Context, collection string, field string, value string) (map[string][]byte, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	Close() error
}

func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultOpTimeout)
}
