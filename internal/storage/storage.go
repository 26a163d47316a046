// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider, and the
// in-memory implementation backs the tests.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// MetaSchemaVersion versions ObjectMeta so fields can be added without
// breaking readers of older objects.
const MetaSchemaVersion = 1

// ObjectMeta is the typed metadata attached to stored objects. SourceKey is
// set on thumbnails and links back to the original they were derived from.
type ObjectMeta struct {
	SchemaVersion int
	SourceKey     string
	Width         int
	Height        int
}

// PutOptions carries everything Put needs besides the bytes themselves.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Meta         *ObjectMeta
}

// Storage is the interface for reading and writing objects.
type Storage interface {
	// Get returns the full object under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	// Delete removes one object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteMany removes objects best-effort and returns the keys it could
	// not delete. Missing keys count as deleted.
	DeleteMany(ctx context.Context, keys []string) []string
	// Copy duplicates the object at srcKey under dstKey.
	Copy(ctx context.Context, srcKey, dstKey string) error
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// SignedURL returns a time-limited read URL for one private object.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
