// Package tier implements the durable storage backends of the cache.
// A tier stores opaque bytes by key and knows nothing about TTLs or encoding.
package tier

import (
	"context"
	"errors"
)

var (
	// ErrQuotaExceeded is returned by Write when the payload does not fit the tier's quota.
	ErrQuotaExceeded = errors.New("tier quota exceeded")
	// ErrNotConfigured is returned when a tier is used before it is opened or after it is closed.
	ErrNotConfigured = errors.New("tier is not configured")
	// ErrEmptyKey is returned for operations on an empty key.
	ErrEmptyKey = errors.New("tier key is required")
)

// Store is a single storage backend.
type Store interface {
	// Name identifies the tier in logs.
	Name() string
	// Read returns the payload stored under key. Missing keys are not an error.
	Read(ctx context.Context, key string) (data []byte, found bool, err error)
	// Write stores data under key, replacing any previous payload.
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes key. Missing keys are ignored.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}

// Destroyer is implemented by stores that can wipe their backing storage.
// It is used for ephemeral tiers on normal shutdown.
type Destroyer interface {
	Destroy() error
}

// quota tracks bytes held by a tier. Callers hold the tier lock.
type quota struct {
	limit int64
	used  int64
}

// admit reports whether replacing oldSize bytes with newSize bytes stays within the limit.
func (q *quota) admit(oldSize, newSize int64) bool {
	if q.limit <= 0 {
		return true
	}
	return q.used-oldSize+newSize <= q.limit
}

func (q *quota) apply(oldSize, newSize int64) {
	q.used += newSize - oldSize
	if q.used < 0 {
		q.used = 0
	}
}
