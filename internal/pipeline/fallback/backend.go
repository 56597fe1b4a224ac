// Package fallback stores writes the backend could not accept yet, keyed by
// namespace and lead id, so they survive a restart and can be replayed.
package fallback

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Backend.Fetch when no entry exists.
var ErrNotFound = errors.New("fallback entry not found")

// Backend is a durable key/value store partitioned by namespace.
type Backend interface {
	Fetch(ctx context.Context, namespace, key string) ([]byte, error)
	Save(ctx context.Context, namespace, key string, value []byte) error
	Remove(ctx context.Context, namespace, key string) error
	Load(ctx context.Context, namespace string) (map[string][]byte, error)
	Close() error
}
