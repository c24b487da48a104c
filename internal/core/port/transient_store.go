package port

import (
	"context"
	"time"
)

// TransientStore exposes single-key operations on the shared keyed store with
// TTL semantics. Implementations must make each operation atomic at the
// single-key level; callers never get multi-key transactions.
type TransientStore interface {
	// Get returns the value at key, or repository.ErrNotFound if absent.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Remove(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Increment atomically increments the counter at key, creating it at 1
	// (without TTL) when absent, and returns the post-increment value.
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
