package store

import (
	"context"
	"time"
)

// Store is the key-value backend for room records and message logs.
// Implementations must make SetNX and PushCapped atomic with respect to
// concurrent callers from any process; the rest of the system relies on
// these primitives instead of application-level locks.
type Store interface {
	// Get returns the value at key. ok is false when the key does not
	// exist (or has expired).
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// SetNX writes value under key with the given ttl only if the key
	// does not already exist. created reports whether the write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (created bool, err error)

	// Expire resets the ttl of an existing key. It returns false, not an
	// error, when the key is gone.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// PushCapped atomically prepends value to the list at key, trims the
	// list to its max newest entries and returns the resulting length.
	// No intermediate state is observable by concurrent readers.
	PushCapped(ctx context.Context, key string, value []byte, max int) (int64, error)

	// List returns every value of the list at key, newest first. A
	// missing key yields an empty result, not an error.
	List(ctx context.Context, key string) ([][]byte, error)

	// Close releases any resources held by the store.
	Close() error
}
