package cache

import (
	"context"
	"time"
)

// Cache is the shared key/value store contract. Implementations degrade
// gracefully: Get treats backend errors as a miss, Set/Delete log and swallow
// backend errors. Security-critical callers that must distinguish "missing"
// from "backend down" use StrictGetDel, which surfaces the underlying error.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error

	// GetString reads a raw string value; a miss returns ("", false, nil).
	GetString(ctx context.Context, key string) (string, bool, error)
	// SetString writes a raw string value with TTL.
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error

	// StrictGetDel atomically reads and deletes a key. Backend failure is an
	// error, not a miss.
	StrictGetDel(ctx context.Context, key string) (string, bool, error)

	// IncrWithTTL atomically increments a counter, setting the TTL on first
	// touch. Returns the counter value after increment.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// TTL reports the remaining lifetime of a key.
	TTL(ctx context.Context, key string) (time.Duration, error)
}
