// Package cache keeps fetched bytes around so that shared contexts are not
// downloaded again for every document.
//
// A Store holds the bytes (in memory or in Redis) and Fetcher wraps any
// core.Fetcher with a Store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiss is matched by every cache miss.
var ErrMiss = errors.New("cache miss")

// MissError is returned when a key is not present or has expired.
type MissError struct {
	Key string
}

func (e MissError) Error() string {
	return fmt.Sprintf("cache miss for key: %s", e.Key)
}

// Is reports whether target is ErrMiss.
func (e MissError) Is(target error) bool {
	return target == ErrMiss
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

// Store is the storage behind a caching Fetcher.
type Store interface {
	// Get returns the bytes stored under key or a MissError.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl uses the store default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}

// Config holds the settings shared by the stores.
type Config struct {
	// DefaultTTL applies when Set is called with a zero ttl.
	// Zero means entries never expire.
	DefaultTTL time.Duration

	// Prefix namespaces keys, which matters for shared backends such as Redis.
	Prefix string

	// CleanupInterval is how often the memory store drops expired entries.
	CleanupInterval time.Duration
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:      time.Hour,
		Prefix:          "govmeta:ctx:",
		CleanupInterval: time.Minute,
	}
}
