package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"
)

// Memory is an in-process Store with TTL support.
type Memory struct {
	data   sync.Map
	size   atomic.Int64
	config Config
	cancel context.CancelFunc
}

type item struct {
	value      []byte
	expiration time.Time
}

func (i item) expired(now time.Time) bool {
	return !i.expiration.IsZero() && now.After(i.expiration)
}

// NewMemory creates a memory store with DefaultConfig.
func NewMemory() *Memory {
	return NewMemoryWithConfig(DefaultConfig())
}

// NewMemoryWithConfig creates a memory store. Expired entries are dropped by a
// background goroutine until Close is called.
func NewMemoryWithConfig(config Config) *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Memory{config: config, cancel: cancel}

	if config.CleanupInterval > 0 {
		lifecycle.Go(ctx, func(ctx context.Context) error {
			m.cleanup(ctx, config.CleanupInterval)
			return nil
		})
	}
	return m
}

// Get implements Store.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := m.config.Prefix + key
	raw, ok := m.data.Load(full)
	if !ok {
		return nil, MissError{Key: key}
	}
	it := raw.(*item)
	if it.expired(time.Now()) {
		m.expire(full, it)
		return nil, MissError{Key: key}
	}
	return clone(it.value), nil
}

// Set implements Store.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	it := &item{value: clone(value)}
	if ttl > 0 {
		it.expiration = time.Now().Add(ttl)
	}
	if _, loaded := m.data.Swap(m.config.Prefix+key, it); !loaded {
		m.size.Add(1)
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.remove(m.config.Prefix + key)
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Range(func(key, _ any) bool {
		m.remove(key.(string))
		return true
	})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	return int(m.size.Load())
}

// Close stops the cleanup goroutine.
func (m *Memory) Close() error {
	m.cancel()
	return nil
}

func (m *Memory) remove(full string) {
	if _, loaded := m.data.LoadAndDelete(full); loaded {
		m.size.Add(-1)
	}
}

// expire deletes full only while it still holds stale, so an entry stored
// concurrently by Set survives.
func (m *Memory) expire(full string, stale *item) {
	if m.data.CompareAndDelete(full, stale) {
		m.size.Add(-1)
	}
}

func (m *Memory) cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.data.Range(func(key, value any) bool {
				if it := value.(*item); it.expired(now) {
					m.expire(key.(string), it)
				}
				return true
			})
		}
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ Store = (*Memory)(nil)
