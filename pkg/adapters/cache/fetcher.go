package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/introspection"
	"golang.org/x/sync/singleflight"

	"github.com/aretw0/govmeta/pkg/core"
)

// Result labels reported to an Observer.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultBypass = "bypass"
)

// DefaultFetchTimeout bounds a shared fetch once it no longer follows the
// cancellation of the caller that started it.
const DefaultFetchTimeout = 30 * time.Second

// Observer is told the outcome of every fetch that went through the cache.
type Observer func(result string)

// Fetcher wraps a core.Fetcher with a Store. By default only context fetches
// are cached: documents are usually read once and may change between loads.
// Concurrent fetches of the same location share a single call to the inner
// fetcher; each caller only observes its own cancellation.
type Fetcher struct {
	inner    core.Fetcher
	store    Store
	ttl      time.Duration
	timeout  time.Duration
	purposes map[core.Purpose]bool
	observe  Observer
	logger   *slog.Logger
	group    singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTTL sets the lifetime of cached entries. Zero uses the store default.
func WithTTL(ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.ttl = ttl
	}
}

// WithFetchTimeout bounds a shared call to the inner fetcher.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithPurposes selects which fetch purposes are cached.
func WithPurposes(purposes ...core.Purpose) FetcherOption {
	return func(f *Fetcher) {
		f.purposes = make(map[core.Purpose]bool, len(purposes))
		for _, p := range purposes {
			f.purposes[p] = true
		}
	}
}

// WithObserver sets the callback receiving hit, miss and bypass results.
func WithObserver(o Observer) FetcherOption {
	return func(f *Fetcher) {
		f.observe = o
	}
}

// WithLogger sets the logger of the fetcher.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher wraps inner. A nil store uses a fresh Memory store.
func NewFetcher(inner core.Fetcher, store Store, opts ...FetcherOption) *Fetcher {
	if store == nil {
		store = NewMemory()
	}
	f := &Fetcher{
		inner:    inner,
		store:    store,
		timeout:  DefaultFetchTimeout,
		purposes: map[core.Purpose]bool{core.PurposeContext: true},
		observe:  func(string) {},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements core.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !f.purposes[core.PurposeFrom(ctx)] {
		f.observe(ResultBypass)
		return f.inner.Fetch(ctx, location)
	}

	data, err := f.store.Get(ctx, location)
	if err == nil {
		f.hits.Add(1)
		f.observe(ResultHit)
		f.logger.Debug("cache hit", "location", location)
		return data, nil
	}
	if !IsMiss(err) {
		// A broken store degrades to uncached fetching.
		f.logger.Warn("cache read failed", "location", location, "error", err)
	}

	f.misses.Add(1)
	f.observe(ResultMiss)

	// The shared call is detached from ctx: a caller giving up must not fail
	// the others waiting on the same location.
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(location, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(shared, f.timeout)
		defer cancel()
		data, err := f.inner.Fetch(fetchCtx, location)
		if err != nil {
			return nil, err
		}
		if err := f.store.Set(fetchCtx, location, data, f.ttl); err != nil {
			f.logger.Warn("cache write failed", "location", location, "error", err)
		}
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, abandoned(ctx, location)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data = res.Val.([]byte)
		if res.Shared {
			data = clone(data)
		}
		return data, nil
	}
}

func abandoned(ctx context.Context, location string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", core.ErrTimeout, location, ctx.Err())
	}
	return fmt.Errorf("%w: %s: %w", core.ErrUnreachable, location, ctx.Err())
}

// Invalidate implements core.Invalidator.
func (f *Fetcher) Invalidate(ctx context.Context, location string) error {
	f.group.Forget(location)
	if err := f.store.Delete(ctx, location); err != nil {
		return err
	}
	f.logger.Debug("cache entry invalidated", "location", location)
	return nil
}

// Clear drops every cached entry.
func (f *Fetcher) Clear(ctx context.Context) error {
	return f.store.Clear(ctx)
}

// FetcherState exposes cache statistics for observability.
type FetcherState struct {
	Hits     int64    `json:"hits"`
	Misses   int64    `json:"misses"`
	Purposes []string `json:"purposes"`
	Entries  int      `json:"entries,omitempty"`
}

// State implements introspection.Introspectable.
func (f *Fetcher) State() any {
	purposes := make([]string, 0, len(f.purposes))
	for _, p := range []core.Purpose{core.PurposeDocument, core.PurposeContext} {
		if f.purposes[p] {
			purposes = append(purposes, string(p))
		}
	}
	state := FetcherState{
		Hits:     f.hits.Load(),
		Misses:   f.misses.Load(),
		Purposes: purposes,
	}
	if m, ok := f.store.(*Memory); ok {
		state.Entries = m.Len()
	}
	return state
}

// ComponentType implements introspection.Component.
func (f *Fetcher) ComponentType() string {
	return "context_cache"
}

var (
	_ core.Fetcher                 = (*Fetcher)(nil)
	_ core.Invalidator             = (*Fetcher)(nil)
	_ introspection.Introspectable = (*Fetcher)(nil)
	_ introspection.Component      = (*Fetcher)(nil)
)
