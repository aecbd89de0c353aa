package govmeta

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/govmeta/internal/platform"
	"github.com/aretw0/govmeta/pkg/adapters/cache"
	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/vocab"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// Engine is a metadata client wired with its transports, cache and watcher.
type Engine = platform.Engine

// LoadError reports the stage at which a load failed.
type LoadError = core.LoadError

// ProjectionError reports which meaning a typed projection could not read.
type ProjectionError = core.ProjectionError

// --- Configuration ---

// Option defines a functional option for configuring an Engine.
type Option = platform.Option

// WithFetcher replaces the default transports.
func WithFetcher(f core.Fetcher) Option {
	return platform.WithFetcher(f)
}

// WithParsers sets how fetched bytes are parsed.
func WithParsers(p core.ParserSelector) Option {
	return platform.WithParsers(p)
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithTimeout bounds each HTTP and IPFS request.
func WithTimeout(d time.Duration) Option {
	return platform.WithTimeout(d)
}

// WithGateway sets the HTTP gateway used for ipfs:// locations.
func WithGateway(url string) Option {
	return platform.WithGateway(url)
}

// WithFileRoot enables local files under root. Without it the engine reads
// no local files.
func WithFileRoot(root string, allow ...string) Option {
	return platform.WithFileRoot(root, allow...)
}

// WithPreload serves docs from memory instead of fetching them.
func WithPreload(docs map[string][]byte) Option {
	return platform.WithPreload(docs)
}

// WithEmbeddedContexts controls whether bundled contexts are served offline.
func WithEmbeddedContexts(enabled bool) Option {
	return platform.WithEmbeddedContexts(enabled)
}

// WithCache selects the context cache backend: "memory", "redis" or "none".
func WithCache(backend string) Option {
	return platform.WithCache(backend)
}

// WithCacheTTL sets the lifetime of cached contexts.
func WithCacheTTL(ttl time.Duration) Option {
	return platform.WithCacheTTL(ttl)
}

// WithCacheStore injects a ready-made cache store.
func WithCacheStore(store cache.Store) Option {
	return platform.WithCacheStore(store)
}

// WithRedis sets the Redis server used by the "redis" cache backend.
func WithRedis(addr, password string, db int) Option {
	return platform.WithRedis(addr, password, db)
}

// WithBaseContexts adds contexts resolved before every document's own.
func WithBaseContexts(sources ...vocab.Source) Option {
	return platform.WithBaseContexts(sources...)
}

// WithBaseContextURLs adds remote base contexts by location.
func WithBaseContextURLs(locations ...string) Option {
	return platform.WithBaseContextURLs(locations...)
}

// WithMetrics registers the engine's Prometheus collectors.
func WithMetrics(registry prometheus.Registerer) Option {
	return platform.WithMetrics(registry)
}

// WithConcurrency bounds the parallel prefetch of sibling remote contexts.
func WithConcurrency(n int) Option {
	return platform.WithConcurrency(n)
}

// WithWatch drops cached contexts whose files under dir change.
func WithWatch(dir string, patterns ...string) Option {
	return platform.WithWatch(dir, patterns...)
}

// --- Factory ---

// New creates a new Engine.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	return platform.New(ctx, opts...)
}
