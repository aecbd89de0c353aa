package platform

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/govmeta/pkg/adapters/cache"
	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/vocab"
)

// Cache backends understood by WithCache.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// options holds the internal configuration of an Engine.
type options struct {
	fetcher     core.Fetcher
	parsers     core.ParserSelector
	logger      *slog.Logger
	timeout     time.Duration
	gateway     string
	userAgent   string
	fileRoot    string
	allow       []string
	preload     map[string][]byte
	embedded    bool
	cache       string
	cacheTTL    time.Duration
	cacheStore  cache.Store
	redis       cache.RedisConfig
	base        []vocab.Source
	registry    prometheus.Registerer
	concurrency int
	watchDir    string
	watchGlobs  []string
	watchErrors func(error)
}

// Option defines a functional option for configuring an Engine.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		preload:  make(map[string][]byte),
		embedded: true,
		cache:    CacheMemory,
		redis:    cache.DefaultRedisConfig(),
	}
}

// WithFetcher replaces the default transports (HTTP, IPFS gateway, files)
// with f. Caching still applies on top of it.
func WithFetcher(f core.Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithParsers sets how fetched bytes are parsed. Defaults to parse.NewRegistry().
func WithParsers(p core.ParserSelector) Option {
	return func(o *options) {
		o.parsers = p
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTimeout bounds each HTTP and IPFS request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithGateway sets the HTTP gateway used for ipfs:// locations.
func WithGateway(url string) Option {
	return func(o *options) {
		o.gateway = url
	}
}

// WithUserAgent sets the User-Agent header of HTTP requests.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithFileRoot enables local files under root; relative paths resolve against
// it and nothing outside it can be read. When allow patterns are given, only
// matching files can be read. Without a file root the engine reads no local
// files.
func WithFileRoot(root string, allow ...string) Option {
	return func(o *options) {
		o.fileRoot = root
		o.allow = append(o.allow, allow...)
	}
}

// WithPreload serves docs from memory instead of fetching them.
func WithPreload(docs map[string][]byte) Option {
	return func(o *options) {
		for loc, data := range docs {
			o.preload[loc] = data
		}
	}
}

// WithEmbeddedContexts controls whether the bundled CIP-100 context is served
// offline. Enabled by default.
func WithEmbeddedContexts(enabled bool) Option {
	return func(o *options) {
		o.embedded = enabled
	}
}

// WithCache selects the context cache backend: "memory" (default), "redis" or "none".
func WithCache(backend string) Option {
	return func(o *options) {
		o.cache = backend
	}
}

// WithCacheTTL sets the lifetime of cached contexts.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
	}
}

// WithCacheStore injects a ready-made cache store, overriding WithCache.
func WithCacheStore(store cache.Store) Option {
	return func(o *options) {
		o.cacheStore = store
	}
}

// WithRedis sets the Redis server used by the "redis" cache backend.
func WithRedis(addr, password string, db int) Option {
	return func(o *options) {
		o.redis.Addr = addr
		o.redis.Password = password
		o.redis.DB = db
	}
}

// WithBaseContexts adds contexts resolved before every document's own.
func WithBaseContexts(sources ...vocab.Source) Option {
	return func(o *options) {
		o.base = append(o.base, sources...)
	}
}

// WithBaseContextURLs adds remote base contexts by location.
func WithBaseContextURLs(locations ...string) Option {
	return func(o *options) {
		for _, loc := range locations {
			o.base = append(o.base, vocab.Remote(loc))
		}
	}
}

// WithMetrics registers the engine's Prometheus collectors on registry.
func WithMetrics(registry prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = registry
	}
}

// WithConcurrency bounds the parallel prefetch of sibling remote contexts.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithWatch watches dir and drops cached contexts whose files change.
// Patterns default to watch.DefaultPatterns.
func WithWatch(dir string, patterns ...string) Option {
	return func(o *options) {
		o.watchDir = dir
		o.watchGlobs = patterns
	}
}

// WithWatcherErrorHandler registers a callback for errors of the watch loop,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.watchErrors = fn
	}
}
