package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/govmeta/pkg/adapters/cache"
	"github.com/aretw0/govmeta/pkg/adapters/fetch"
	"github.com/aretw0/govmeta/pkg/adapters/watch"
	"github.com/aretw0/govmeta/pkg/cip100"
	"github.com/aretw0/govmeta/pkg/client"
	"github.com/aretw0/govmeta/pkg/core"
)

// Engine is a Client wired with its transports, context cache and optional
// file watcher.
//
//	engine, err := govmeta.New(ctx, govmeta.WithCache("redis"))
type Engine struct {
	*client.Client
	cache   *cache.Fetcher
	watcher *watch.Worker
	closers []io.Closer
}

// New builds an Engine from opts. The watcher, if configured, is started
// with ctx and stopped by Close.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	e := &Engine{}

	var metrics *client.Metrics
	if o.registry != nil {
		m, err := client.NewMetrics(o.registry)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		metrics = m
	}

	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = transport(o)
	} else if preload := preloads(o); len(preload) > 0 {
		fetcher = fetch.NewMux().Preload(preload).Fallback(fetcher)
	}

	store, err := e.store(ctx, o)
	if err != nil {
		return nil, err
	}
	if store != nil {
		cacheOpts := []cache.FetcherOption{cache.WithLogger(logger), cache.WithTTL(o.cacheTTL)}
		if metrics != nil {
			cacheOpts = append(cacheOpts, cache.WithObserver(metrics.CacheObserver()))
		}
		e.cache = cache.NewFetcher(fetcher, store, cacheOpts...)
		fetcher = e.cache
	}

	e.Client = client.New(client.Config{
		Fetcher:      fetcher,
		Parsers:      o.parsers,
		Logger:       logger,
		BaseContexts: o.base,
		Metrics:      metrics,
		Concurrency:  o.concurrency,
	})

	if o.watchDir != "" {
		if e.cache == nil {
			_ = e.closeAll()
			return nil, fmt.Errorf("watching %s requires a context cache", o.watchDir)
		}
		e.watcher = watch.New(e.cache, watch.Config{
			Root:         o.watchDir,
			Patterns:     o.watchGlobs,
			Logger:       logger,
			ErrorHandler: o.watchErrors,
		})
		if err := e.watcher.Start(ctx); err != nil {
			_ = e.closeAll()
			return nil, fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	return e, nil
}

func preloads(o *options) map[string][]byte {
	docs := make(map[string][]byte, len(o.preload)+1)
	if o.embedded {
		for loc, data := range cip100.Preload() {
			docs[loc] = data
		}
	}
	for loc, data := range o.preload {
		docs[loc] = data
	}
	return docs
}

func transport(o *options) core.Fetcher {
	var httpOpts []fetch.HTTPOption
	if o.timeout > 0 {
		httpOpts = append(httpOpts, fetch.WithTimeout(o.timeout))
	}
	if o.userAgent != "" {
		httpOpts = append(httpOpts, fetch.WithUserAgent(o.userAgent))
	}
	if o.logger != nil {
		httpOpts = append(httpOpts, fetch.WithHTTPLogger(o.logger))
	}
	return fetch.New(fetch.Config{
		HTTP:    httpOpts,
		Gateway: o.gateway,
		Root:    o.fileRoot,
		Allow:   o.allow,
		Preload: preloads(o),
	})
}

func (e *Engine) store(ctx context.Context, o *options) (cache.Store, error) {
	if o.cacheStore != nil {
		return o.cacheStore, nil
	}
	switch o.cache {
	case CacheMemory, "":
		m := cache.NewMemory()
		e.closers = append(e.closers, m)
		return m, nil
	case CacheRedis:
		r, err := cache.NewRedis(ctx, o.redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect context cache: %w", err)
		}
		e.closers = append(e.closers, r)
		return r, nil
	case CacheNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", o.cache)
	}
}

// Cache returns the context cache, nil when caching is disabled.
func (e *Engine) Cache() *cache.Fetcher {
	return e.cache
}

// Watcher returns the file watcher, nil when watching is disabled.
func (e *Engine) Watcher() *watch.Worker {
	return e.watcher
}

// Close stops the watcher and releases the cache backend.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if e.watcher != nil {
		if err := e.watcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop watcher: %w", err))
		}
	}
	if err := e.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) closeAll() error {
	var errs []error
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
