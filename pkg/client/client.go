// Package client is the entry point of the engine: it fetches a document,
// resolves its vocabulary, normalizes it and projects the result onto the
// type requested by the caller.
//
// Every failure is a *core.LoadError tagged with the stage at which it
// occurred (fetch, verify, parse, resolve, normalize or project).
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/introspection"
	"github.com/google/uuid"

	"github.com/aretw0/govmeta/pkg/adapters/parse"
	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/node"
	"github.com/aretw0/govmeta/pkg/tree"
	"github.com/aretw0/govmeta/pkg/vocab"
)

// Config holds the collaborators of a Client.
type Config struct {
	// Fetcher retrieves documents and remote contexts. Required.
	Fetcher core.Fetcher

	// Parsers selects the parser for a location. Nil uses parse.NewRegistry().
	Parsers core.ParserSelector

	// Logger receives one debug record per stage and a warning per failed load.
	// Nil means silent.
	Logger *slog.Logger

	// BaseContexts are resolved before the document's own context.
	BaseContexts []vocab.Source

	// Metrics, if set, records loads.
	Metrics *Metrics

	// Concurrency bounds the prefetch of sibling remote contexts.
	// Zero uses vocab.DefaultFetchConcurrency.
	Concurrency int
}

// Client loads typed metadata documents. It is safe for concurrent use.
type Client struct {
	fetcher    core.Fetcher
	parsers    core.ParserSelector
	logger     *slog.Logger
	base       []vocab.Source
	metrics    *Metrics
	resolver   *vocab.Resolver
	normalizer *node.Normalizer

	loads    atomic.Int64
	failures atomic.Int64
	mu       sync.RWMutex
	lastLoad *time.Time
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = core.FetcherFunc(func(_ context.Context, location string) ([]byte, error) {
			return nil, fmt.Errorf("%w: %s: no fetcher configured", core.ErrUnreachable, location)
		})
	}
	parsers := cfg.Parsers
	if parsers == nil {
		parsers = parse.NewRegistry()
	}

	resolverOpts := []vocab.Option{vocab.WithLogger(logger)}
	if cfg.Concurrency != 0 {
		resolverOpts = append(resolverOpts, vocab.WithFetchConcurrency(cfg.Concurrency))
	}
	resolver := vocab.NewResolver(fetcher, parsers, resolverOpts...)

	return &Client{
		fetcher:    fetcher,
		parsers:    parsers,
		logger:     logger,
		base:       append([]vocab.Source(nil), cfg.BaseContexts...),
		metrics:    cfg.Metrics,
		resolver:   resolver,
		normalizer: node.NewNormalizer(resolver, node.WithLogger(logger)),
	}
}

// LoadNode fetches the document at location and returns its normalized node.
func (c *Client) LoadNode(ctx context.Context, location string) (*node.Node, error) {
	p := c.begin(location)
	res, err := p.execute(ctx, "", stageNormalize)
	p.finish(err)
	if err != nil {
		return nil, err
	}
	return res.node, nil
}

// Vocabulary fetches the document at location and returns the vocabulary its
// context resolves to, without normalizing the document.
func (c *Client) Vocabulary(ctx context.Context, location string) (*vocab.Vocabulary, error) {
	p := c.begin(location)
	res, err := p.execute(ctx, "", stageResolve)
	p.finish(err)
	if err != nil {
		return nil, err
	}
	return res.vocab, nil
}

// Fetch returns the raw bytes of the document at location.
func (c *Client) Fetch(ctx context.Context, location string) ([]byte, error) {
	data, err := c.fetcher.Fetch(core.WithPurpose(ctx, core.PurposeDocument), location)
	if err != nil {
		return nil, &core.LoadError{Stage: core.StageFetch, Location: location, Err: err}
	}
	return data, nil
}

// ResolveSources resolves sources on top of the client's base contexts.
func (c *Client) ResolveSources(ctx context.Context, sources ...vocab.Source) (*vocab.Vocabulary, error) {
	all := append(append([]vocab.Source(nil), c.base...), sources...)
	return c.resolver.Resolve(ctx, all...)
}

// Invalidate drops the cached copy of location when the fetcher keeps one.
func (c *Client) Invalidate(ctx context.Context, location string) error {
	if inv, ok := c.fetcher.(core.Invalidator); ok {
		return inv.Invalidate(ctx, location)
	}
	return nil
}

// pipeline stages, in order; run stops after the requested one.
const (
	stageResolve = iota
	stageNormalize
)

type result struct {
	data  []byte
	vocab *vocab.Vocabulary
	node  *node.Node
}

func (c *Client) begin(location string) *pass {
	return &pass{
		client:   c,
		location: location,
		logger:   c.logger.With("load_id", uuid.NewString(), "location", location),
		started:  time.Now(),
	}
}

// pass tracks one run through the pipeline.
type pass struct {
	client   *Client
	location string
	logger   *slog.Logger
	started  time.Time
	stage    core.Stage
}

func (p *pass) enter(stage core.Stage) {
	p.stage = stage
	p.logger.Debug("load stage", "stage", string(stage))
}

func (p *pass) fail(err error) error {
	return &core.LoadError{Stage: p.stage, Location: p.location, Err: err}
}

// finish records the outcome of the load. A nil err means success.
func (p *pass) finish(err error) {
	c := p.client
	now := time.Now()
	c.loads.Add(1)
	c.mu.Lock()
	c.lastLoad = &now
	c.mu.Unlock()
	c.metrics.recordLoad(string(p.stage), err, now.Sub(p.started))

	if err != nil {
		c.failures.Add(1)
		p.logger.Warn("load failed", "stage", string(p.stage), "error", err)
		return
	}
	p.logger.Debug("load finished", "elapsed", now.Sub(p.started))
}

// execute runs the pipeline up to last. A non-empty hash is verified against
// the fetched bytes before they are parsed. Failures are already wrapped in a
// *core.LoadError.
func (p *pass) execute(ctx context.Context, hash string, last int) (*result, error) {
	c := p.client
	ctx = core.WithOrigin(ctx, p.location)

	p.enter(core.StageFetch)
	data, err := c.fetcher.Fetch(core.WithPurpose(ctx, core.PurposeDocument), p.location)
	if err != nil {
		return nil, p.fail(err)
	}

	if hash != "" {
		p.enter(core.StageVerify)
		if err := verify(data, hash); err != nil {
			return nil, p.fail(err)
		}
	}

	p.enter(core.StageParse)
	parser := c.parsers.ParserFor(p.location)
	if parser == nil {
		return nil, p.fail(fmt.Errorf("%w: no parser for %s", core.ErrMalformedInput, p.location))
	}
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, p.fail(err)
	}
	doc = rootObject(doc)

	p.enter(core.StageResolve)
	sources := append([]vocab.Source(nil), c.base...)
	if obj, ok := doc.AsObject(); ok {
		if raw, ok := obj.Get(vocab.KeywordContext); ok {
			src, err := vocab.ParseSource(raw, p.location)
			if err != nil {
				return nil, p.fail(err)
			}
			sources = append(sources, src)
		}
	}
	voc, err := c.resolver.Resolve(ctx, sources...)
	if err != nil {
		return nil, p.fail(err)
	}
	p.logger.Debug("vocabulary resolved", "terms", voc.Len())
	res := &result{data: data, vocab: voc}
	if last == stageResolve {
		return res, nil
	}

	p.enter(core.StageNormalize)
	n, err := c.normalizer.Normalize(ctx, doc, voc)
	if err != nil {
		return nil, p.fail(err)
	}
	res.node = n
	return res, nil
}

// rootObject selects the node a document describes: the document itself, or
// the first object of a top-level array.
func rootObject(doc tree.Value) tree.Value {
	items, ok := doc.AsArray()
	if !ok {
		return doc
	}
	for _, item := range items {
		if item.Kind() == tree.KindObject {
			return item
		}
	}
	return doc
}

// ClientState exposes internal state for observability.
type ClientState struct {
	Loads        int64      `json:"loads"`
	Failures     int64      `json:"failures"`
	BaseContexts int        `json:"base_contexts"`
	Fetcher      string     `json:"fetcher"`
	Metrics      bool       `json:"metrics"`
	LastLoad     *time.Time `json:"last_load,omitempty"`
	Cache        any        `json:"cache,omitempty"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fetcherType := fmt.Sprintf("%T", c.fetcher)
	var cacheState any
	if comp, ok := c.fetcher.(introspection.Component); ok {
		fetcherType = comp.ComponentType()
	}
	if in, ok := c.fetcher.(introspection.Introspectable); ok {
		cacheState = in.State()
	}

	return ClientState{
		Loads:        c.loads.Load(),
		Failures:     c.failures.Load(),
		BaseContexts: len(c.base),
		Fetcher:      fetcherType,
		Metrics:      c.metrics != nil,
		LastLoad:     c.lastLoad,
		Cache:        cacheState,
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "client"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
