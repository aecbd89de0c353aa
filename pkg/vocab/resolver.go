package vocab

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/govmeta/pkg/core"
)

// DefaultFetchConcurrency bounds the parallel prefetch of sibling remote contexts.
const DefaultFetchConcurrency = 4

// Resolver merges context sources into vocabularies, retrieving remote
// contexts through the injected Fetcher and ParserSelector.
// A Resolver holds no per-resolution state and is safe for concurrent use.
type Resolver struct {
	fetcher     core.Fetcher
	parsers     core.ParserSelector
	logger      *slog.Logger
	concurrency int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for debug traces of remote resolution.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFetchConcurrency bounds how many sibling remote contexts are fetched at once.
// Values below 2 disable parallel prefetch.
func WithFetchConcurrency(n int) Option {
	return func(r *Resolver) {
		r.concurrency = n
	}
}

// NewResolver creates a Resolver.
func NewResolver(fetcher core.Fetcher, parsers core.ParserSelector, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		parsers:     parsers,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		concurrency: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve merges sources, left to right, into a fresh vocabulary.
func (r *Resolver) Resolve(ctx context.Context, sources ...Source) (*Vocabulary, error) {
	return r.Extend(ctx, Empty(), Nested(sources))
}

// Extend applies src on top of base and returns the merged vocabulary.
// base is left untouched.
func (r *Resolver) Extend(ctx context.Context, base *Vocabulary, src Source) (*Vocabulary, error) {
	if base == nil {
		base = Empty()
	}
	s := &session{
		resolver: r,
		inflight: make(map[string]bool),
		fetched:  make(map[string]fetchResult),
	}
	return s.apply(ctx, base, src)
}

type fetchResult struct {
	data []byte
	err  error
}

// session is the state of one top-level resolution: the set of remote
// references currently being resolved and the bytes fetched so far.
type session struct {
	resolver *Resolver

	mu       sync.Mutex
	inflight map[string]bool
	chain    []string
	fetched  map[string]fetchResult
}

func (s *session) apply(ctx context.Context, active *Vocabulary, src Source) (*Vocabulary, error) {
	switch src := src.(type) {
	case nil:
		return active, nil
	case Reset:
		return Empty(), nil
	case Inline:
		if src.Definitions == nil {
			return active, nil
		}
		return applyInline(active, src)
	case Nested:
		s.prefetch(ctx, src)
		for _, member := range src {
			next, err := s.apply(ctx, active, member)
			if err != nil {
				return nil, err
			}
			active = next
		}
		return active, nil
	case Remote:
		return s.applyRemote(ctx, active, string(src))
	default:
		return nil, core.MalformedContext("", "unknown context source %T", src)
	}
}

func (s *session) applyRemote(ctx context.Context, active *Vocabulary, location string) (*Vocabulary, error) {
	if err := s.acquire(location); err != nil {
		return nil, err
	}
	defer s.release(location)

	s.resolver.logger.Debug("resolving remote context", "location", location, "depth", s.depth())

	data, err := s.load(ctx, location)
	if err != nil {
		return nil, &core.ContextError{Kind: core.ErrUnreachableContext, Location: location, Err: err}
	}

	parser := s.resolver.parsers.ParserFor(location)
	if parser == nil {
		return nil, core.MalformedContext(location, "no parser for location")
	}
	doc, err := parser.Parse(data)
	if err != nil {
		return nil, &core.ContextError{Kind: core.ErrMalformedContext, Location: location, Reason: "unparsable context document", Err: err}
	}
	obj, ok := doc.AsObject()
	if !ok {
		return nil, core.MalformedContext(location, "context document is a %s, not an object", doc.Kind())
	}
	raw, ok := obj.Get(KeywordContext)
	if !ok {
		return nil, core.MalformedContext(location, "context document has no %s", KeywordContext)
	}
	src, err := ParseSource(raw, location)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, active, src)
}

// acquire marks location as being resolved, failing if it already is.
func (s *session) acquire(location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight[location] {
		chain := make([]string, len(s.chain), len(s.chain)+1)
		copy(chain, s.chain)
		return &core.ContextError{
			Kind:     core.ErrCyclicContextReference,
			Location: location,
			Chain:    append(chain, location),
		}
	}
	s.inflight[location] = true
	s.chain = append(s.chain, location)
	return nil
}

func (s *session) release(location string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, location)
	if n := len(s.chain); n > 0 && s.chain[n-1] == location {
		s.chain = s.chain[:n-1]
	}
}

func (s *session) depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chain)
}

// load returns the bytes of a remote context, fetching at most once per session.
func (s *session) load(ctx context.Context, location string) ([]byte, error) {
	s.mu.Lock()
	res, ok := s.fetched[location]
	s.mu.Unlock()
	if ok {
		return res.data, res.err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.resolver.fetcher.Fetch(core.WithPurpose(ctx, core.PurposeContext), location)

	s.mu.Lock()
	s.fetched[location] = fetchResult{data: data, err: err}
	s.mu.Unlock()
	return data, err
}

// prefetch retrieves the direct remote members of a nested source in parallel.
// Results are only memoized: merging and cycle checks stay sequential.
func (s *session) prefetch(ctx context.Context, nested Nested) {
	if s.resolver.concurrency < 2 {
		return
	}

	var locations []string
	seen := make(map[string]bool)
	s.mu.Lock()
	for _, member := range nested {
		remote, ok := member.(Remote)
		if !ok {
			continue
		}
		loc := string(remote)
		if _, done := s.fetched[loc]; done || seen[loc] {
			continue
		}
		seen[loc] = true
		locations = append(locations, loc)
	}
	s.mu.Unlock()

	if len(locations) < 2 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.resolver.concurrency)
	for _, loc := range locations {
		g.Go(func() error {
			// Failures are memoized and reported when the member is merged.
			_, _ = s.load(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()
}
