package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aretw0/govmeta/pkg/core"
)

// Mux dispatches a location to a fetcher by URL scheme. Locations without a
// scheme (and Windows drive paths) use the "file" fetcher. Preloaded
// documents, if any, take precedence over every scheme.
type Mux struct {
	schemes  map[string]core.Fetcher
	preload  *Static
	fallback core.Fetcher
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{schemes: make(map[string]core.Fetcher)}
}

// Handle registers f for a scheme.
func (m *Mux) Handle(scheme string, f core.Fetcher) *Mux {
	m.schemes[strings.ToLower(scheme)] = f
	return m
}

// Preload serves docs directly instead of going through the scheme fetchers.
func (m *Mux) Preload(docs map[string][]byte) *Mux {
	if m.preload == nil {
		m.preload = NewStatic(nil)
	}
	for loc, data := range docs {
		m.preload.Put(loc, data)
	}
	return m
}

// Fallback sets the fetcher used for schemes without a handler.
func (m *Mux) Fallback(f core.Fetcher) *Mux {
	m.fallback = f
	return m
}

// Fetch implements core.Fetcher.
func (m *Mux) Fetch(ctx context.Context, location string) ([]byte, error) {
	if m.preload != nil && m.preload.Has(location) {
		return m.preload.Fetch(ctx, location)
	}
	scheme := Scheme(location)
	f, ok := m.schemes[scheme]
	if !ok && m.fallback != nil {
		f, ok = m.fallback, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported scheme %q", core.ErrUnreachable, location, scheme)
	}
	return f.Fetch(ctx, location)
}

// Scheme returns the lowercase scheme of location, "file" when it has none.
func Scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		return "file"
	}
	return strings.ToLower(u.Scheme)
}

// Config selects the behavior of the default fetcher.
type Config struct {
	HTTP    []HTTPOption
	Gateway string
	Root    string
	Allow   []string
	Preload map[string][]byte
}

// New builds the default fetcher: http and https over HTTP, ipfs through the
// gateway, and local files under Root. Local files are only served when Root
// is set.
func New(cfg Config) *Mux {
	h := NewHTTP(cfg.HTTP...)
	m := NewMux().
		Handle("http", h).
		Handle("https", h).
		Handle("ipfs", NewIPFS(cfg.Gateway, h))
	if cfg.Root != "" {
		m.Handle("file", NewFile(cfg.Root, cfg.Allow...))
	}
	if len(cfg.Preload) > 0 {
		m.Preload(cfg.Preload)
	}
	return m
}
