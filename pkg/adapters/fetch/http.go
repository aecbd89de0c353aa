// Package fetch provides the retrieval adapters behind core.Fetcher:
// HTTP(S), IPFS through an HTTP gateway, local files, in-memory documents and
// a scheme multiplexer combining them.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/govmeta/pkg/core"
)

const (
	// DefaultTimeout bounds a single HTTP retrieval.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxBytes bounds the size of a retrieved document.
	DefaultMaxBytes int64 = 4 << 20
)

// acceptHeader prefers linked-data documents but accepts anything, since many
// hosts serve JSON-LD as text/plain or application/octet-stream.
const acceptHeader = "application/ld+json, application/json;q=0.9, */*;q=0.1"

// HTTP fetches http and https locations.
// Timeouts surface as core.ErrTimeout; every other failure as core.ErrUnreachable.
// HTTP does not retry.
type HTTP struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *slog.Logger
}

// HTTPOption configures an HTTP fetcher.
type HTTPOption func(*HTTP)

// WithClient replaces the underlying HTTP client.
func WithClient(c *http.Client) HTTPOption {
	return func(h *HTTP) {
		if c != nil {
			h.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithMaxBytes bounds the accepted response size.
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTP) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) {
		h.userAgent = ua
	}
}

// WithHTTPLogger sets the logger used for request traces.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTP) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHTTP creates an HTTP fetcher.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client:    &http.Client{Timeout: DefaultTimeout},
		maxBytes:  DefaultMaxBytes,
		userAgent: "govmeta",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Fetch implements core.Fetcher.
func (h *HTTP) Fetch(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrUnreachable, location, err)
	}
	req.Header.Set("Accept", acceptHeader)
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classify(location, err)
	}
	defer resp.Body.Close()

	h.logger.Debug("http fetch", "location", location, "status", resp.StatusCode, "purpose", core.PurposeFrom(ctx), "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %s", core.ErrUnreachable, location, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, classify(location, err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, fmt.Errorf("%w: %s: response exceeds %d bytes", core.ErrUnreachable, location, h.maxBytes)
	}
	return data, nil
}

func classify(location string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", core.ErrTimeout, location, err)
	}
	return fmt.Errorf("%w: %s: %w", core.ErrUnreachable, location, err)
}
