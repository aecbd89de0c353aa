// Package core holds the ports and the error taxonomy shared by every stage.
package core

import (
	"context"

	"github.com/aretw0/govmeta/pkg/tree"
)

// Fetcher retrieves the raw bytes stored at a location.
// Adhering to this interface keeps the engine independent of the transport
// (HTTP, IPFS gateway, local files, in-memory fixtures).
//
// Failures should wrap ErrUnreachable or ErrTimeout so callers can classify them.
// Retry policy, if any, belongs to the implementation.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, location string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f(ctx, location)
}

// Parser turns raw bytes into a document tree.
// Failures should wrap ErrMalformedInput.
type Parser interface {
	Parse(data []byte) (tree.Value, error)
}

// ParserFunc adapts a plain function to the Parser interface.
type ParserFunc func(data []byte) (tree.Value, error)

// Parse calls f.
func (f ParserFunc) Parse(data []byte) (tree.Value, error) {
	return f(data)
}

// ParserSelector picks the Parser to use for a given location
// (typically by file extension).
type ParserSelector interface {
	ParserFor(location string) Parser
}

// Invalidator is implemented by fetchers that keep a cache of previous results.
type Invalidator interface {
	Invalidate(ctx context.Context, location string) error
}
