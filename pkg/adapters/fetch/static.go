package fetch

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/govmeta/pkg/core"
)

// Static serves documents from memory, keyed by exact location.
// Useful for pinned contexts and tests.
type Static struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewStatic creates a Static fetcher with an initial set of documents.
func NewStatic(docs map[string][]byte) *Static {
	s := &Static{docs: make(map[string][]byte, len(docs))}
	for loc, data := range docs {
		s.docs[loc] = data
	}
	return s
}

// Put adds or replaces a document.
func (s *Static) Put(location string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[location] = data
}

// Has reports whether location is served.
func (s *Static) Has(location string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[location]
	return ok
}

// Fetch implements core.Fetcher.
func (s *Static) Fetch(ctx context.Context, location string) ([]byte, error) {
	s.mu.RLock()
	data, ok := s.docs[location]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s: not preloaded", core.ErrUnreachable, location)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
