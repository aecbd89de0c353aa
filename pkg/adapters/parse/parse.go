// Package parse provides the tree parsers used to turn fetched bytes into
// document trees: JSON (and JSON-LD), JSONC, YAML, Markdown frontmatter and CBOR.
package parse

import (
	"bytes"
	"net/url"
	"path"
	"strings"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

// DefaultParsers returns the standard parser per file extension.
func DefaultParsers() map[string]core.Parser {
	return map[string]core.Parser{
		".json":   NewJSONParser(),
		".jsonld": NewJSONParser(),
		".jsonc":  NewJSONCParser(),
		".yaml":   NewYAMLParser(),
		".yml":    NewYAMLParser(),
		".md":     NewMarkdownParser(),
		".cbor":   NewCBORParser(),
	}
}

// Registry selects a parser by the extension of a location.
// Locations without a known extension use the fallback parser.
type Registry struct {
	parsers  map[string]core.Parser
	fallback core.Parser
}

// NewRegistry creates a registry populated with DefaultParsers and a sniffing fallback.
func NewRegistry() *Registry {
	return &Registry{
		parsers:  DefaultParsers(),
		fallback: Sniff{},
	}
}

// Single returns a registry that always uses p.
func Single(p core.Parser) *Registry {
	return &Registry{parsers: map[string]core.Parser{}, fallback: p}
}

// Register sets the parser for an extension (with leading dot).
func (r *Registry) Register(ext string, p core.Parser) {
	r.parsers[strings.ToLower(ext)] = p
}

// SetFallback sets the parser used for unknown extensions.
func (r *Registry) SetFallback(p core.Parser) {
	r.fallback = p
}

// Extensions returns the registered extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	return exts
}

// ParserFor implements core.ParserSelector.
func (r *Registry) ParserFor(location string) core.Parser {
	if p, ok := r.parsers[extension(location)]; ok {
		return p
	}
	return r.fallback
}

func extension(location string) string {
	p := location
	if u, err := url.Parse(location); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

// Sniff picks a parser from the first significant byte of the input:
// '{' or '[' selects JSON, a CBOR map or array header selects CBOR, anything
// else is read as YAML.
type Sniff struct{}

// Parse implements core.Parser.
func (Sniff) Parse(data []byte) (tree.Value, error) {
	if len(data) > 0 && data[0] >= 0x80 && data[0] <= 0xbf {
		return NewCBORParser().Parse(data)
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n\ufeff")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return NewJSONParser().Parse(data)
	}
	return NewYAMLParser().Parse(data)
}
