package parse

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

// --- YAML Parser ---

// YAMLParser reads YAML documents through the yaml.v3 node API so mapping
// order is preserved. Only string keys are accepted.
type YAMLParser struct{}

// NewYAMLParser creates a new YAML parser.
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

func (p *YAMLParser) Parse(data []byte) (tree.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return tree.Value{}, fmt.Errorf("%w: invalid yaml: %v", core.ErrMalformedInput, err)
	}
	if doc.Kind == 0 {
		return tree.Value{}, fmt.Errorf("%w: empty yaml document", core.ErrMalformedInput)
	}
	dec := &yamlDecoder{budget: nodeBudget(len(data))}
	v, err := dec.decode(&doc, 0)
	if err != nil {
		return tree.Value{}, fmt.Errorf("%w: %v", core.ErrMalformedInput, err)
	}
	return v, nil
}

// maxAliasDepth guards against deeply nested aliases.
const maxAliasDepth = 64

// errYAMLTooLarge reports a document whose aliases expand beyond the node budget.
var errYAMLTooLarge = errors.New("yaml aliases expand to too many nodes")

// nodeBudget bounds the number of nodes an input of size n may expand to.
// Aliases may repeat parts of the document, but not multiply it.
func nodeBudget(n int) int {
	return 16*n + 1024
}

// yamlDecoder converts yaml.v3 nodes into trees, charging every visited node
// against budget so alias fan-out cannot blow up.
type yamlDecoder struct {
	budget int
}

func (d *yamlDecoder) decode(n *yaml.Node, depth int) (tree.Value, error) {
	if depth > maxAliasDepth {
		return tree.Value{}, errors.New("yaml nesting too deep")
	}
	d.budget--
	if d.budget < 0 {
		return tree.Value{}, errYAMLTooLarge
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tree.Null(), nil
		}
		return d.decode(n.Content[0], depth+1)
	case yaml.AliasNode:
		return d.decode(n.Alias, depth+1)
	case yaml.SequenceNode:
		items := make([]tree.Value, 0, len(n.Content))
		for i, child := range n.Content {
			v, err := d.decode(child, depth+1)
			if err != nil {
				return tree.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return tree.Array(items...), nil
	case yaml.MappingNode:
		members := make([]tree.Member, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return tree.Value{}, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
			}
			v, err := d.decode(valNode, depth+1)
			if err != nil {
				return tree.Value{}, fmt.Errorf("%s: %w", keyNode.Value, err)
			}
			members = append(members, tree.M(keyNode.Value, v))
		}
		return tree.Obj(members...), nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	default:
		return tree.Value{}, fmt.Errorf("line %d: unsupported yaml node kind %d", n.Line, n.Kind)
	}
}

func fromYAMLScalar(n *yaml.Node) (tree.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return tree.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return tree.Value{}, err
		}
		return tree.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Out of int64 range: keep the literal.
			return tree.Num(tree.Number(strings.ReplaceAll(n.Value, "_", ""))), nil
		}
		return tree.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return tree.Value{}, err
		}
		return tree.Float(f), nil
	default:
		return tree.String(n.Value), nil
	}
}

// --- Markdown Parser ---

// MarkdownParser reads the YAML frontmatter of a Markdown file as the document tree.
// The Markdown body is not part of the tree.
type MarkdownParser struct {
	yaml *YAMLParser
}

// NewMarkdownParser creates a new Markdown frontmatter parser.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{yaml: NewYAMLParser()}
}

func (p *MarkdownParser) Parse(data []byte) (tree.Value, error) {
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return tree.Value{}, fmt.Errorf("%w: markdown document has no frontmatter", core.ErrMalformedInput)
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("\n---"), 2)
	if len(parts) == 1 {
		return tree.Value{}, fmt.Errorf("%w: frontmatter started but no closing delimiter found", core.ErrMalformedInput)
	}

	meta, err := p.yaml.Parse(parts[0])
	if err != nil {
		return tree.Value{}, err
	}
	if meta.Kind() != tree.KindObject {
		return tree.Value{}, fmt.Errorf("%w: frontmatter must be a mapping", core.ErrMalformedInput)
	}
	return meta, nil
}
