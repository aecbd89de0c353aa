// Package node defines the normalized, vocabulary-qualified form of a document
// and the Normalizer that produces it.
//
// Every attribute of a Node is keyed by an absolute IRI: short document terms
// never survive normalization, so projections only ever see unambiguous meanings.
package node

import (
	"slices"
	"sort"

	"github.com/aretw0/govmeta/pkg/tree"
	"github.com/aretw0/govmeta/pkg/vocab"
)

// Value is one normalized attribute value: a *Literal or a *Node.
type Value interface {
	isValue()
}

// Literal is a scalar value, optionally tagged with a language or datatype IRI.
type Literal struct {
	Value    tree.Value
	Language string
	Datatype string
}

func (*Literal) isValue() {}

// String returns the literal as a string.
func (l *Literal) String() (string, bool) {
	return l.Value.AsString()
}

// Node is a normalized document node.
type Node struct {
	// ID is the node identity, empty for anonymous nodes.
	ID string
	// Types is the sorted set of type tags.
	Types []string
	// Attributes maps absolute IRIs to their values.
	Attributes map[string]*Attribute
}

func (*Node) isValue() {}

// Attribute holds the values of one meaning.
//
// Multi is false only when the document held a single, non-array value,
// which keeps the scalar / sequence / nested node / sequence of nodes shapes
// apart. List marks ordered lists (@list); other sequences carry document
// order for display only.
type Attribute struct {
	Values []Value
	Multi  bool
	List   bool
}

// Literals returns the literal values of the attribute.
func (a *Attribute) Literals() []*Literal {
	var out []*Literal
	for _, v := range a.Values {
		if l, ok := v.(*Literal); ok {
			out = append(out, l)
		}
	}
	return out
}

// Nodes returns the nested node values of the attribute.
func (a *Attribute) Nodes() []*Node {
	var out []*Node
	for _, v := range a.Values {
		if n, ok := v.(*Node); ok {
			out = append(out, n)
		}
	}
	return out
}

// New returns an empty node.
func New() *Node {
	return &Node{Attributes: make(map[string]*Attribute)}
}

// Get returns the attribute stored under an absolute IRI.
func (n *Node) Get(iri string) (*Attribute, bool) {
	if n == nil {
		return nil, false
	}
	a, ok := n.Attributes[iri]
	return a, ok
}

// HasType reports whether typ is one of the node's type tags.
func (n *Node) HasType(typ string) bool {
	_, found := slices.BinarySearch(n.Types, typ)
	return found
}

// Meanings returns the attribute IRIs, sorted.
func (n *Node) Meanings() []string {
	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (n *Node) addType(typ string) {
	i, found := slices.BinarySearch(n.Types, typ)
	if !found {
		n.Types = slices.Insert(n.Types, i, typ)
	}
}

func (n *Node) add(iri string, values []Value, multi, list bool) {
	if existing, ok := n.Attributes[iri]; ok {
		existing.Values = append(existing.Values, values...)
		existing.Multi = true
		existing.List = existing.List || list
		return
	}
	n.Attributes[iri] = &Attribute{Values: values, Multi: multi, List: list}
}

// Tree renders the node in expanded form: @id, @type, then attributes keyed
// by IRI in sorted order, every attribute as an array of value objects (or a
// single @list object for ordered lists).
// Normalizing the result again yields an Equal node.
func (n *Node) Tree() tree.Value {
	members := make([]tree.Member, 0, len(n.Attributes)+2)
	if n.ID != "" {
		members = append(members, tree.M(vocab.KeywordID, tree.String(n.ID)))
	}
	if len(n.Types) > 0 {
		types := make([]tree.Value, len(n.Types))
		for i, t := range n.Types {
			types[i] = tree.String(t)
		}
		members = append(members, tree.M(vocab.KeywordType, tree.Array(types...)))
	}
	for _, iri := range n.Meanings() {
		attr := n.Attributes[iri]
		items := make([]tree.Value, len(attr.Values))
		for i, v := range attr.Values {
			items[i] = valueTree(v)
		}
		if attr.List {
			members = append(members, tree.M(iri, tree.Obj(tree.M(vocab.KeywordList, tree.Array(items...)))))
			continue
		}
		members = append(members, tree.M(iri, tree.Array(items...)))
	}
	return tree.Obj(members...)
}

func valueTree(v Value) tree.Value {
	switch v := v.(type) {
	case *Node:
		return v.Tree()
	case *Literal:
		members := []tree.Member{tree.M(vocab.KeywordValue, v.Value)}
		if v.Datatype != "" {
			members = append(members, tree.M(vocab.KeywordType, tree.String(v.Datatype)))
		}
		if v.Language != "" {
			members = append(members, tree.M(vocab.KeywordLanguage, tree.String(v.Language)))
		}
		return tree.Obj(members...)
	default:
		return tree.Null()
	}
}

// Equal reports whether a and b carry the same meaning: same identity, type
// tags and attributes. Value order only matters for @list attributes, and the
// Multi flag (a presentation detail of the source document) is ignored.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || !slices.Equal(a.Types, b.Types) || len(a.Attributes) != len(b.Attributes) {
		return false
	}
	for iri, av := range a.Attributes {
		bv, ok := b.Attributes[iri]
		if !ok || av.List != bv.List || len(av.Values) != len(bv.Values) {
			return false
		}
		if av.List {
			for i := range av.Values {
				if !equalValue(av.Values[i], bv.Values[i]) {
					return false
				}
			}
			continue
		}
		if !sameValues(av.Values, bv.Values) {
			return false
		}
	}
	return true
}

// sameValues compares two value sets regardless of order.
func sameValues(a, b []Value) bool {
	used := make([]bool, len(b))
outer:
	for _, av := range a {
		for j, bv := range b {
			if !used[j] && equalValue(av, bv) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func equalValue(a, b Value) bool {
	switch a := a.(type) {
	case *Literal:
		bl, ok := b.(*Literal)
		return ok && a.Language == bl.Language && a.Datatype == bl.Datatype && tree.Equal(a.Value, bl.Value)
	case *Node:
		bn, ok := b.(*Node)
		return ok && Equal(a, bn)
	default:
		return false
	}
}
