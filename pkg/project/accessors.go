package project

import (
	"fmt"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/node"
	"github.com/aretw0/govmeta/pkg/tree"
	"github.com/aretw0/govmeta/pkg/vocab"
)

func fail(meaning, reason string, format string, args ...any) *core.ProjectionError {
	pe := &core.ProjectionError{Meaning: meaning, Reason: reason}
	if format != "" {
		pe.Err = fmt.Errorf(format, args...)
	}
	return pe
}

// single returns the only value of a required attribute.
func single(n *node.Node, iri string) (node.Value, error) {
	attr, ok := n.Get(iri)
	if !ok || len(attr.Values) == 0 {
		return nil, fail(iri, core.ReasonMissing, "")
	}
	if len(attr.Values) > 1 {
		return nil, fail(iri, core.ReasonShape, "expected one value, found %d", len(attr.Values))
	}
	return attr.Values[0], nil
}

func literalString(iri string, v node.Value) (string, error) {
	lit, ok := v.(*node.Literal)
	if !ok {
		return "", fail(iri, core.ReasonShape, "expected a literal, found a node")
	}
	s, ok := lit.String()
	if !ok {
		return "", fail(iri, core.ReasonInvalid, "expected a string, found %s", lit.Value.Kind())
	}
	return s, nil
}

// String returns the single string value of a required attribute.
func String(n *node.Node, iri string) (string, error) {
	v, err := single(n, iri)
	if err != nil {
		return "", err
	}
	return literalString(iri, v)
}

// OptionalString is like String but reports absence instead of failing.
func OptionalString(n *node.Node, iri string) (string, bool, error) {
	if _, ok := n.Get(iri); !ok {
		return "", false, nil
	}
	s, err := String(n, iri)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// Strings returns every string value of an attribute; a missing attribute yields nil.
func Strings(n *node.Node, iri string) ([]string, error) {
	attr, ok := n.Get(iri)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(attr.Values))
	for _, v := range attr.Values {
		s, err := literalString(iri, v)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Literal returns the single scalar value of a required attribute.
func Literal(n *node.Node, iri string) (tree.Value, error) {
	v, err := single(n, iri)
	if err != nil {
		return tree.Value{}, err
	}
	lit, ok := v.(*node.Literal)
	if !ok {
		return tree.Value{}, fail(iri, core.ReasonShape, "expected a literal, found a node")
	}
	return lit.Value, nil
}

// IRI returns the single value of a required attribute as an absolute IRI.
// Both identity-only nodes and string literals are accepted.
func IRI(n *node.Node, iri string) (string, error) {
	v, err := single(n, iri)
	if err != nil {
		return "", err
	}
	var s string
	switch v := v.(type) {
	case *node.Node:
		s = v.ID
	case *node.Literal:
		str, ok := v.String()
		if !ok {
			return "", fail(iri, core.ReasonInvalid, "expected an IRI, found %s", v.Value.Kind())
		}
		s = str
	}
	if !vocab.IsAbsoluteIRI(s) {
		return "", fail(iri, core.ReasonInvalid, "%q is not an absolute IRI", s)
	}
	return s, nil
}

// HasType fails unless n carries the type tag typ.
func HasType(n *node.Node, typ string) error {
	if !n.HasType(typ) {
		return fail(typ, core.ReasonType, "node types are %v", n.Types)
	}
	return nil
}

// Nested projects the single nested node of a required attribute.
// A failure inside the nested type is wrapped, so errors.As still reaches the
// innermost *core.ProjectionError.
func Nested[T any, PT Target[T]](n *node.Node, iri string) (T, error) {
	var zero T
	v, err := single(n, iri)
	if err != nil {
		return zero, err
	}
	child, ok := v.(*node.Node)
	if !ok {
		return zero, fail(iri, core.ReasonShape, "expected a node, found a literal")
	}
	out, err := Project[T, PT](child)
	if err != nil {
		return zero, &core.ProjectionError{Meaning: iri, Reason: core.ReasonNested, Err: err}
	}
	return out, nil
}

// NestedAll projects every nested node of an attribute, in document order.
// A missing attribute yields nil.
func NestedAll[T any, PT Target[T]](n *node.Node, iri string) ([]T, error) {
	attr, ok := n.Get(iri)
	if !ok {
		return nil, nil
	}
	out := make([]T, 0, len(attr.Values))
	for i, v := range attr.Values {
		child, ok := v.(*node.Node)
		if !ok {
			return nil, fail(iri, core.ReasonShape, "value %d: expected a node, found a literal", i)
		}
		item, err := Project[T, PT](child)
		if err != nil {
			return nil, &core.ProjectionError{Meaning: iri, Reason: core.ReasonNested, Err: fmt.Errorf("value %d: %w", i, err)}
		}
		out = append(out, item)
	}
	return out, nil
}
