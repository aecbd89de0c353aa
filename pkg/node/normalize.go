package node

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
	"github.com/aretw0/govmeta/pkg/vocab"
)

// Keywords that describe graph structures the normalizer does not support.
var unsupportedKeywords = map[string]bool{
	"@graph":    true,
	"@reverse":  true,
	"@included": true,
	"@nest":     true,
}

// Normalizer turns document trees into vocabulary-qualified nodes.
// Embedded and scoped contexts of nested objects are resolved through the
// Resolver, on top of the vocabulary of the enclosing node.
type Normalizer struct {
	resolver *vocab.Resolver
	logger   *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger of the normalizer.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Normalizer) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNormalizer creates a Normalizer. A nil resolver can only merge inline
// contexts: remote references found inside the document are unreachable.
func NewNormalizer(resolver *vocab.Resolver, opts ...Option) *Normalizer {
	if resolver == nil {
		resolver = vocab.NewResolver(core.FetcherFunc(func(context.Context, string) ([]byte, error) {
			return nil, fmt.Errorf("%w: no fetcher configured", core.ErrUnreachable)
		}), nil)
	}
	n := &Normalizer{
		resolver: resolver,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts an object tree into a Node using voc.
// The root object's own @context is expected to be already merged into voc
// and is skipped.
func (n *Normalizer) Normalize(ctx context.Context, v tree.Value, voc *vocab.Vocabulary) (*Node, error) {
	obj, ok := v.AsObject()
	if !ok {
		return nil, &core.NodeError{Reason: fmt.Sprintf("document root is a %s, not an object", v.Kind())}
	}
	if voc == nil {
		voc = vocab.Empty()
	}
	return n.object(ctx, obj, voc, "", true)
}

func (n *Normalizer) object(ctx context.Context, obj *tree.Object, voc *vocab.Vocabulary, path string, root bool) (*Node, error) {
	if raw, ok := obj.Get(vocab.KeywordContext); ok && !root {
		base := voc.Base()
		if base == "" {
			base = core.OriginFrom(ctx)
		}
		src, err := vocab.ParseSource(raw, base)
		if err == nil {
			err = vocab.Confine(src, core.OriginFrom(ctx))
		}
		if err != nil {
			return nil, &core.NodeError{Path: pointer(path, vocab.KeywordContext), Reason: "invalid embedded context", Err: err}
		}
		voc, err = n.resolver.Extend(ctx, voc, src)
		if err != nil {
			return nil, &core.NodeError{Path: pointer(path, vocab.KeywordContext), Reason: "embedded context failed to resolve", Err: err}
		}
	}

	out := New()
	var err error
	obj.Range(func(key string, raw tree.Value) bool {
		err = n.member(ctx, out, key, raw, voc, path)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (n *Normalizer) member(ctx context.Context, out *Node, key string, raw tree.Value, voc *vocab.Vocabulary, path string) error {
	here := pointer(path, key)

	if keyword, ok := voc.KeywordFor(key); ok {
		switch keyword {
		case vocab.KeywordContext:
			return nil
		case vocab.KeywordID:
			s, ok := raw.AsString()
			if !ok {
				return &core.NodeError{Path: here, Reason: "@id must be a string"}
			}
			id := expandOrKeep(voc, s, false)
			if out.ID != "" && out.ID != id {
				return &core.NodeError{Path: here, Reason: fmt.Sprintf("conflicting identities %q and %q", out.ID, id)}
			}
			out.ID = id
			return nil
		case vocab.KeywordType:
			return n.types(out, raw, voc, here)
		case vocab.KeywordValue, vocab.KeywordList, vocab.KeywordSet:
			return &core.NodeError{Path: here, Reason: keyword + " is only allowed in value position"}
		default:
			if unsupportedKeywords[keyword] {
				return &core.NodeError{Path: here, Reason: keyword + " is not supported"}
			}
			return nil
		}
	}

	iri, term, err := qualify(voc, key, path)
	if err != nil {
		return err
	}
	if raw.IsNull() {
		return nil
	}

	values, multi, list, err := n.values(ctx, raw, term, voc, here)
	if err != nil {
		return err
	}
	if len(values) == 0 && !multi {
		return nil
	}
	out.add(iri, values, multi, list)
	return nil
}

// qualify maps a document key to its meaning: vocabulary term, compact IRI
// with a known prefix, absolute IRI, then @vocab concatenation.
func qualify(voc *vocab.Vocabulary, key, path string) (string, vocab.Term, error) {
	term, _ := voc.Lookup(key)
	iri, ok := voc.ExpandIRI(key, true)
	if !ok || !vocab.IsAbsoluteIRI(iri) {
		return "", vocab.Term{}, &core.TermError{Term: key, Path: path}
	}
	return iri, term, nil
}

func (n *Normalizer) types(out *Node, raw tree.Value, voc *vocab.Vocabulary, path string) error {
	var tags []tree.Value
	switch raw.Kind() {
	case tree.KindString:
		tags = []tree.Value{raw}
	case tree.KindArray:
		tags, _ = raw.AsArray()
	default:
		return &core.NodeError{Path: path, Reason: "@type must be a string or an array of strings"}
	}
	for i, tag := range tags {
		s, ok := tag.AsString()
		if !ok || s == "" {
			return &core.NodeError{Path: pointer(path, strconv.Itoa(i)), Reason: "type tag must be a non-empty string"}
		}
		out.addType(expandOrKeep(voc, s, true))
	}
	return nil
}

// values normalizes the value of one attribute.
func (n *Normalizer) values(ctx context.Context, raw tree.Value, term vocab.Term, voc *vocab.Vocabulary, path string) ([]Value, bool, bool, error) {
	multi := term.Container != vocab.ContainerNone
	list := term.Container == vocab.ContainerList

	if obj, ok := raw.AsObject(); ok {
		if wrapped, keyword, ok := containerObject(obj, voc); ok {
			multi = true
			list = list || keyword == vocab.KeywordList
			path = pointer(path, keyword)
			raw = wrapped
		}
	}

	items := []tree.Value{raw}
	itemsPath := func(int) string { return path }
	if arr, ok := raw.AsArray(); ok {
		multi = true
		items = arr
		itemsPath = func(i int) string { return pointer(path, strconv.Itoa(i)) }
	}

	out := make([]Value, 0, len(items))
	for i, item := range items {
		if item.IsNull() {
			continue
		}
		if item.Kind() == tree.KindArray {
			return nil, false, false, &core.NodeError{Path: itemsPath(i), Reason: "arrays of arrays are not supported"}
		}
		v, err := n.value(ctx, item, term, voc, itemsPath(i))
		if err != nil {
			return nil, false, false, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, multi, list, nil
}

// containerObject unwraps {"@list": ...} and {"@set": ...} objects.
func containerObject(obj *tree.Object, voc *vocab.Vocabulary) (tree.Value, string, bool) {
	if obj.Len() != 1 {
		return tree.Value{}, "", false
	}
	key := obj.Keys()[0]
	keyword, ok := voc.KeywordFor(key)
	if !ok || (keyword != vocab.KeywordList && keyword != vocab.KeywordSet) {
		return tree.Value{}, "", false
	}
	inner, _ := obj.Get(key)
	if inner.Kind() != tree.KindArray {
		inner = tree.Array(inner)
	}
	return inner, keyword, true
}

// value normalizes one item of an attribute. It returns nil for values that
// carry nothing (a null @value).
func (n *Normalizer) value(ctx context.Context, item tree.Value, term vocab.Term, voc *vocab.Vocabulary, path string) (Value, error) {
	obj, ok := item.AsObject()
	if !ok {
		return n.scalar(item, term, voc), nil
	}

	if literal, isValue, err := valueObject(obj, voc, path); isValue || err != nil {
		if err != nil || literal == nil {
			return nil, err
		}
		return literal, nil
	}

	if _, _, ok := containerObject(obj, voc); ok {
		return nil, &core.NodeError{Path: path, Reason: "nested @list or @set objects are not supported"}
	}

	scoped := voc
	if term.Nested() {
		var err error
		scoped, err = n.resolver.Extend(ctx, voc, term.Context)
		if err != nil {
			return nil, &core.NodeError{Path: path, Reason: fmt.Sprintf("scoped context of term %q failed to resolve", term.Name), Err: err}
		}
		n.logger.Debug("applied scoped context", "term", term.Name, "path", path, "terms", scoped.Len())
	}
	return n.object(ctx, obj, scoped, path, false)
}

func (n *Normalizer) scalar(item tree.Value, term vocab.Term, voc *vocab.Vocabulary) Value {
	s, isString := item.AsString()
	switch {
	case isString && term.Type == vocab.KeywordID:
		return &Node{ID: expandOrKeep(voc, s, false), Attributes: map[string]*Attribute{}}
	case isString && term.Type == vocab.KeywordVocab:
		return &Node{ID: expandOrKeep(voc, s, true), Attributes: map[string]*Attribute{}}
	}

	lit := &Literal{Value: item}
	switch {
	case term.Type != "" && term.Type != vocab.KeywordID && term.Type != vocab.KeywordVocab:
		lit.Datatype = term.Type
	case isString:
		lit.Language = voc.Language()
	}
	return lit
}

// valueObject reads {"@value": ..., "@type": ..., "@language": ...} objects.
// isValue reports whether obj is a value object at all.
func valueObject(obj *tree.Object, voc *vocab.Vocabulary, path string) (lit *Literal, isValue bool, err error) {
	keywords := make(map[string]tree.Value, obj.Len())
	obj.Range(func(key string, v tree.Value) bool {
		if keyword, ok := voc.KeywordFor(key); ok {
			keywords[keyword] = v
		} else {
			keywords[key] = v
		}
		return true
	})

	raw, ok := keywords[vocab.KeywordValue]
	if !ok {
		return nil, false, nil
	}
	lit = &Literal{Value: raw}
	for key, v := range keywords {
		switch key {
		case vocab.KeywordValue, vocab.KeywordIndex:
		case vocab.KeywordType:
			s, ok := v.AsString()
			if !ok {
				return nil, true, &core.NodeError{Path: pointer(path, key), Reason: "datatype must be a string"}
			}
			lit.Datatype = expandOrKeep(voc, s, true)
		case vocab.KeywordLanguage:
			s, ok := v.AsString()
			if !ok {
				return nil, true, &core.NodeError{Path: pointer(path, key), Reason: "language must be a string"}
			}
			lit.Language = strings.ToLower(s)
		default:
			return nil, true, &core.NodeError{Path: pointer(path, key), Reason: "unexpected key in value object"}
		}
	}
	if raw.IsNull() {
		return nil, true, nil
	}
	if !raw.IsScalar() {
		return nil, true, &core.NodeError{Path: pointer(path, vocab.KeywordValue), Reason: "@value must be a scalar"}
	}
	if lit.Datatype != "" && lit.Language != "" {
		return nil, true, &core.NodeError{Path: path, Reason: "value object cannot have both a datatype and a language"}
	}
	return lit, true, nil
}

// expandOrKeep qualifies s when the vocabulary can; otherwise s is kept as written.
func expandOrKeep(voc *vocab.Vocabulary, s string, vocabRelative bool) string {
	if iri, ok := voc.ExpandIRI(s, vocabRelative); ok {
		return iri
	}
	return s
}

// pointer appends an escaped JSON pointer token to path.
func pointer(path, token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return path + "/" + token
}
