package vocab

import (
	"net/url"
	"strings"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

// Source is one context declaration: Inline, Nested, Remote or Reset.
type Source interface {
	isSource()
}

// Inline holds term definitions declared directly in a document.
type Inline struct {
	Definitions *tree.Object
	// Base is the location of the declaring document; relative references in
	// scoped contexts resolve against it.
	Base string
}

// Nested combines several sources; later members override earlier ones.
type Nested []Source

// Remote references a context document by location.
type Remote string

// Reset clears every definition accumulated so far (a null context).
type Reset struct{}

func (Inline) isSource() {}
func (Nested) isSource() {}
func (Remote) isSource() {}
func (Reset) isSource()  {}

// ParseSource converts a raw @context value into a Source.
// base is the location of the document declaring it; relative remote
// references are resolved against base. A document that was not read from
// a local file cannot reference local context files.
func ParseSource(v tree.Value, base string) (Source, error) {
	switch v.Kind() {
	case tree.KindNull:
		return Reset{}, nil
	case tree.KindString:
		ref, _ := v.AsString()
		if ref == "" {
			return nil, core.MalformedContext(base, "empty context reference")
		}
		loc := ResolveReference(base, ref)
		if err := confine(loc, base); err != nil {
			return nil, err
		}
		return Remote(loc), nil
	case tree.KindObject:
		obj, _ := v.AsObject()
		return Inline{Definitions: obj, Base: base}, nil
	case tree.KindArray:
		items, _ := v.AsArray()
		nested := make(Nested, 0, len(items))
		for _, item := range items {
			if item.Kind() == tree.KindArray {
				return nil, core.MalformedContext(base, "context arrays cannot nest arrays")
			}
			src, err := ParseSource(item, base)
			if err != nil {
				return nil, err
			}
			nested = append(nested, src)
		}
		return nested, nil
	default:
		return nil, core.MalformedContext(base, "context must be an object, array, string or null, got %s", v.Kind())
	}
}

// ResolveReference resolves ref against base. Absolute references and
// unparsable inputs are returned unchanged.
func ResolveReference(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// Confine fails when src references a local context file but the document
// it applies to, origin, was not read from a local file. An empty origin is
// trusted.
func Confine(src Source, origin string) error {
	switch src := src.(type) {
	case Remote:
		return confine(string(src), origin)
	case Nested:
		for _, member := range src {
			if err := Confine(member, origin); err != nil {
				return err
			}
		}
	}
	return nil
}

func confine(location, declarer string) error {
	if declarer == "" || IsLocal(declarer) || !IsLocal(location) {
		return nil
	}
	return &core.ContextError{
		Kind:     core.ErrUnreachableContext,
		Location: location,
		Reason:   "local context referenced from " + declarer,
	}
}

// IsLocal reports whether location designates a local file: a file: URL, a
// path without scheme or a Windows drive path.
func IsLocal(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return !strings.Contains(location, "://")
	}
	return len(u.Scheme) <= 1 || strings.EqualFold(u.Scheme, "file")
}
