// Package vocab resolves context declarations into a flat term vocabulary.
//
// A Vocabulary maps short document terms to fully-qualified meanings (IRIs),
// together with an optional default prefix (@vocab) and per-term hints: a
// coercion type, a container kind and a scoped context marking the term's
// value as a nested typed node.
//
// Sources are merged left to right. A later definition of a term replaces the
// earlier one as a whole, hints included.
package vocab

import (
	"net/url"
	"sort"
	"strings"
)

// JSON-LD keywords understood by the engine.
const (
	KeywordContext   = "@context"
	KeywordID        = "@id"
	KeywordType      = "@type"
	KeywordVocab     = "@vocab"
	KeywordBase      = "@base"
	KeywordLanguage  = "@language"
	KeywordValue     = "@value"
	KeywordList      = "@list"
	KeywordSet       = "@set"
	KeywordContainer = "@container"
	KeywordVersion   = "@version"
	KeywordIndex     = "@index"
)

// Container is the container hint of a term.
type Container uint8

const (
	ContainerNone Container = iota
	ContainerSet
	ContainerList
)

func (c Container) String() string {
	switch c {
	case ContainerSet:
		return KeywordSet
	case ContainerList:
		return KeywordList
	default:
		return ""
	}
}

// Term is a resolved term definition.
type Term struct {
	Name string
	// IRI is the fully-qualified meaning, or a keyword when the term aliases one.
	IRI string
	// Type is the value coercion hint: "@id", "@vocab", a datatype IRI, or empty.
	Type      string
	Container Container
	// Context is the term's scoped context. A non-nil Context marks values of
	// the term as nested typed nodes.
	Context Source
}

// IsKeywordAlias reports whether the term stands for a keyword such as @id.
func (t Term) IsKeywordAlias() bool {
	return strings.HasPrefix(t.IRI, "@")
}

// Nested reports whether the term carries a scoped context.
func (t Term) Nested() bool {
	return t.Context != nil
}

// Vocabulary is an immutable resolved vocabulary.
type Vocabulary struct {
	terms    map[string]Term
	vocab    string
	hasVocab bool
	base     string
	language string
}

// Empty returns a vocabulary without definitions.
func Empty() *Vocabulary {
	return &Vocabulary{terms: make(map[string]Term)}
}

func (v *Vocabulary) clone() *Vocabulary {
	out := &Vocabulary{
		terms:    make(map[string]Term, len(v.terms)),
		vocab:    v.vocab,
		hasVocab: v.hasVocab,
		base:     v.base,
		language: v.language,
	}
	for k, t := range v.terms {
		out.terms[k] = t
	}
	return out
}

// Lookup returns the definition of a term.
func (v *Vocabulary) Lookup(name string) (Term, bool) {
	if v == nil {
		return Term{}, false
	}
	t, ok := v.terms[name]
	return t, ok
}

// Vocab returns the default meaning prefix.
func (v *Vocabulary) Vocab() (string, bool) {
	if v == nil {
		return "", false
	}
	return v.vocab, v.hasVocab
}

// Base returns the base IRI used for relative identifiers.
func (v *Vocabulary) Base() string {
	if v == nil {
		return ""
	}
	return v.base
}

// Language returns the default language of string values.
func (v *Vocabulary) Language() string {
	if v == nil {
		return ""
	}
	return v.language
}

// Len returns the number of defined terms.
func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.terms)
}

// Terms returns the defined term names, sorted.
func (v *Vocabulary) Terms() []string {
	if v == nil {
		return nil
	}
	names := make([]string, 0, len(v.terms))
	for name := range v.terms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeywordFor returns the keyword a document key stands for, following aliases.
func (v *Vocabulary) KeywordFor(key string) (string, bool) {
	if IsKeyword(key) {
		return key, true
	}
	if t, ok := v.Lookup(key); ok && t.IsKeywordAlias() {
		return t.IRI, true
	}
	return "", false
}

// ExpandIRI qualifies value against the vocabulary.
//
// With vocabRelative set (keys, type values), terms and @vocab apply; otherwise
// (identifiers) relative values resolve against @base. Compact IRIs whose
// prefix is a defined term are expanded; anything else containing a colon is
// taken as already absolute. The boolean is false when value stays unqualified.
func (v *Vocabulary) ExpandIRI(value string, vocabRelative bool) (string, bool) {
	if IsKeyword(value) {
		return value, true
	}
	if vocabRelative {
		if t, ok := v.Lookup(value); ok {
			return t.IRI, true
		}
	}
	if prefix, suffix, found := strings.Cut(value, ":"); found {
		if prefix == "_" || strings.HasPrefix(suffix, "//") {
			return value, true
		}
		if t, ok := v.Lookup(prefix); ok && !t.IsKeywordAlias() {
			return t.IRI + suffix, true
		}
		return value, true
	}
	if vocabRelative {
		if prefix, ok := v.Vocab(); ok {
			return prefix + value, true
		}
		return value, false
	}
	if base := v.Base(); base != "" {
		return resolveIRI(base, value), true
	}
	return value, false
}

// IsKeyword reports whether s is a JSON-LD keyword.
func IsKeyword(s string) bool {
	return len(s) > 1 && s[0] == '@' && isAlpha(s[1:])
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// IsAbsoluteIRI reports whether s has a scheme.
func IsAbsoluteIRI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}

func resolveIRI(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return base + ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return base + ref
	}
	return b.ResolveReference(r).String()
}
