package vocab

import (
	"strings"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

// Context-level keywords that are accepted but carry no meaning for the engine.
var ignoredContextKeywords = map[string]bool{
	KeywordVersion: true,
	"@protected":   true,
	"@propagate":   true,
	"@direction":   true,
}

// Keywords allowed inside an expanded term definition but ignored.
var ignoredTermKeywords = map[string]bool{
	KeywordLanguage: true,
	KeywordIndex:    true,
	"@protected":    true,
	"@prefix":       true,
	"@direction":    true,
	"@nest":         true,
}

// definer applies one inline context on top of an active vocabulary.
type definer struct {
	result  *Vocabulary
	pending map[string]tree.Value
	state   map[string]bool // false: in progress, true: defined
	loc     string
	base    string
}

// applyInline merges the definitions of an inline context into active,
// returning a new vocabulary.
func applyInline(active *Vocabulary, src Inline) (*Vocabulary, error) {
	d := &definer{
		result:  active.clone(),
		pending: make(map[string]tree.Value),
		state:   make(map[string]bool),
		loc:     src.Base,
		base:    src.Base,
	}

	var err error
	src.Definitions.Range(func(key string, v tree.Value) bool {
		if strings.HasPrefix(key, "@") {
			err = d.applyKeyword(key, v)
			return err == nil
		}
		d.pending[key] = v
		return true
	})
	if err != nil {
		return nil, err
	}

	for _, key := range src.Definitions.Keys() {
		if _, ok := d.pending[key]; !ok {
			continue
		}
		if err := d.define(key); err != nil {
			return nil, err
		}
	}
	return d.result, nil
}

func (d *definer) applyKeyword(key string, v tree.Value) error {
	switch key {
	case KeywordVocab:
		if v.IsNull() {
			d.result.vocab, d.result.hasVocab = "", false
			return nil
		}
		s, ok := v.AsString()
		if !ok {
			return core.MalformedContext(d.loc, "@vocab must be a string or null")
		}
		iri, _ := d.result.ExpandIRI(s, true)
		if iri != "" && !IsAbsoluteIRI(iri) {
			return core.MalformedContext(d.loc, "@vocab %q is not an absolute IRI", s)
		}
		d.result.vocab, d.result.hasVocab = iri, true
	case KeywordBase:
		if v.IsNull() {
			d.result.base = ""
			return nil
		}
		s, ok := v.AsString()
		if !ok {
			return core.MalformedContext(d.loc, "@base must be a string or null")
		}
		if d.result.base != "" {
			s = resolveIRI(d.result.base, s)
		}
		d.result.base = s
	case KeywordLanguage:
		if v.IsNull() {
			d.result.language = ""
			return nil
		}
		s, ok := v.AsString()
		if !ok {
			return core.MalformedContext(d.loc, "@language must be a string or null")
		}
		d.result.language = strings.ToLower(s)
	default:
		if !ignoredContextKeywords[key] {
			return core.MalformedContext(d.loc, "unsupported context keyword %q", key)
		}
	}
	return nil
}

// define resolves a pending term, first defining any term of the same inline
// context it depends on.
func (d *definer) define(name string) error {
	if done, seen := d.state[name]; seen {
		if done {
			return nil
		}
		return core.MalformedContext(d.loc, "cyclic IRI mapping for term %q", name)
	}
	d.state[name] = false

	raw := d.pending[name]
	term := Term{Name: name}

	var (
		id    string
		hasID bool
	)

	switch raw.Kind() {
	case tree.KindNull:
		delete(d.result.terms, name)
		d.state[name] = true
		return nil
	case tree.KindString:
		id, _ = raw.AsString()
		hasID = true
	case tree.KindObject:
		obj, _ := raw.AsObject()
		var err error
		id, hasID, err = d.expandedDefinition(name, obj, &term)
		if err != nil {
			return err
		}
		if hasID && id == "" {
			// "@id": null explicitly leaves the term unmapped.
			delete(d.result.terms, name)
			d.state[name] = true
			return nil
		}
	default:
		return core.MalformedContext(d.loc, "definition of term %q must be a string, object or null", name)
	}

	var iri string
	var err error
	if hasID {
		iri, err = d.expandID(name, id)
	} else {
		iri, err = d.implicitID(name)
	}
	if err != nil {
		return err
	}
	term.IRI = iri

	d.result.terms[name] = term
	d.state[name] = true
	return nil
}

func (d *definer) expandedDefinition(name string, obj *tree.Object, term *Term) (id string, hasID bool, err error) {
	obj.Range(func(key string, v tree.Value) bool {
		switch key {
		case KeywordID:
			hasID = true
			if v.IsNull() {
				return true
			}
			s, ok := v.AsString()
			if !ok || s == "" {
				err = core.MalformedContext(d.loc, "@id of term %q must be a non-empty string", name)
				return false
			}
			id = s
		case KeywordType:
			s, ok := v.AsString()
			if !ok {
				err = core.MalformedContext(d.loc, "@type of term %q must be a string", name)
				return false
			}
			term.Type, err = d.expandType(name, s)
		case KeywordContainer:
			term.Container, err = d.container(name, v)
		case KeywordContext:
			term.Context, err = ParseSource(v, d.base)
		default:
			if !ignoredTermKeywords[key] {
				err = core.MalformedContext(d.loc, "unsupported key %q in definition of term %q", key, name)
			}
		}
		return err == nil
	})
	return id, hasID, err
}

func (d *definer) expandType(name, s string) (string, error) {
	if s == KeywordID || s == KeywordVocab {
		return s, nil
	}
	if err := d.dependOn(s); err != nil {
		return "", err
	}
	iri, ok := d.result.ExpandIRI(s, true)
	if !ok || !IsAbsoluteIRI(iri) {
		return "", core.MalformedContext(d.loc, "type %q of term %q does not expand to an IRI", s, name)
	}
	return iri, nil
}

func (d *definer) container(name string, v tree.Value) (Container, error) {
	if items, ok := v.AsArray(); ok {
		if len(items) != 1 {
			return ContainerNone, core.MalformedContext(d.loc, "@container of term %q must hold exactly one value", name)
		}
		v = items[0]
	}
	s, _ := v.AsString()
	switch s {
	case KeywordSet:
		return ContainerSet, nil
	case KeywordList:
		return ContainerList, nil
	default:
		return ContainerNone, core.MalformedContext(d.loc, "unsupported @container %q for term %q", v.String(), name)
	}
}

func (d *definer) expandID(name, id string) (string, error) {
	if IsKeyword(id) {
		if id != KeywordID && id != KeywordType {
			return "", core.MalformedContext(d.loc, "term %q cannot alias keyword %s", name, id)
		}
		return id, nil
	}
	if err := d.dependOn(id); err != nil {
		return "", err
	}
	iri, ok := d.result.ExpandIRI(id, true)
	if !ok || !IsAbsoluteIRI(iri) {
		return "", core.MalformedContext(d.loc, "term %q maps to %q which is not an absolute IRI", name, id)
	}
	return iri, nil
}

func (d *definer) implicitID(name string) (string, error) {
	if strings.Contains(name, ":") {
		if err := d.dependOn(name); err != nil {
			return "", err
		}
		iri, _ := d.result.ExpandIRI(name, false)
		return iri, nil
	}
	if prefix, ok := d.result.Vocab(); ok {
		return prefix + name, nil
	}
	return "", core.MalformedContext(d.loc, "term %q has no @id and no @vocab is in effect", name)
}

// dependOn defines, ahead of time, the term or compact IRI prefix that value refers to
// when it is declared in the same inline context.
func (d *definer) dependOn(value string) error {
	dep := value
	if prefix, suffix, found := strings.Cut(value, ":"); found {
		if strings.HasPrefix(suffix, "//") {
			return nil
		}
		dep = prefix
	}
	if _, pending := d.pending[dep]; !pending {
		return nil
	}
	return d.define(dep)
}
