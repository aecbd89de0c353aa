package vocab_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/govmeta/pkg/adapters/parse"
	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
	"github.com/aretw0/govmeta/pkg/vocab"
)

// mapFetcher serves documents from memory and counts fetches per location.
type mapFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	errs  map[string]error
	calls map[string]int
}

func newMapFetcher(docs map[string]string) *mapFetcher {
	return &mapFetcher{docs: docs, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *mapFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[location]++
	if core.PurposeFrom(ctx) != core.PurposeContext {
		return nil, fmt.Errorf("unexpected purpose %v", core.PurposeFrom(ctx))
	}
	if err, ok := f.errs[location]; ok {
		return nil, err
	}
	doc, ok := f.docs[location]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnreachable, location)
	}
	return []byte(doc), nil
}

func (f *mapFetcher) count(location string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[location]
}

func newResolver(f core.Fetcher, opts ...vocab.Option) *vocab.Resolver {
	return vocab.NewResolver(f, parse.Single(parse.NewJSONParser()), opts...)
}

func inline(t *testing.T, js string) vocab.Source {
	t.Helper()
	v, err := parse.NewJSONParser().Parse([]byte(js))
	require.NoError(t, err)
	src, err := vocab.ParseSource(v, "")
	require.NoError(t, err)
	return src
}

func iriOf(t *testing.T, v *vocab.Vocabulary, term string) string {
	t.Helper()
	def, ok := v.Lookup(term)
	require.True(t, ok, "term %q should be defined", term)
	return def.IRI
}

func TestResolveLastWriterWins(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/a": `{"@context": {"name": "https://a.test/name", "age": "https://a.test/age"}}`,
		"https://x.test/b": `{"@context": {"name": "https://b.test/name"}}`,
	})
	r := newResolver(f)

	v, err := r.Resolve(context.Background(), vocab.Remote("https://x.test/a"), vocab.Remote("https://x.test/b"))
	require.NoError(t, err)
	assert.Equal(t, "https://b.test/name", iriOf(t, v, "name"))
	assert.Equal(t, "https://a.test/age", iriOf(t, v, "age"))

	v, err = r.Resolve(context.Background(), vocab.Remote("https://x.test/b"), vocab.Remote("https://x.test/a"))
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/name", iriOf(t, v, "name"))
}

func TestResolveRedefinitionReplacesHints(t *testing.T) {
	r := newResolver(newMapFetcher(nil))
	v, err := r.Resolve(context.Background(),
		inline(t, `{"knows": {"@id": "https://a.test/knows", "@type": "@id", "@container": "@set"}}`),
		inline(t, `{"knows": "https://b.test/knows"}`),
	)
	require.NoError(t, err)

	def, _ := v.Lookup("knows")
	assert.Equal(t, "https://b.test/knows", def.IRI)
	assert.Empty(t, def.Type)
	assert.Equal(t, vocab.ContainerNone, def.Container)
}

func TestResolveCycle(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/a": `{"@context": "https://x.test/b"}`,
		"https://x.test/b": `{"@context": ["https://x.test/a"]}`,
	})
	_, err := newResolver(f).Resolve(context.Background(), vocab.Remote("https://x.test/a"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCyclicContextReference)

	var ce *core.ContextError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"https://x.test/a", "https://x.test/b", "https://x.test/a"}, ce.Chain)
}

func TestResolveSelfReference(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/self": `{"@context": ["https://x.test/self", {"a": "https://a.test/a"}]}`,
	})
	_, err := newResolver(f).Resolve(context.Background(), vocab.Remote("https://x.test/self"))
	assert.ErrorIs(t, err, core.ErrCyclicContextReference)
}

func TestResolveDiamondIsNotACycle(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/a":      `{"@context": ["https://x.test/shared", {"a": "https://a.test/a"}]}`,
		"https://x.test/b":      `{"@context": ["https://x.test/shared", {"b": "https://a.test/b"}]}`,
		"https://x.test/shared": `{"@context": {"s": "https://a.test/s"}}`,
	})
	v, err := newResolver(f).Resolve(context.Background(), vocab.Remote("https://x.test/a"), vocab.Remote("https://x.test/b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "s"}, v.Terms())
	assert.Equal(t, 1, f.count("https://x.test/shared"), "a context is fetched once per resolution")
}

func TestResolveUnreachable(t *testing.T) {
	f := newMapFetcher(nil)
	f.errs["https://x.test/slow"] = fmt.Errorf("%w: deadline", core.ErrTimeout)

	r := newResolver(f)

	_, err := r.Resolve(context.Background(), vocab.Remote("https://x.test/missing"))
	assert.ErrorIs(t, err, core.ErrUnreachableContext)
	assert.ErrorIs(t, err, core.ErrUnreachable)

	_, err = r.Resolve(context.Background(), vocab.Remote("https://x.test/slow"))
	assert.ErrorIs(t, err, core.ErrUnreachableContext)
	assert.ErrorIs(t, err, core.ErrTimeout)

	var ce *core.ContextError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "https://x.test/slow", ce.Location)
}

func TestResolveCanceled(t *testing.T) {
	f := newMapFetcher(map[string]string{"https://x.test/a": `{"@context": {}}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newResolver(f).Resolve(ctx, vocab.Remote("https://x.test/a"))
	assert.ErrorIs(t, err, core.ErrUnreachableContext)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.count("https://x.test/a"))
}

func TestResolveMalformed(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/no-context": `{"name": "https://a.test/name"}`,
		"https://x.test/array":      `[1, 2]`,
		"https://x.test/number":     `{"@context": 42}`,
		"https://x.test/garbage":    `{"@context": `,
	})
	r := newResolver(f)

	for loc := range f.docs {
		t.Run(loc, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), vocab.Remote(loc))
			assert.ErrorIs(t, err, core.ErrMalformedContext)
		})
	}

	inlineCases := map[string]string{
		"vocab not string":      `{"@vocab": 1}`,
		"relative vocab":        `{"@vocab": "relative"}`,
		"unknown keyword":       `{"@graph": {}}`,
		"bad definition":        `{"name": 1}`,
		"bad container":         `{"name": {"@id": "https://a.test/n", "@container": "@index"}}`,
		"aliasing @context":     `{"ctx": "@context"}`,
		"term without iri":      `{"name": {"@type": "@id"}}`,
		"cyclic term mapping":   `{"a": "b:x", "b": "a:y"}`,
		"unsupported term key":  `{"name": {"@id": "https://a.test/n", "@reverse": "x"}}`,
		"non absolute mapping":  `{"name": "relative"}`,
		"empty id":              `{"name": {"@id": ""}}`,
		"type not expandable":   `{"name": {"@id": "https://a.test/n", "@type": "date"}}`,
		"nested context arrays": `{"name": {"@id": "https://a.test/n", "@context": [[{}]]}}`,
	}
	for name, js := range inlineCases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), inline(t, js))
			assert.ErrorIs(t, err, core.ErrMalformedContext)
		})
	}
}

func TestResolveCompactIRIs(t *testing.T) {
	r := newResolver(newMapFetcher(nil))

	// The prefix is declared after the term that uses it.
	v, err := r.Resolve(context.Background(), inline(t, `{
		"name": "foaf:name",
		"knows": {"@id": "foaf:knows", "@type": "@id"},
		"birthday": {"@id": "schema:birthDate", "@type": "xsd:date"},
		"foaf": "http://xmlns.com/foaf/0.1/",
		"schema": "https://schema.org/",
		"xsd": "http://www.w3.org/2001/XMLSchema#"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "http://xmlns.com/foaf/0.1/name", iriOf(t, v, "name"))
	knows, _ := v.Lookup("knows")
	assert.Equal(t, "http://xmlns.com/foaf/0.1/knows", knows.IRI)
	assert.Equal(t, vocab.KeywordID, knows.Type)
	birthday, _ := v.Lookup("birthday")
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#date", birthday.Type)

	iri, ok := v.ExpandIRI("foaf:mbox", true)
	assert.True(t, ok)
	assert.Equal(t, "http://xmlns.com/foaf/0.1/mbox", iri)

	iri, ok = v.ExpandIRI("https://other.test/x", true)
	assert.True(t, ok)
	assert.Equal(t, "https://other.test/x", iri)

	_, ok = v.ExpandIRI("unknown", true)
	assert.False(t, ok)
}

func TestResolveTermWithColonName(t *testing.T) {
	r := newResolver(newMapFetcher(nil))
	v, err := r.Resolve(context.Background(), inline(t, `{
		"ex": "https://ex.test/",
		"ex:thing": {"@type": "@id"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "https://ex.test/thing", iriOf(t, v, "ex:thing"))
}

func TestResolveVocabAndKeywords(t *testing.T) {
	r := newResolver(newMapFetcher(nil))
	v, err := r.Resolve(context.Background(), inline(t, `{
		"@version": 1.1,
		"@vocab": "https://v.test/",
		"@base": "https://base.test/docs/",
		"@language": "EN",
		"id": "@id",
		"type": "@type",
		"implicit": {"@type": "@id"}
	}`))
	require.NoError(t, err)

	prefix, ok := v.Vocab()
	assert.True(t, ok)
	assert.Equal(t, "https://v.test/", prefix)
	assert.Equal(t, "https://base.test/docs/", v.Base())
	assert.Equal(t, "en", v.Language())

	kw, ok := v.KeywordFor("id")
	assert.True(t, ok)
	assert.Equal(t, vocab.KeywordID, kw)
	kw, ok = v.KeywordFor("type")
	assert.True(t, ok)
	assert.Equal(t, vocab.KeywordType, kw)
	_, ok = v.KeywordFor("implicit")
	assert.False(t, ok)

	assert.Equal(t, "https://v.test/implicit", iriOf(t, v, "implicit"))

	iri, ok := v.ExpandIRI("anything", true)
	assert.True(t, ok)
	assert.Equal(t, "https://v.test/anything", iri)

	iri, ok = v.ExpandIRI("item/1", false)
	assert.True(t, ok)
	assert.Equal(t, "https://base.test/docs/item/1", iri)
}

func TestResolveNullRemovesTerm(t *testing.T) {
	r := newResolver(newMapFetcher(nil))
	v, err := r.Resolve(context.Background(),
		inline(t, `{"name": "https://a.test/name", "age": "https://a.test/age"}`),
		inline(t, `{"name": null, "age": {"@id": null}}`),
	)
	require.NoError(t, err)
	_, ok := v.Lookup("name")
	assert.False(t, ok)
	_, ok = v.Lookup("age")
	assert.False(t, ok)
}

func TestResolveReset(t *testing.T) {
	r := newResolver(newMapFetcher(nil))
	v, err := r.Resolve(context.Background(), inline(t, `[
		{"@vocab": "https://v.test/", "a": "https://a.test/a"},
		null,
		{"b": "https://a.test/b"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, v.Terms())
	_, ok := v.Vocab()
	assert.False(t, ok)
}

func TestResolveScopedContext(t *testing.T) {
	r := newResolver(newMapFetcher(map[string]string{
		"https://x.test/person": `{"@context": {"nick": "https://p.test/nick"}}`,
	}))
	v, err := r.Resolve(context.Background(), inline(t, `{
		"author": {"@id": "https://a.test/author", "@context": {"label": "https://a.test/label"}},
		"friend": {"@id": "https://a.test/friend", "@context": "https://x.test/person"},
		"plain": "https://a.test/plain"
	}`))
	require.NoError(t, err)

	author, _ := v.Lookup("author")
	assert.True(t, author.Nested())
	plain, _ := v.Lookup("plain")
	assert.False(t, plain.Nested())

	scoped, err := r.Extend(context.Background(), v, author.Context)
	require.NoError(t, err)
	assert.Equal(t, "https://a.test/label", iriOf(t, scoped, "label"))
	assert.Equal(t, "https://a.test/plain", iriOf(t, scoped, "plain"), "outer terms stay visible")
	_, ok := v.Lookup("label")
	assert.False(t, ok, "the outer vocabulary is untouched")

	friend, _ := v.Lookup("friend")
	scoped, err = r.Extend(context.Background(), v, friend.Context)
	require.NoError(t, err)
	assert.Equal(t, "https://p.test/nick", iriOf(t, scoped, "nick"))
}

func TestResolveRelativeReference(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/dir/main.jsonld":  `{"@context": ["other.jsonld", {"a": "https://a.test/a"}]}`,
		"https://x.test/dir/other.jsonld": `{"@context": {"o": "https://a.test/o"}}`,
	})
	v, err := newResolver(f).Resolve(context.Background(), vocab.Remote("https://x.test/dir/main.jsonld"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "o"}, v.Terms())
}

func TestResolveParallelPrefetchMatchesSequential(t *testing.T) {
	docs := map[string]string{}
	var sources []vocab.Source
	for i := 0; i < 8; i++ {
		loc := fmt.Sprintf("https://x.test/ctx/%d", i)
		// Every context redefines "shared" so the merge order is observable.
		docs[loc] = fmt.Sprintf(`{"@context": {"shared": "https://a.test/%d", "t%d": "https://a.test/t%d"}}`, i, i, i)
		sources = append(sources, vocab.Remote(loc))
	}

	sequential, err := newResolver(newMapFetcher(docs), vocab.WithFetchConcurrency(1)).Resolve(context.Background(), sources...)
	require.NoError(t, err)

	f := newMapFetcher(docs)
	parallel, err := newResolver(f, vocab.WithFetchConcurrency(4)).Resolve(context.Background(), sources...)
	require.NoError(t, err)

	assert.Equal(t, sequential.Terms(), parallel.Terms())
	assert.Equal(t, "https://a.test/7", iriOf(t, parallel, "shared"))
	for loc := range docs {
		assert.Equal(t, 1, f.count(loc))
	}
}

func TestResolveParallelPrefetchReportsFirstFailureInOrder(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://x.test/ok": `{"@context": {"a": "https://a.test/a"}}`,
	})
	f.errs["https://x.test/down"] = errors.New("connection refused")

	_, err := newResolver(f).Resolve(context.Background(),
		vocab.Remote("https://x.test/ok"),
		vocab.Remote("https://x.test/down"),
		vocab.Remote("https://x.test/malformed"),
	)
	var ce *core.ContextError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "https://x.test/down", ce.Location)
	assert.ErrorIs(t, err, core.ErrUnreachableContext)
}

func TestParseSource(t *testing.T) {
	src, err := vocab.ParseSource(tree.String("ctx.jsonld"), "https://x.test/docs/doc.json")
	require.NoError(t, err)
	assert.Equal(t, vocab.Remote("https://x.test/docs/ctx.jsonld"), src)

	src, err = vocab.ParseSource(tree.Null(), "")
	require.NoError(t, err)
	assert.Equal(t, vocab.Reset{}, src)

	_, err = vocab.ParseSource(tree.Bool(true), "")
	assert.ErrorIs(t, err, core.ErrMalformedContext)

	_, err = vocab.ParseSource(tree.String(""), "")
	assert.ErrorIs(t, err, core.ErrMalformedContext)
}

func TestResolveEmpty(t *testing.T) {
	v, err := newResolver(newMapFetcher(nil)).Resolve(context.Background())
	require.NoError(t, err)
	assert.Zero(t, v.Len())
}

func TestParseSourceRefusesLocalReferencesFromRemoteDocuments(t *testing.T) {
	for _, ref := range []string{"file:///etc/passwd", "FILE:secret.json", `C:\secret.json`} {
		_, err := vocab.ParseSource(tree.String(ref), "https://example.org/doc.jsonld")
		require.Error(t, err, ref)
		assert.ErrorIs(t, err, core.ErrUnreachableContext, ref)
	}

	_, err := vocab.ParseSource(tree.Array(tree.String("https://example.org/a.jsonld"), tree.String("file:///etc/passwd")), "https://example.org/doc.jsonld")
	assert.ErrorIs(t, err, core.ErrUnreachableContext)

	src, err := vocab.ParseSource(tree.String("ctx.jsonld"), "file:///docs/doc.jsonld")
	require.NoError(t, err)
	assert.Equal(t, vocab.Remote("file:///docs/ctx.jsonld"), src)

	src, err = vocab.ParseSource(tree.String("/etc/passwd"), "https://example.org/doc.jsonld")
	require.NoError(t, err)
	assert.Equal(t, vocab.Remote("https://example.org/etc/passwd"), src)
}

func TestResolveRemoteContextCannotReachLocalFiles(t *testing.T) {
	f := newMapFetcher(map[string]string{
		"https://example.org/evil.jsonld": `{"@context": "file:///etc/passwd"}`,
	})
	_, err := newResolver(f).Resolve(context.Background(), vocab.Remote("https://example.org/evil.jsonld"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnreachableContext)
	assert.Zero(t, f.count("file:///etc/passwd"))
}

func TestConfine(t *testing.T) {
	local := vocab.Nested{vocab.Remote("https://example.org/a.jsonld"), vocab.Remote("secret.json")}

	assert.NoError(t, vocab.Confine(local, ""))
	assert.NoError(t, vocab.Confine(local, "file:///docs/doc.json"))
	assert.ErrorIs(t, vocab.Confine(local, "https://example.org/doc.json"), core.ErrUnreachableContext)
	assert.NoError(t, vocab.Confine(vocab.Remote("https://example.org/a.jsonld"), "https://example.org/doc.json"))

	assert.True(t, vocab.IsLocal("docs/a.json"))
	assert.True(t, vocab.IsLocal("FILE:///a.json"))
	assert.False(t, vocab.IsLocal("ipfs://cid"))
}
