package parse

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/tree"
)

func TestJSONParserPreservesOrder(t *testing.T) {
	v, err := NewJSONParser().Parse([]byte(`{"z": 1, "a": [true, null, 1.50], "m": {"b": "x", "a": "y"}}`))
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	arr, _ := obj.Get("a")
	item, _ := arr.Index(2)
	n, ok := item.AsNumber()
	require.True(t, ok)
	assert.Equal(t, "1.50", n.String(), "number literal is kept verbatim")

	m, _ := obj.Get("m")
	inner, _ := m.AsObject()
	assert.Equal(t, []string{"b", "a"}, inner.Keys())
}

func TestJSONParserRejects(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"trailing": `{"a": 1} {"b": 2}`,
		"broken":   `{"a": }`,
		"unclosed": `[1, 2`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewJSONParser().Parse([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrMalformedInput), "got %v", err)
		})
	}
}

func TestJSONParserBOM(t *testing.T) {
	v, err := NewJSONParser().Parse([]byte("\xef\xbb\xbf{\"a\": \"b\"}"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, v.String())
}

func TestJSONCParser(t *testing.T) {
	input := `{
		// a comment
		"name": "x", /* block */
		"list": [1, 2,],
	}`
	v, err := NewJSONCParser().Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, `{"name":"x","list":[1,2]}`, v.String())
}

func TestYAMLParser(t *testing.T) {
	input := `
name: Alice
age: 42
ratio: 0.5
active: true
missing: ~
tags: [a, b]
nested:
  zeta: 1
  alpha: 2
anchor: &x {k: v}
alias: *x
`
	v, err := NewYAMLParser().Parse([]byte(input))
	require.NoError(t, err)

	obj, _ := v.AsObject()
	assert.Equal(t, []string{"name", "age", "ratio", "active", "missing", "tags", "nested", "anchor", "alias"}, obj.Keys())

	age, _ := obj.Get("age")
	assert.Equal(t, tree.KindNumber, age.Kind())
	active, _ := obj.Get("active")
	b, _ := active.AsBool()
	assert.True(t, b)
	missing, _ := obj.Get("missing")
	assert.True(t, missing.IsNull())

	nested, _ := obj.Get("nested")
	no, _ := nested.AsObject()
	assert.Equal(t, []string{"zeta", "alpha"}, no.Keys())

	alias, _ := obj.Get("alias")
	assert.Equal(t, `{"k":"v"}`, alias.String())
}

func TestYAMLParserRejectsNonScalarKeys(t *testing.T) {
	_, err := NewYAMLParser().Parse([]byte("? [a, b]\n: c\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

// aliasFanOut builds a document whose last list expands to 10^(levels+1) scalars.
func aliasFanOut(levels int) []byte {
	var sb strings.Builder
	sb.WriteString("l0: &l0 [" + strings.TrimSuffix(strings.Repeat("x,", 10), ",") + "]\n")
	for i := 1; i <= levels; i++ {
		ref := fmt.Sprintf("*l%d,", i-1)
		fmt.Fprintf(&sb, "l%d: &l%d [%s]\n", i, i, strings.TrimSuffix(strings.Repeat(ref, 10), ","))
	}
	return []byte(sb.String())
}

func TestYAMLParserBoundsAliasExpansion(t *testing.T) {
	data := aliasFanOut(9)
	require.Less(t, len(data), 1024)

	start := time.Now()
	_, err := NewYAMLParser().Parse(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
	assert.Contains(t, err.Error(), "too many nodes")
	assert.Less(t, time.Since(start), time.Second)

	_, err = Sniff{}.Parse(data)
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

func TestYAMLParserKeepsModestAliases(t *testing.T) {
	v, err := NewYAMLParser().Parse([]byte("base: &b {name: http://example.org/name}\none: *b\ntwo: *b\n"))
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	two, _ := obj.Get("two")
	inner, ok := two.AsObject()
	require.True(t, ok)
	name, _ := inner.Get("name")
	s, _ := name.AsString()
	assert.Equal(t, "http://example.org/name", s)

	_, err = NewYAMLParser().Parse(aliasFanOut(2))
	require.NoError(t, err)
}

func TestMarkdownParser(t *testing.T) {
	input := "---\n\"@context\": https://example.org/ctx.jsonld\nname: Alice\n---\n# Body\n\nIgnored text.\n"
	v, err := NewMarkdownParser().Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, `{"@context":"https://example.org/ctx.jsonld","name":"Alice"}`, v.String())

	_, err = NewMarkdownParser().Parse([]byte("# no frontmatter"))
	assert.ErrorIs(t, err, core.ErrMalformedInput)

	_, err = NewMarkdownParser().Parse([]byte("---\nname: x\n"))
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

func TestCBORParser(t *testing.T) {
	data, err := cbor.Marshal(map[string]any{
		"name":  "Alice",
		"count": 3,
		"hash":  []byte{0xde, 0xad},
		"items": []any{"a", true},
	})
	require.NoError(t, err)

	v, err := NewCBORParser().Parse(data)
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.Equal(t, []string{"count", "hash", "items", "name"}, obj.Keys())

	hash, _ := obj.Get("hash")
	s, _ := hash.AsString()
	assert.Equal(t, "dead", s)

	count, _ := obj.Get("count")
	n, _ := count.AsNumber()
	assert.Equal(t, "3", n.String())

	_, err = NewCBORParser().Parse([]byte{0xff, 0x00})
	assert.ErrorIs(t, err, core.ErrMalformedInput)
}

func TestSniff(t *testing.T) {
	jsonDoc, err := Sniff{}.Parse([]byte("  \n{\"a\": 1}"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, jsonDoc.String())

	yamlDoc, err := Sniff{}.Parse([]byte("a: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, yamlDoc.String())

	data, err := cbor.Marshal(map[string]any{"a": "b"})
	require.NoError(t, err)
	cborDoc, err := Sniff{}.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"b"}`, cborDoc.String())
}

func TestRegistryParserFor(t *testing.T) {
	r := NewRegistry()

	assert.IsType(t, &JSONParser{}, r.ParserFor("https://example.org/ctx.jsonld"))
	assert.IsType(t, &JSONParser{}, r.ParserFor("https://example.org/doc.JSON?x=1#frag"))
	assert.IsType(t, &YAMLParser{}, r.ParserFor("file:///tmp/doc.yaml"))
	assert.IsType(t, &MarkdownParser{}, r.ParserFor("notes/doc.md"))
	assert.IsType(t, &CBORParser{}, r.ParserFor("/data/doc.cbor"))
	assert.IsType(t, Sniff{}, r.ParserFor("https://example.org/context"))

	r.Register(".ld", NewJSONCParser())
	assert.IsType(t, &JSONCParser{}, r.ParserFor("a/b.ld"))
	assert.Contains(t, r.Extensions(), ".ld")

	single := Single(NewYAMLParser())
	assert.IsType(t, &YAMLParser{}, single.ParserFor("x.json"))
}
