package cip100_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/govmeta/pkg/adapters/parse"
	"github.com/aretw0/govmeta/pkg/cip100"
	"github.com/aretw0/govmeta/pkg/core"
	"github.com/aretw0/govmeta/pkg/node"
	"github.com/aretw0/govmeta/pkg/project"
	"github.com/aretw0/govmeta/pkg/vocab"
)

func preloaded() core.Fetcher {
	docs := cip100.Preload()
	return core.FetcherFunc(func(_ context.Context, location string) ([]byte, error) {
		if b, ok := docs[location]; ok {
			return b, nil
		}
		return nil, core.ErrUnreachable
	})
}

func normalizeFile(t *testing.T, path string) *node.Node {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return normalizeBytes(t, data)
}

func normalizeBytes(t *testing.T, data []byte) *node.Node {
	t.Helper()
	doc, err := parse.NewJSONParser().Parse(data)
	require.NoError(t, err)

	resolver := vocab.NewResolver(preloaded(), parse.NewRegistry())
	obj, _ := doc.AsObject()
	raw, _ := obj.Get(vocab.KeywordContext)
	src, err := vocab.ParseSource(raw, "")
	require.NoError(t, err)
	voc, err := resolver.Resolve(context.Background(), src)
	require.NoError(t, err)

	n, err := node.NewNormalizer(resolver).Normalize(context.Background(), doc, voc)
	require.NoError(t, err)
	return n
}

var example = cip100.Document{
	HashAlgorithm: "blake2b-256",
	Authors: []cip100.Author{{
		Name: "Pi Lanningham",
		Witness: cip100.Witness{
			Algorithm: "ed25519",
			PublicKey: "7ea09a34aebb13c9841c71397b1cabfec5ddf950405293dee496cac2f437480a",
			Signature: "340c2ef8d6abda96769844ab9dca2634ae21ef97ddbfad1f8843bea1058e40d656455a2962143adc603d063bbbe27b54b88d002d23d1dff1cd0e05017cd4f506",
		},
	}},
	Body: cip100.Body{
		References: []cip100.Reference{{
			Type:  cip100.ReferenceOther,
			Label: "CIP-100",
			URI:   "https://github.com/cardano-foundation/CIPs/blob/master/CIP-0100/README.md",
		}},
		Comment: "This is a test vector for CIP-100",
		ExternalUpdates: []cip100.Update{{
			Title: "Blog",
			URI:   "https://314pool.com",
		}},
	},
}

func TestProjectExample(t *testing.T) {
	doc, err := project.Project[cip100.Document](normalizeFile(t, "testdata/example.jsonld"))
	require.NoError(t, err)
	assert.Equal(t, example, doc)
}

func TestEmbeddedContextParses(t *testing.T) {
	v, err := parse.NewJSONParser().Parse(cip100.Context())
	require.NoError(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)
	assert.True(t, obj.Has(vocab.KeywordContext))

	// Callers cannot corrupt the embedded copy.
	b := cip100.Context()
	b[0] = 'x'
	assert.Equal(t, byte('{'), cip100.Context()[0])
}

func TestReferenceTypes(t *testing.T) {
	governance := `{
		"@context": "` + cip100.ContextURL + `",
		"hashAlgorithm": "blake2b-256",
		"authors": [],
		"body": {
			"comment": "c",
			"references": [{"@type": "GovernanceMetadata", "label": "prior", "uri": "ipfs://bafy"}]
		}
	}`
	doc, err := project.Project[cip100.Document](normalizeBytes(t, []byte(governance)))
	require.NoError(t, err)
	require.Len(t, doc.Body.References, 1)
	assert.Equal(t, cip100.ReferenceGovernanceMetadata, doc.Body.References[0].Type)
	assert.Empty(t, doc.Authors)
	assert.Empty(t, doc.Body.ExternalUpdates)
}

func TestProjectionFailures(t *testing.T) {
	cases := map[string]struct {
		doc     string
		meaning string
		reason  string
	}{
		"missing comment": {
			`{"@context": "` + cip100.ContextURL + `", "hashAlgorithm": "blake2b-256", "body": {}}`,
			cip100.Comment, core.ReasonMissing,
		},
		"missing body": {
			`{"@context": "` + cip100.ContextURL + `", "hashAlgorithm": "blake2b-256"}`,
			cip100.BodyField, core.ReasonMissing,
		},
		"untyped reference": {
			`{"@context": "` + cip100.ContextURL + `", "hashAlgorithm": "h", "body": {"comment": "c", "references": [{"label": "l", "uri": "https://x.test"}]}}`,
			cip100.ReferenceTypeField, core.ReasonType,
		},
		"witness without signature": {
			`{"@context": "` + cip100.ContextURL + `", "hashAlgorithm": "h", "body": {"comment": "c"},
			  "authors": [{"name": "n", "witness": {"witnessAlgorithm": "ed25519", "publicKey": "k"}}]}`,
			cip100.WitnessSignature, core.ReasonMissing,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := project.Project[cip100.Document](normalizeBytes(t, []byte(tc.doc)))
			var pe *core.ProjectionError
			require.ErrorAs(t, err, &pe)
			inner := pe.Innermost()
			assert.Equal(t, tc.meaning, inner.Meaning)
			assert.Equal(t, tc.reason, inner.Reason)
		})
	}
}

func TestReferenceTypeText(t *testing.T) {
	b, err := cip100.ReferenceGovernanceMetadata.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "GovernanceMetadata", string(b))
	assert.Equal(t, "Other", cip100.ReferenceOther.String())
}
