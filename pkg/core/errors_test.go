package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/govmeta/pkg/core"
)

func TestContextErrorMatchesKindAndCause(t *testing.T) {
	cause := fmt.Errorf("%w: dial tcp: timeout", core.ErrTimeout)
	err := error(&core.ContextError{
		Kind:     core.ErrUnreachableContext,
		Location: "https://example.org/ctx.jsonld",
		Err:      cause,
	})

	assert.ErrorIs(t, err, core.ErrUnreachableContext)
	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.NotErrorIs(t, err, core.ErrCyclicContextReference)
	assert.Contains(t, err.Error(), "https://example.org/ctx.jsonld")
}

func TestLoadErrorStage(t *testing.T) {
	inner := &core.TermError{Term: "nmae", Path: "/authors/0"}
	err := fmt.Errorf("wrapped: %w", &core.LoadError{
		Stage:    core.StageNormalize,
		Location: "mem://doc",
		Err:      inner,
	})

	stage, ok := core.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, core.StageNormalize, stage)
	assert.ErrorIs(t, err, core.ErrUnmappableTerm)

	var te *core.TermError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "nmae", te.Term)

	_, ok = core.StageOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestProjectionErrorInnermost(t *testing.T) {
	leaf := &core.ProjectionError{Type: "cip100.Witness", Meaning: "urn:signature", Reason: core.ReasonMissing}
	mid := &core.ProjectionError{Type: "cip100.Author", Meaning: "urn:witness", Reason: core.ReasonNested, Err: leaf}
	top := &core.ProjectionError{Type: "cip100.Document", Meaning: "urn:authors", Reason: core.ReasonNested, Err: mid}

	assert.Same(t, leaf, top.Innermost())
	assert.ErrorIs(t, top, core.ErrProjection)
	assert.Contains(t, top.Error(), "urn:signature")
}

func TestPurpose(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, core.PurposeDocument, core.PurposeFrom(ctx))
	assert.Equal(t, core.PurposeContext, core.PurposeFrom(core.WithPurpose(ctx, core.PurposeContext)))
}
