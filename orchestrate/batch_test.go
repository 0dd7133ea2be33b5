package orchestrate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/c360studio/examforge/assemble"
	"github.com/c360studio/examforge/llm"
	"github.com/c360studio/examforge/orchestrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitGen fails units whose ID is in badUnits and answers the rest with a
// complete document. Unit identity rides in the request's first part.
type unitGen struct {
	badUnits map[int]bool
	target   int
}

func (g *unitGen) Generate(_ context.Context, _ string, req llm.Request) (*llm.Response, error) {
	var id int
	fmt.Sscanf(req.Parts[0].Text, "unit %d", &id)
	if g.badUnits[id] {
		return nil, llm.NewFatalError(errors.New("model rejected the request"))
	}
	return &llm.Response{Text: examJSON(1, g.target), Usage: llm.Usage{OutputTokens: 10}}, nil
}

func batchUnits(n int) []orchestrate.WorkUnit {
	units := make([]orchestrate.WorkUnit, n)
	for i := range units {
		units[i] = orchestrate.WorkUnit{
			ID:         i + 1,
			OutputPath: fmt.Sprintf("exam-%d.html", i+1),
			Request: llm.Request{
				Model: "gemini-2.5-flash",
				Parts: []llm.Part{llm.TextPart(fmt.Sprintf("unit %d", i+1))},
			},
		}
	}
	return units
}

func TestBatchPartialSuccess(t *testing.T) {
	pool := newPool(t, 2)
	gen := &unitGen{badUnits: map[int]bool{2: true}, target: 5}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(5), nil)
	runner := orchestrate.NewRunner(orch, 2, orchestrate.WithConcurrency(1))

	summary, err := runner.Run(context.Background(), batchUnits(3))
	require.NoError(t, err, "partial success is not a batch error")

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.NoError(t, summary.Results[0].Err)
	assert.Error(t, summary.Results[1].Err)
	assert.NoError(t, summary.Results[2].Err)
	assert.Len(t, renderer.paths, 2)
}

func TestBatchAllFailed(t *testing.T) {
	pool := newPool(t, 2)
	gen := &unitGen{badUnits: map[int]bool{1: true, 2: true}, target: 5}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(5), nil)
	runner := orchestrate.NewRunner(orch, 2)

	summary, err := runner.Run(context.Background(), batchUnits(2))
	require.ErrorIs(t, err, orchestrate.ErrAllUnitsFailed)
	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Empty(t, renderer.paths)
}

func TestBatchOneFailureDoesNotAbortSiblings(t *testing.T) {
	pool := newPool(t, 4)
	gen := &unitGen{badUnits: map[int]bool{1: true}, target: 5}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(5), nil)
	runner := orchestrate.NewRunner(orch, 4, orchestrate.WithConcurrency(4))

	summary, err := runner.Run(context.Background(), batchUnits(4))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Len(t, renderer.paths, 3)
}

func TestBatchConcurrencyNeverExceedsPool(t *testing.T) {
	pool := newPool(t, 1)
	gen := &unitGen{target: 5}
	renderer := &stubRenderer{}

	orch := orchestrate.New(pool, gen, assemble.New(), renderer, fastConfig(5), nil)
	runner := orchestrate.NewRunner(orch, 1, orchestrate.WithConcurrency(8))

	summary, err := runner.Run(context.Background(), batchUnits(3))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
}

func TestBatchEmptyUnits(t *testing.T) {
	pool := newPool(t, 1)
	orch := orchestrate.New(pool, &unitGen{target: 5}, assemble.New(), &stubRenderer{}, fastConfig(5), nil)
	runner := orchestrate.NewRunner(orch, 1)

	summary, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, summary.Succeeded)
	assert.Zero(t, summary.Failed)
}
