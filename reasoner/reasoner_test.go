package reasoner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/rdf"
)

func taskQuads() []rdf.Quad {
	return []rdf.Quad{
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("ex:Task")},
		{Subject: rdf.IRI("ex:task2"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("ex:Task")},
	}
}

func TestRunAppliesRuleUntilFixpoint(t *testing.T) {
	rules := []Rule{
		{ID: "touch", Where: `{ ?x a <ex:Task> . }`, Then: `{ ?x <ex:touched> "true" . }`},
	}
	r := New(rules, 0)
	result := r.Run(context.Background(), taskQuads())

	require.True(t, result.Success)
	require.Equal(t, 2, result.Passes)
	require.Len(t, result.Output, 4)
}

func TestRunIsIdempotentOnAlreadyInferredState(t *testing.T) {
	rules := []Rule{
		{ID: "touch", Where: `{ ?x a <ex:Task> . }`, Then: `{ ?x <ex:touched> "true" . }`},
	}
	r := New(rules, 0)
	first := r.Run(context.Background(), taskQuads())
	second := r.Run(context.Background(), first.Output)

	require.True(t, second.Success)
	require.Equal(t, 1, second.Passes)
	require.Len(t, second.Output, len(first.Output))
}

func TestRunChainsDependentRules(t *testing.T) {
	rules := []Rule{
		{ID: "touch", Where: `{ ?x a <ex:Task> . }`, Then: `{ ?x <ex:touched> "true" . }`},
		{ID: "mark", Where: `{ ?x <ex:touched> "true" . }`, Then: `{ ?x <ex:marked> "true" . }`},
	}
	r := New(rules, 0)
	result := r.Run(context.Background(), taskQuads())

	require.True(t, result.Success)
	require.Len(t, result.Output, 6)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	input := taskQuads()
	original := append([]rdf.Quad{}, input...)
	rules := []Rule{
		{ID: "touch", Where: `{ ?x a <ex:Task> . }`, Then: `{ ?x <ex:touched> "true" . }`},
	}
	New(rules, 0).Run(context.Background(), input)

	require.Equal(t, original, input)
}

func TestRunStopsAtMaxPasses(t *testing.T) {
	rules := []Rule{
		{ID: "touch", Where: `{ ?x a <ex:Task> . }`, Then: `{ ?x <ex:touched> "true" . }`},
		{ID: "mark", Where: `{ ?x <ex:touched> "true" . }`, Then: `{ ?x <ex:marked> "true" . }`},
	}
	r := New(rules, 1)
	result := r.Run(context.Background(), taskQuads())

	require.True(t, result.Success)
	require.Equal(t, 1, result.Passes)
	require.Len(t, result.Output, 4)
}

func TestRunReportsErrorOnMalformedRule(t *testing.T) {
	rules := []Rule{
		{ID: "bad", Where: `{ ?x a <ex:Task> `, Then: `{ ?x <ex:touched> "true" . }`},
	}
	r := New(rules, 0)
	result := r.Run(context.Background(), taskQuads())

	require.False(t, result.Success)
	require.NotEmpty(t, result.Error)
}

func TestIsAvailableAlwaysTrue(t *testing.T) {
	r := New(nil, 0)
	require.True(t, r.IsAvailable(context.Background()))
}
