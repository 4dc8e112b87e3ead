package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/rdfstore"
	"github.com/kgcengine/kgc/semdriver"
)

func TestTransmuteProducesDelta(t *testing.T) {
	store, err := rdfstore.Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("urn:task1"), Predicate: rdf.IRI("urn:kgc:status"), Object: rdf.Literal("Enabled", rdf.XSDString)},
	}))

	cfg := &semdriver.VerbConfig{
		Verb: semdriver.VerbTransmute,
		ExecutionTemplate: `CONSTRUCT { <urn:task1> <urn:kgc:status> "Active" . } WHERE { <urn:task1> <urn:kgc:status> "Enabled" . }`,
	}
	delta, err := Execute(ctx, store, "urn:task1", cfg)
	require.NoError(t, err)
	require.Len(t, delta.Additions, 1)
	require.Equal(t, "Active", delta.Additions[0].Object.Value)
}

func TestVoidProducesRemovalsViaUpdateTemplate(t *testing.T) {
	store, err := rdfstore.Open("")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("urn:task1"), Predicate: rdf.IRI("urn:kgc:hasToken"), Object: rdf.Literal("true", rdf.XSDString)},
	}))

	cfg := &semdriver.VerbConfig{
		Verb:                 semdriver.VerbVoid,
		CancellationTemplate: `SELECT ?x WHERE { <urn:task1> <urn:kgc:hasToken> ?x . }`,
		ExecutionTemplate:    `DELETE { <urn:task1> <urn:kgc:hasToken> ?x . } INSERT { <urn:task1> <urn:kgc:status> "Cancelled" . } WHERE { <urn:task1> <urn:kgc:hasToken> ?x . }`,
	}
	delta, err := Execute(ctx, store, "urn:task1", cfg)
	require.NoError(t, err)
	require.Len(t, delta.Removals, 1)
	require.Len(t, delta.Additions, 1)
	require.Equal(t, "Cancelled", delta.Additions[0].Object.Value)
}

func TestQueryFormSkipsLeadingPrefixClause(t *testing.T) {
	require.Equal(t, "DELETE", queryForm(`PREFIX ex: <http://example.org/> . DELETE DATA { <ex:a> <ex:p> "v" . }`))
	require.Equal(t, "CONSTRUCT", queryForm(`CONSTRUCT { ?s ?p ?o . } WHERE { ?s ?p ?o . }`))
	require.Equal(t, "INSERT", queryForm(`INSERT DATA { <ex:a> <ex:p> "v" . }`))
}

func TestExecuteNilConfigIsNoop(t *testing.T) {
	store, err := rdfstore.Open("")
	require.NoError(t, err)
	defer store.Close()

	delta, err := Execute(context.Background(), store, "urn:task1", nil)
	require.NoError(t, err)
	require.True(t, delta.Empty())
}
