package rdfstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/rdf"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddQuadsAndAllQuadsRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	quads := []rdf.Quad{
		{Subject: rdf.IRI("ex:s"), Predicate: rdf.IRI("ex:p"), Object: rdf.Literal("hello", rdf.XSDString)},
		{Subject: rdf.IRI("ex:s"), Predicate: rdf.IRI("ex:q"), Object: rdf.IRI("ex:o"), Graph: "ex:g"},
	}
	require.NoError(t, s.AddQuads(ctx, quads))

	all, err := s.AllQuads(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRemoveQuadsDeletesMatchingQuad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	q := rdf.Quad{Subject: rdf.IRI("ex:s"), Predicate: rdf.IRI("ex:p"), Object: rdf.Literal("v", rdf.XSDString)}
	require.NoError(t, s.AddQuads(ctx, []rdf.Quad{q}))
	require.NoError(t, s.RemoveQuads(ctx, []rdf.Quad{q}))

	all, err := s.AllQuads(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestRemoveQuadsIgnoresMissingQuad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	q := rdf.Quad{Subject: rdf.IRI("ex:missing"), Predicate: rdf.IRI("ex:p"), Object: rdf.Literal("v", rdf.XSDString)}
	require.NoError(t, s.RemoveQuads(ctx, []rdf.Quad{q}))
}

func TestLoadTurtleAddsParsedTriples(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	data := []byte(`
@prefix ex: <http://example.org/> .
ex:task1 a ex:Task .
ex:task1 ex:status "Enabled" .
`)
	n, err := s.Load(ctx, "turtle", data, "")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	all, err := s.AllQuads(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	s := newStore(t)
	_, err := s.Load(context.Background(), "jsonld", []byte(`{}`), "")
	require.Error(t, err)
}

func TestSelectAskConstructAgainstStore(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("ex:Task")},
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Enabled", rdf.XSDString)},
	}))

	rs, err := s.Select(ctx, `SELECT ?task WHERE { ?task <ex:status> "Enabled" . }`)
	require.NoError(t, err)
	require.Len(t, rs.Bindings, 1)
	require.Equal(t, "ex:task1", rs.Bindings[0]["task"].Value)

	ok, err := s.Ask(ctx, `ASK WHERE { ?s <ex:status> "Enabled" . }`)
	require.NoError(t, err)
	require.True(t, ok)

	quads, err := s.Construct(ctx, `CONSTRUCT { ?t <ex:seen> "true" . } WHERE { ?t a <ex:Task> . }`)
	require.NoError(t, err)
	require.Len(t, quads, 1)
}

func TestStatsCountsTriplesAndNamedGraphs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:s1"), Predicate: rdf.IRI("ex:p"), Object: rdf.IRI("ex:o")},
		{Subject: rdf.IRI("ex:s2"), Predicate: rdf.IRI("ex:p"), Object: rdf.IRI("ex:o"), Graph: "ex:g1"},
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TripleCount)
	require.Equal(t, 1, stats.NamedGraphCount)
}

func TestSnapshotReflectsStateAtCaptureTime(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:s1"), Predicate: rdf.IRI("ex:p"), Object: rdf.IRI("ex:o")},
	}))

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, snap.TripleCount())

	require.NoError(t, s.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:s2"), Predicate: rdf.IRI("ex:p"), Object: rdf.IRI("ex:o")},
	}))

	require.Equal(t, 1, snap.TripleCount())

	all, err := s.AllQuads(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
