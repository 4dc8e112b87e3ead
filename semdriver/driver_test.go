package semdriver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/physics"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/rdfstore"
)

func seedMapping(t *testing.T, store rdf.Store, mapping, prop, val, verb string) {
	t.Helper()
	err := store.AddQuads(context.Background(), []rdf.Quad{
		{Subject: rdf.IRI(mapping), Predicate: rdf.IRI(physics.PredTriggerProperty), Object: rdf.IRI(prop)},
		{Subject: rdf.IRI(mapping), Predicate: rdf.IRI(physics.PredTriggerValue), Object: rdf.Literal(val, rdf.XSDString)},
		{Subject: rdf.IRI(mapping), Predicate: rdf.IRI(physics.PredVerb), Object: rdf.Literal(verb, rdf.XSDString)},
	})
	require.NoError(t, err)
}

func TestResolveVerbReturnsNilForIdleSubject(t *testing.T) {
	store, err := rdfstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ontology := physics.New(nil)
	d, err := New(ontology, 16)
	require.NoError(t, err)

	cfg, err := d.ResolveVerb(context.Background(), store, "urn:kgc:subject:idle")
	require.NoError(t, err)
	require.Nil(t, cfg)
}

func TestResolveVerbMatchesTriggerShape(t *testing.T) {
	store, err := rdfstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seedMapping(t, store, "urn:kgc:mapping:1", "urn:kgc:status", "ready", string(physics.VerbTransmute))
	require.NoError(t, store.AddQuads(context.Background(), []rdf.Quad{
		{Subject: rdf.IRI("urn:kgc:subject:1"), Predicate: rdf.IRI("urn:kgc:status"), Object: rdf.Literal("ready", rdf.XSDString)},
	}))

	ontology := physics.New(nil)
	d, err := New(ontology, 16)
	require.NoError(t, err)

	cfg, err := d.ResolveVerb(context.Background(), store, "urn:kgc:subject:1")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, VerbTransmute, cfg.Verb)
}

func TestResolveVerbRejectsUnknownVerbLabel(t *testing.T) {
	store, err := rdfstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seedMapping(t, store, "urn:kgc:mapping:2", "urn:kgc:status", "broken", "NotAVerb")
	require.NoError(t, store.AddQuads(context.Background(), []rdf.Quad{
		{Subject: rdf.IRI("urn:kgc:subject:2"), Predicate: rdf.IRI("urn:kgc:status"), Object: rdf.Literal("broken", rdf.XSDString)},
	}))

	ontology := physics.New(nil)
	d, err := New(ontology, 16)
	require.NoError(t, err)

	_, err = d.ResolveVerb(context.Background(), store, "urn:kgc:subject:2")
	require.Error(t, err)
}

func TestNewRejectsNothingAndDefaultsCacheSize(t *testing.T) {
	d, err := New(physics.New(nil), 0)
	require.NoError(t, err)
	require.NotNil(t, d)
}
