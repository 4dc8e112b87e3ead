package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/engineconfig"
	"github.com/kgcengine/kgc/rdf"
)

func TestNewAssemblesInMemoryEngine(t *testing.T) {
	cfg := engineconfig.Default()
	eng, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, eng)
	t.Cleanup(func() { _ = eng.Close() })

	require.NotNil(t, eng.Store)
	require.NotNil(t, eng.Driver)
	require.NotNil(t, eng.Ticker)
	require.NotNil(t, eng.Txns)
	require.NotNil(t, eng.Lockchain)
	require.NotNil(t, eng.Validator)
	require.NotNil(t, eng.Policies)
	require.NotNil(t, eng.Cache)
}

func TestEngineTickRecordsHistory(t *testing.T) {
	cfg := engineconfig.Default()
	eng, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	pr, err := eng.Tick(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), pr.TickNumber)

	recent := eng.Recent(10)
	require.Len(t, recent, 1)
	require.Equal(t, pr, recent[0])
}

func TestEngineRecentClampsToAvailableHistory(t *testing.T) {
	cfg := engineconfig.Default()
	eng, err := New(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	_, err = eng.Tick(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, eng.Recent(100), 1)
	require.Len(t, eng.Recent(0), 1)
}

func TestEngineSeedsOntologyQuads(t *testing.T) {
	cfg := engineconfig.Default()
	seed := []rdf.Quad{
		{Subject: rdf.IRI("ex:PatternA"), Predicate: rdf.IRI("rdf:type"), Object: rdf.IRI("kgc:Pattern")},
	}
	eng, err := New(context.Background(), cfg, seed, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	require.NotZero(t, eng.Ontology.Generation())
	require.Len(t, eng.Ontology.Quads(), 1)
}
