package sparqlite

import (
	"testing"

	"github.com/kgcengine/kgc/rdf"
	"github.com/stretchr/testify/require"
)

func sampleQuads() []rdf.Quad {
	return []rdf.Quad{
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("ex:Task")},
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Enabled", rdf.XSDString)},
		{Subject: rdf.IRI("ex:task2"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("ex:Task")},
		{Subject: rdf.IRI("ex:task2"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Completed", rdf.XSDString)},
	}
}

func TestSelectBasic(t *testing.T) {
	eng := NewEngine(sampleQuads())
	rs, err := eng.Select(`SELECT ?task ?status WHERE { ?task <ex:status> ?status . }`)
	require.NoError(t, err)
	require.Len(t, rs.Bindings, 2)
}

func TestSelectWithFilter(t *testing.T) {
	eng := NewEngine(sampleQuads())
	rs, err := eng.Select(`SELECT ?task WHERE { ?task <ex:status> ?status . FILTER(?status = "Enabled") }`)
	require.NoError(t, err)
	require.Len(t, rs.Bindings, 1)
	require.Equal(t, "ex:task1", rs.Bindings[0]["task"].Value)
}

func TestAsk(t *testing.T) {
	eng := NewEngine(sampleQuads())
	ok, err := eng.Ask(`ASK WHERE { ?s <ex:status> "Completed" . }`)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConstruct(t *testing.T) {
	eng := NewEngine(sampleQuads())
	quads, err := eng.Construct(`CONSTRUCT { ?task <ex:seen> "true" . } WHERE { ?task a <ex:Task> . }`)
	require.NoError(t, err)
	require.Len(t, quads, 2)
}

func TestUpdateDeleteInsert(t *testing.T) {
	eng := NewEngine(sampleQuads())
	delta, err := eng.Update(`DELETE { ?task <ex:status> ?status . } INSERT { ?task <ex:status> "Archived" . } WHERE { ?task <ex:status> ?status . FILTER(?status = "Completed") }`)
	require.NoError(t, err)
	require.Len(t, delta.Removals, 1)
	require.Len(t, delta.Additions, 1)
	require.Equal(t, "Archived", delta.Additions[0].Object.Value)
}

func TestInsertData(t *testing.T) {
	eng := NewEngine(nil)
	delta, err := eng.Update(`INSERT DATA { <ex:a> <ex:p> "v" . }`)
	require.NoError(t, err)
	require.Len(t, delta.Additions, 1)
}
