package physics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/rdf"
)

func patternMappingQuads(id, name string, verb Verb) []rdf.Quad {
	s := rdf.IRI(id)
	return []rdf.Quad{
		{Subject: s, Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI(ClassPatternMapping)},
		{Subject: s, Predicate: rdf.IRI(PredName), Object: rdf.Literal(name, rdf.XSDString)},
		{Subject: s, Predicate: rdf.IRI(PredVerb), Object: rdf.Literal(string(verb), rdf.XSDString)},
	}
}

func TestNewIndexesPatternMappings(t *testing.T) {
	quads := patternMappingQuads("urn:kgc:pattern:1", "Sequence", VerbTransmute)
	o := New(quads)

	info, ok := o.GetPatternInfo("urn:kgc:pattern:1")
	require.True(t, ok)
	require.Equal(t, "Sequence", info.Name)
	require.Equal(t, VerbTransmute, info.Verb)
}

func TestNewIgnoresNonMappingSubjects(t *testing.T) {
	quads := []rdf.Quad{
		{Subject: rdf.IRI("urn:kgc:other"), Predicate: rdf.IRI(PredName), Object: rdf.Literal("not a pattern", rdf.XSDString)},
	}
	o := New(quads)
	_, ok := o.GetPatternInfo("urn:kgc:other")
	require.False(t, ok)
	require.Empty(t, o.ListPatterns())
}

func TestReloadIncrementsGeneration(t *testing.T) {
	o := New(nil)
	g1 := o.Generation()
	o.Reload(patternMappingQuads("urn:kgc:pattern:2", "Parallel Split", VerbCopy))
	g2 := o.Generation()
	require.Greater(t, g2, g1)

	info, ok := o.GetPatternInfo("urn:kgc:pattern:2")
	require.True(t, ok)
	require.Equal(t, VerbCopy, info.Verb)
}

func TestGetRuleSubsetFiltersByPatternID(t *testing.T) {
	quads := append(
		patternMappingQuads("urn:kgc:pattern:a", "A", VerbFilter),
		patternMappingQuads("urn:kgc:pattern:b", "B", VerbAwait)...,
	)
	o := New(quads)
	subset := o.GetRuleSubset(nil, []string{"urn:kgc:pattern:a"})
	require.Contains(t, subset, "pattern:a")
	require.NotContains(t, subset, "pattern:b")
}

func TestListPatternsReturnsAllMappings(t *testing.T) {
	quads := append(
		patternMappingQuads("urn:kgc:pattern:a", "A", VerbFilter),
		patternMappingQuads("urn:kgc:pattern:b", "B", VerbAwait)...,
	)
	o := New(quads)
	require.Len(t, o.ListPatterns(), 2)
}
