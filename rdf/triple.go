package rdf

import "fmt"

// DefaultGraph is the label used for the unnamed default graph.
const DefaultGraph = ""

// Triple is a subject/predicate/object statement in the default graph.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Quad is a Triple plus a named graph label. An empty Graph means the
// default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     string
}

// Triple drops the graph label.
func (q Quad) Triple() Triple {
	return Triple{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}
}

// WithGraph returns a Quad with the given graph label.
func (t Triple) WithGraph(graph string) Quad {
	return Quad{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object, Graph: graph}
}

func (q Quad) String() string {
	if q.Graph == "" {
		return fmt.Sprintf("%s %s %s .", q.Subject, q.Predicate, q.Object)
	}
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, IRI(q.Graph))
}

// Equal compares two quads by value.
func (q Quad) Equal(o Quad) bool {
	return q.Subject.Equal(o.Subject) && q.Predicate.Equal(o.Predicate) &&
		q.Object.Equal(o.Object) && q.Graph == o.Graph
}

// QuadDelta is the output of every kernel verb: the set of quads added and
// removed by a single verb invocation. Hermeticity (spec: at most 64 triples
// per delta, predicates drawn from a fixed whitelist) is enforced by the
// transaction manager at staging time, not here.
type QuadDelta struct {
	Additions []Quad
	Removals  []Quad
}

// Empty reports whether the delta has no additions and no removals.
func (d QuadDelta) Empty() bool {
	return len(d.Additions) == 0 && len(d.Removals) == 0
}

// Size is the total number of quads touched by the delta (additions plus
// removals), the quantity the hermeticity cap is measured against.
func (d QuadDelta) Size() int {
	return len(d.Additions) + len(d.Removals)
}

// Merge concatenates two deltas.
func (d QuadDelta) Merge(o QuadDelta) QuadDelta {
	return QuadDelta{
		Additions: append(append([]Quad{}, d.Additions...), o.Additions...),
		Removals:  append(append([]Quad{}, d.Removals...), o.Removals...),
	}
}

// Predicates returns the set of distinct predicate IRIs touched by the delta.
func (d QuadDelta) Predicates() map[string]struct{} {
	set := make(map[string]struct{})
	for _, q := range d.Additions {
		set[q.Predicate.Value] = struct{}{}
	}
	for _, q := range d.Removals {
		set[q.Predicate.Value] = struct{}{}
	}
	return set
}
