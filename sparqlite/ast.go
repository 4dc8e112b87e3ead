package sparqlite

import "github.com/kgcengine/kgc/rdf"

// Element is one slot of a triple pattern: either a bound rdf.Term or an
// unbound variable name.
type Element struct {
	Var  string // non-empty when this slot is a variable
	Term rdf.Term
}

func (e Element) isVar() bool { return e.Var != "" }

// TriplePattern is a subject/predicate/object pattern, each slot variable or bound.
type TriplePattern struct {
	S, P, O Element
	Graph   string // "" means default graph or GRAPH ?g pattern target is unbound
}

// CompareOp is a FILTER comparison operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
)

// Filter is a simple binary comparison between a variable and a bound value,
// or between two variables — the subset of FILTER expressions the kernel's
// generated templates actually need.
type Filter struct {
	LeftVar   string
	RightVar  string // set when comparing two variables
	RightTerm rdf.Term
	HasRight  bool // RightTerm is valid when true and RightVar == ""
	Op        CompareOp
	Bound     string // set for FILTER(BOUND(?x)); other fields unused
	NotBound  bool
}

// Group is a WHERE clause body: a conjunction of triple patterns and
// filters, plus nested OPTIONAL groups (left-joined).
type Group struct {
	Patterns  []TriplePattern
	Filters   []Filter
	Optionals []Group
}

// SelectQuery is a parsed SELECT query.
type SelectQuery struct {
	Vars     []string // empty means SELECT *
	Distinct bool
	Where    Group
	Limit    int // 0 means unlimited
}

// AskQuery is a parsed ASK query.
type AskQuery struct {
	Where Group
}

// ConstructQuery is a parsed CONSTRUCT query.
type ConstructQuery struct {
	Template []TriplePattern
	Where    Group
}

// InsertDataQuery is a parsed INSERT DATA query: ground triples to add.
type InsertDataQuery struct {
	Quads []rdf.Quad
}

// DeleteDataQuery is a parsed DELETE DATA query: ground triples to remove.
type DeleteDataQuery struct {
	Quads []rdf.Quad
}

// DeleteInsertQuery is a parsed DELETE {...} INSERT {...} WHERE {...} update.
type DeleteInsertQuery struct {
	DeleteTemplate []TriplePattern
	InsertTemplate []TriplePattern
	Where          Group
}
