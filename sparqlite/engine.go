package sparqlite

import (
	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

// Engine evaluates parsed queries against a fixed snapshot of quads. A new
// Engine is built per read (rdfstore.Store.engine) since the underlying
// quad slice is immutable for the lifetime of the evaluation.
type Engine struct {
	quads []rdf.Quad
}

// NewEngine wraps a quad snapshot for querying.
func NewEngine(quads []rdf.Quad) *Engine {
	return &Engine{quads: quads}
}

type bindingRow map[string]rdf.Term

// Select evaluates a SELECT query string.
func (e *Engine) Select(query string) (rdf.ResultSet, error) {
	parsed, err := ParseQuery(query)
	if err != nil {
		return rdf.ResultSet{}, err
	}
	q, ok := parsed.(*SelectQuery)
	if !ok {
		return rdf.ResultSet{}, errs.ParseError("expected SELECT query", nil)
	}
	rows := e.evalGroup(q.Where, []bindingRow{{}})
	vars := q.Vars
	if len(vars) == 0 {
		vars = collectVars(q.Where)
	}
	rs := rdf.ResultSet{Vars: vars}
	seen := map[string]bool{}
	for _, r := range rows {
		b := rdf.Binding{}
		for _, v := range vars {
			if t, ok := r[v]; ok {
				b[v] = t
			}
		}
		if q.Distinct {
			key := bindingKey(b, vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		rs.Bindings = append(rs.Bindings, b)
		if q.Limit > 0 && len(rs.Bindings) >= q.Limit {
			break
		}
	}
	return rs, nil
}

func bindingKey(b rdf.Binding, vars []string) string {
	key := ""
	for _, v := range vars {
		key += v + "=" + b[v].String() + "|"
	}
	return key
}

// Ask evaluates an ASK query string.
func (e *Engine) Ask(query string) (bool, error) {
	parsed, err := ParseQuery(query)
	if err != nil {
		return false, err
	}
	q, ok := parsed.(*AskQuery)
	if !ok {
		return false, errs.ParseError("expected ASK query", nil)
	}
	rows := e.evalGroup(q.Where, []bindingRow{{}})
	return len(rows) > 0, nil
}

// Construct evaluates a CONSTRUCT query string and returns bound quads.
func (e *Engine) Construct(query string) ([]rdf.Quad, error) {
	parsed, err := ParseQuery(query)
	if err != nil {
		return nil, err
	}
	q, ok := parsed.(*ConstructQuery)
	if !ok {
		return nil, errs.ParseError("expected CONSTRUCT query", nil)
	}
	rows := e.evalGroup(q.Where, []bindingRow{{}})
	var out []rdf.Quad
	for _, row := range rows {
		for _, tp := range q.Template {
			quad, ok := instantiate(tp, row)
			if ok {
				out = append(out, quad)
			}
		}
	}
	return out, nil
}

func instantiate(tp TriplePattern, row bindingRow) (rdf.Quad, bool) {
	s, ok1 := resolveElement(tp.S, row)
	p, ok2 := resolveElement(tp.P, row)
	o, ok3 := resolveElement(tp.O, row)
	if !ok1 || !ok2 || !ok3 {
		return rdf.Quad{}, false
	}
	return rdf.Quad{Subject: s, Predicate: p, Object: o, Graph: tp.Graph}, true
}

func resolveElement(el Element, row bindingRow) (rdf.Term, bool) {
	if !el.isVar() {
		return el.Term, true
	}
	t, ok := row[el.Var]
	return t, ok
}

func collectVars(g Group) []string {
	seen := map[string]bool{}
	var out []string
	add := func(el Element) {
		if el.isVar() && !seen[el.Var] {
			seen[el.Var] = true
			out = append(out, el.Var)
		}
	}
	var walk func(Group)
	walk = func(grp Group) {
		for _, tp := range grp.Patterns {
			add(tp.S)
			add(tp.P)
			add(tp.O)
		}
		for _, opt := range grp.Optionals {
			walk(opt)
		}
	}
	walk(g)
	return out
}

// evalGroup joins a group's triple patterns (nested-loop join over e.quads),
// applies its filters, then left-joins each OPTIONAL sub-group.
func (e *Engine) evalGroup(g Group, in []bindingRow) []bindingRow {
	rows := in
	for _, tp := range g.Patterns {
		rows = e.joinPattern(rows, tp)
	}
	rows = applyFilters(rows, g.Filters)
	for _, opt := range g.Optionals {
		rows = e.leftJoinOptional(rows, opt)
	}
	return rows
}

func (e *Engine) joinPattern(in []bindingRow, tp TriplePattern) []bindingRow {
	var out []bindingRow
	for _, row := range in {
		for _, q := range e.quads {
			if tp.Graph != "" && q.Graph != tp.Graph {
				continue
			}
			next, ok := matchAndExtend(row, tp, q)
			if ok {
				out = append(out, next)
			}
		}
	}
	return out
}

func matchAndExtend(row bindingRow, tp TriplePattern, q rdf.Quad) (bindingRow, bool) {
	next := cloneRow(row)
	if !matchSlot(next, tp.S, q.Subject) {
		return nil, false
	}
	if !matchSlot(next, tp.P, q.Predicate) {
		return nil, false
	}
	if !matchSlot(next, tp.O, q.Object) {
		return nil, false
	}
	return next, true
}

func matchSlot(row bindingRow, el Element, val rdf.Term) bool {
	if !el.isVar() {
		return el.Term.Equal(val)
	}
	if bound, ok := row[el.Var]; ok {
		return bound.Equal(val)
	}
	row[el.Var] = val
	return true
}

func cloneRow(row bindingRow) bindingRow {
	next := make(bindingRow, len(row)+1)
	for k, v := range row {
		next[k] = v
	}
	return next
}

func (e *Engine) leftJoinOptional(in []bindingRow, opt Group) []bindingRow {
	var out []bindingRow
	for _, row := range in {
		matches := e.evalGroup(opt, []bindingRow{row})
		if len(matches) == 0 {
			out = append(out, row)
			continue
		}
		out = append(out, matches...)
	}
	return out
}

func applyFilters(in []bindingRow, filters []Filter) []bindingRow {
	if len(filters) == 0 {
		return in
	}
	var out []bindingRow
	for _, row := range in {
		ok := true
		for _, f := range filters {
			if !evalFilter(row, f) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, row)
		}
	}
	return out
}

func evalFilter(row bindingRow, f Filter) bool {
	if f.Bound != "" || f.NotBound {
		_, ok := row[f.Bound]
		return ok
	}
	left, ok := row[f.LeftVar]
	if !ok {
		return false
	}
	var right rdf.Term
	if f.RightVar != "" {
		r, ok := row[f.RightVar]
		if !ok {
			return false
		}
		right = r
	} else if f.HasRight {
		right = f.RightTerm
	} else {
		return false
	}
	return compareTerms(left, right, f.Op)
}

func compareTerms(a, b rdf.Term, op CompareOp) bool {
	if an, aok := rdf.ParseInt(a); aok {
		if bn, bok := rdf.ParseInt(b); bok {
			return compareNum(float64(an), float64(bn), op)
		}
	}
	switch op {
	case OpEq:
		return a.Equal(b)
	case OpNeq:
		return !a.Equal(b)
	case OpLt:
		return a.Value < b.Value
	case OpLte:
		return a.Value <= b.Value
	case OpGt:
		return a.Value > b.Value
	case OpGte:
		return a.Value >= b.Value
	default:
		return false
	}
}

func compareNum(a, b float64, op CompareOp) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpLt:
		return a < b
	case OpLte:
		return a <= b
	case OpGt:
		return a > b
	case OpGte:
		return a >= b
	default:
		return false
	}
}
