package sparqlite

import (
	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

// Update evaluates an update-form query (INSERT DATA, DELETE DATA, or
// DELETE {...} INSERT {...} WHERE {...}) against the engine's quad
// snapshot and returns the resulting QuadDelta. It does not mutate the
// snapshot itself — kernel.executeTemplate returns the delta, and the tick
// executor applies it to the live store (inside a transaction when a
// txn.Manager is wired).
func (e *Engine) Update(query string) (rdf.QuadDelta, error) {
	parsed, err := ParseQuery(query)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	switch q := parsed.(type) {
	case *InsertDataQuery:
		return rdf.QuadDelta{Additions: q.Quads}, nil
	case *DeleteDataQuery:
		return rdf.QuadDelta{Removals: q.Quads}, nil
	case *DeleteInsertQuery:
		rows := e.evalGroup(q.Where, []bindingRow{{}})
		var delta rdf.QuadDelta
		seenDel := map[string]bool{}
		seenIns := map[string]bool{}
		for _, row := range rows {
			for _, tp := range q.DeleteTemplate {
				if quad, ok := instantiate(tp, row); ok {
					key := quad.String()
					if !seenDel[key] {
						seenDel[key] = true
						delta.Removals = append(delta.Removals, quad)
					}
				}
			}
			for _, tp := range q.InsertTemplate {
				if quad, ok := instantiate(tp, row); ok {
					key := quad.String()
					if !seenIns[key] {
						seenIns[key] = true
						delta.Additions = append(delta.Additions, quad)
					}
				}
			}
		}
		return delta, nil
	default:
		return rdf.QuadDelta{}, errs.ParseError("expected an update-form query", nil)
	}
}
