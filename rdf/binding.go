package rdf

// Binding is one SPARQL result row: a map of variable name (without the
// leading '?') to its bound term. Shaped after the RDF4J SPARQL Results JSON
// value object (type/value) the teacher's db.sparqlValue decodes.
type Binding map[string]Term

// ResultSet is the ordered set of variable names plus the rows bound to
// them, mirroring the teacher's sparqlResult/sparqlResponse wire shape so a
// remote-SPARQL adapter can share this contract with the embedded engine.
type ResultSet struct {
	Vars     []string
	Bindings []Binding
}

// Empty reports whether the result set has no rows.
func (rs ResultSet) Empty() bool { return len(rs.Bindings) == 0 }

// Column extracts the bound terms for one variable across all rows, in order.
func (rs ResultSet) Column(name string) []Term {
	out := make([]Term, 0, len(rs.Bindings))
	for _, b := range rs.Bindings {
		if t, ok := b[name]; ok {
			out = append(out, t)
		}
	}
	return out
}
