package sparqlite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

type parser struct {
	lex      *lexer
	lookbuf  *token
	prefixes map[string]string
}

func newParser(query string) *parser {
	return &parser{lex: newLexer(query), prefixes: map[string]string{}}
}

func (p *parser) peek() token {
	if p.lookbuf == nil {
		t := p.lex.next()
		p.lookbuf = &t
	}
	return *p.lookbuf
}

func (p *parser) advance() token {
	t := p.peek()
	p.lookbuf = nil
	return t
}

func (p *parser) expectPunct(s string) error {
	t := p.advance()
	if t.kind != tokPunct || t.text != s {
		return fmt.Errorf("expected %q, got %q", s, t.text)
	}
	return nil
}

func (p *parser) parsePrefixes() error {
	for p.peek().kind == tokKeyword && p.peek().text == "PREFIX" {
		p.advance()
		name := p.advance()
		iriTok := p.advance()
		if iriTok.kind != tokIRI {
			return fmt.Errorf("expected IRI after PREFIX %s:", name.text)
		}
		p.prefixes[strings.TrimSuffix(name.text, ":")] = iriTok.text
	}
	return nil
}

// ParseQuery parses query into one of *SelectQuery, *AskQuery,
// *ConstructQuery, *InsertDataQuery, *DeleteDataQuery, *DeleteInsertQuery.
func ParseQuery(query string) (interface{}, error) {
	p := newParser(query)
	if err := p.parsePrefixes(); err != nil {
		return nil, errs.ParseError("sparql prefixes", err)
	}
	kw := p.peek()
	if kw.kind != tokKeyword {
		return nil, errs.ParseError(fmt.Sprintf("expected query form keyword, got %q", kw.text), nil)
	}
	switch kw.text {
	case "SELECT":
		q, err := p.parseSelect()
		return q, wrapParse(err)
	case "ASK":
		q, err := p.parseAsk()
		return q, wrapParse(err)
	case "CONSTRUCT":
		q, err := p.parseConstruct()
		return q, wrapParse(err)
	case "INSERT":
		q, err := p.parseInsertData()
		return q, wrapParse(err)
	case "DELETE":
		q, err := p.parseDeleteForm()
		return q, wrapParse(err)
	default:
		return nil, errs.ParseError(fmt.Sprintf("unsupported query form %q", kw.text), nil)
	}
}

func wrapParse(err error) error {
	if err == nil {
		return nil
	}
	return errs.ParseError("sparql", err)
}

func (p *parser) parseSelect() (*SelectQuery, error) {
	p.advance() // SELECT
	q := &SelectQuery{}
	if p.peek().kind == tokKeyword && p.peek().text == "DISTINCT" {
		p.advance()
		q.Distinct = true
	}
	if p.peek().kind == tokPunct && p.peek().text == "*" {
		p.advance()
	} else {
		for p.peek().kind == tokVar {
			q.Vars = append(q.Vars, p.advance().text)
		}
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	group, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	q.Where = group
	p.parseSolutionModifiers(q)
	return q, nil
}

func (p *parser) expectKeyword(kw string) error {
	t := p.advance()
	if t.kind != tokKeyword || t.text != kw {
		return fmt.Errorf("expected %s, got %q", kw, t.text)
	}
	return nil
}

func (p *parser) parseSolutionModifiers(q *SelectQuery) {
	for {
		t := p.peek()
		if t.kind != tokKeyword {
			return
		}
		switch t.text {
		case "ORDER":
			p.advance()
			p.expectKeyword("BY")
			// consume order terms (variables) until LIMIT or EOF
			for p.peek().kind == tokVar {
				p.advance()
			}
		case "LIMIT":
			p.advance()
			n := p.advance()
			if v, err := strconv.Atoi(n.text); err == nil {
				q.Limit = v
			}
		default:
			return
		}
	}
}

func (p *parser) parseAsk() (*AskQuery, error) {
	p.advance() // ASK
	if p.peek().kind == tokKeyword && p.peek().text == "WHERE" {
		p.advance()
	}
	group, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	return &AskQuery{Where: group}, nil
}

func (p *parser) parseConstruct() (*ConstructQuery, error) {
	p.advance() // CONSTRUCT
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	tmpl, err := p.parseTriplePatterns()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	group, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	return &ConstructQuery{Template: tmpl, Where: group}, nil
}

func (p *parser) parseInsertData() (*InsertDataQuery, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("DATA"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	pats, err := p.parseTriplePatterns()
	if err != nil {
		return nil, err
	}
	quads, err := groundPatterns(pats)
	if err != nil {
		return nil, err
	}
	return &InsertDataQuery{Quads: quads}, nil
}

func (p *parser) parseDeleteForm() (interface{}, error) {
	p.advance() // DELETE
	if p.peek().kind == tokKeyword && p.peek().text == "DATA" {
		p.advance()
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		pats, err := p.parseTriplePatterns()
		if err != nil {
			return nil, err
		}
		quads, err := groundPatterns(pats)
		if err != nil {
			return nil, err
		}
		return &DeleteDataQuery{Quads: quads}, nil
	}
	// DELETE { ... } [INSERT { ... }] WHERE { ... }
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	delTmpl, err := p.parseTriplePatterns()
	if err != nil {
		return nil, err
	}
	var insTmpl []TriplePattern
	if p.peek().kind == tokKeyword && p.peek().text == "INSERT" {
		p.advance()
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		insTmpl, err = p.parseTriplePatterns()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	group, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	return &DeleteInsertQuery{DeleteTemplate: delTmpl, InsertTemplate: insTmpl, Where: group}, nil
}

func groundPatterns(pats []TriplePattern) ([]rdf.Quad, error) {
	quads := make([]rdf.Quad, 0, len(pats))
	for _, tp := range pats {
		if tp.S.isVar() || tp.P.isVar() || tp.O.isVar() {
			return nil, fmt.Errorf("DATA block must not contain variables")
		}
		quads = append(quads, rdf.Quad{Subject: tp.S.Term, Predicate: tp.P.Term, Object: tp.O.Term, Graph: tp.Graph})
	}
	return quads, nil
}

// parseGroup parses a "{ ... }" WHERE body.
func (p *parser) parseGroup() (Group, error) {
	if err := p.expectPunct("{"); err != nil {
		return Group{}, err
	}
	return p.parseGroupBody()
}

func (p *parser) parseGroupBody() (Group, error) {
	var g Group
	for {
		t := p.peek()
		if t.kind == tokPunct && t.text == "}" {
			p.advance()
			return g, nil
		}
		if t.kind == tokKeyword && t.text == "FILTER" {
			p.advance()
			f, err := p.parseFilter()
			if err != nil {
				return g, err
			}
			g.Filters = append(g.Filters, f)
			continue
		}
		if t.kind == tokKeyword && t.text == "OPTIONAL" {
			p.advance()
			sub, err := p.parseGroup()
			if err != nil {
				return g, err
			}
			g.Optionals = append(g.Optionals, sub)
			continue
		}
		pat, err := p.parseOneTriplePattern()
		if err != nil {
			return g, err
		}
		g.Patterns = append(g.Patterns, pat)
		if p.peek().kind == tokPunct && p.peek().text == "." {
			p.advance()
		}
	}
}

func (p *parser) parseTriplePatterns() ([]TriplePattern, error) {
	var pats []TriplePattern
	for {
		t := p.peek()
		if t.kind == tokPunct && t.text == "}" {
			p.advance()
			return pats, nil
		}
		pat, err := p.parseOneTriplePattern()
		if err != nil {
			return nil, err
		}
		pats = append(pats, pat)
		if p.peek().kind == tokPunct && p.peek().text == "." {
			p.advance()
		}
	}
}

func (p *parser) parseOneTriplePattern() (TriplePattern, error) {
	s, err := p.parseElement()
	if err != nil {
		return TriplePattern{}, err
	}
	pr, err := p.parseElement()
	if err != nil {
		return TriplePattern{}, err
	}
	o, err := p.parseElement()
	if err != nil {
		return TriplePattern{}, err
	}
	return TriplePattern{S: s, P: pr, O: o}, nil
}

func (p *parser) parseElement() (Element, error) {
	t := p.advance()
	switch t.kind {
	case tokVar:
		return Element{Var: t.text}, nil
	case tokIRI:
		return Element{Term: rdf.IRI(t.text)}, nil
	case tokBlank:
		return Element{Term: rdf.Blank(t.text)}, nil
	case tokLiteral:
		return Element{Term: literalTermFromToken(t)}, nil
	case tokPrefixedName:
		if t.text == "true" || t.text == "false" {
			return Element{Term: rdf.Literal(t.text, rdf.XSDBoolean)}, nil
		}
		iri, err := p.resolvePrefixed(t.text)
		if err != nil {
			return Element{}, err
		}
		return Element{Term: rdf.IRI(iri)}, nil
	case tokKeyword:
		if t.text == "A" {
			return Element{Term: rdf.IRI(rdf.RDFType)}, nil
		}
		return Element{}, fmt.Errorf("unexpected keyword %q in triple pattern", t.text)
	default:
		return Element{}, fmt.Errorf("unexpected token %q in triple pattern", t.text)
	}
}

func literalTermFromToken(t token) rdf.Term {
	if strings.HasPrefix(t.extra, "^^") {
		return rdf.Literal(t.text, strings.TrimPrefix(t.extra, "^^"))
	}
	if strings.HasPrefix(t.extra, "@") {
		return rdf.LangLiteral(t.text, strings.TrimPrefix(t.extra, "@"))
	}
	return rdf.Literal(t.text, rdf.XSDString)
}

func (p *parser) resolvePrefixed(name string) (string, error) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed prefixed name %q", name)
	}
	base, ok := p.prefixes[parts[0]]
	if !ok {
		return "", fmt.Errorf("unknown prefix %q", parts[0])
	}
	return base + parts[1], nil
}

func (p *parser) parseFilter() (Filter, error) {
	if err := p.expectPunct("("); err != nil {
		return Filter{}, err
	}
	// BOUND(?x)
	if p.peek().kind == tokPrefixedName && strings.EqualFold(p.peek().text, "BOUND") {
		p.advance()
		p.expectPunct("(")
		v := p.advance()
		p.expectPunct(")")
		p.expectPunct(")")
		return Filter{Bound: v.text}, nil
	}
	left := p.advance()
	if left.kind != tokVar {
		return Filter{}, fmt.Errorf("FILTER must start with a variable")
	}
	opTok := p.advance()
	op, err := parseCompareOp(opTok.text)
	if err != nil {
		return Filter{}, err
	}
	right := p.advance()
	f := Filter{LeftVar: left.text, Op: op}
	if right.kind == tokVar {
		f.RightVar = right.text
	} else {
		switch right.kind {
		case tokIRI:
			f.RightTerm = rdf.IRI(right.text)
		case tokLiteral:
			f.RightTerm = literalTermFromToken(right)
		case tokPrefixedName:
			iri, err := p.resolvePrefixed(right.text)
			if err != nil {
				return Filter{}, err
			}
			f.RightTerm = rdf.IRI(iri)
		default:
			return Filter{}, fmt.Errorf("unexpected FILTER right-hand token %q", right.text)
		}
		f.HasRight = true
	}
	if err := p.expectPunct(")"); err != nil {
		return Filter{}, err
	}
	return f, nil
}

func parseCompareOp(s string) (CompareOp, error) {
	switch s {
	case "=":
		return OpEq, nil
	case "!=":
		return OpNeq, nil
	case "<":
		return OpLt, nil
	case "<=":
		return OpLte, nil
	case ">":
		return OpGt, nil
	case ">=":
		return OpGte, nil
	default:
		return 0, fmt.Errorf("unsupported FILTER operator %q", s)
	}
}
