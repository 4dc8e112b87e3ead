package rdf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kgcengine/kgc/errs"
)

// ParseNTriples parses the N-Triples subset of Turtle: one "subject
// predicate object ." statement per (non-comment, non-blank) line, no
// prefixes, no collections, no nested blank node blocks. IRIs are
// <angle-bracketed>, blank nodes are _:label, literals are "..."
// optionally followed by ^^<datatype> or @lang.
func ParseNTriples(data []byte) ([]Triple, error) {
	var out []Triple
	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSuffix(line, ".")
		line = strings.TrimSpace(line)
		toks, err := tokenizeStatement(line)
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d", i+1), err)
		}
		if len(toks) != 3 {
			return nil, errs.ParseError(fmt.Sprintf("line %d: expected subject predicate object", i+1), nil)
		}
		s, err := parseTerm(toks[0])
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d subject", i+1), err)
		}
		p, err := parseTerm(toks[1])
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d predicate", i+1), err)
		}
		o, err := parseTerm(toks[2])
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d object", i+1), err)
		}
		out = append(out, Triple{Subject: s, Predicate: p, Object: o})
	}
	return out, nil
}

// ParseTurtle parses a small Turtle subset: @prefix declarations, the `a`
// keyword for rdf:type, and prefixed names (prefix:local), in addition to
// everything ParseNTriples accepts. Multi-statement subjects using ';' or
// ',' are not supported — each statement is one full triple per line.
func ParseTurtle(data []byte) ([]Triple, error) {
	prefixes := map[string]string{}
	var out []Triple
	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@prefix") {
			if err := parsePrefixLine(line, prefixes); err != nil {
				return nil, errs.ParseError(fmt.Sprintf("line %d", i+1), err)
			}
			continue
		}
		line = strings.TrimSuffix(strings.TrimSpace(line), ".")
		toks, err := tokenizeStatement(line)
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d", i+1), err)
		}
		if len(toks) != 3 {
			return nil, errs.ParseError(fmt.Sprintf("line %d: expected subject predicate object", i+1), nil)
		}
		if toks[1] == "a" {
			toks[1] = "<" + RDFType + ">"
		}
		s, err := parseTermWithPrefixes(toks[0], prefixes)
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d subject", i+1), err)
		}
		p, err := parseTermWithPrefixes(toks[1], prefixes)
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d predicate", i+1), err)
		}
		o, err := parseTermWithPrefixes(toks[2], prefixes)
		if err != nil {
			return nil, errs.ParseError(fmt.Sprintf("line %d object", i+1), err)
		}
		out = append(out, Triple{Subject: s, Predicate: p, Object: o})
	}
	return out, nil
}

func parsePrefixLine(line string, prefixes map[string]string) error {
	// @prefix ex: <http://example.org/> .
	line = strings.TrimPrefix(line, "@prefix")
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return fmt.Errorf("malformed @prefix directive")
	}
	name := strings.TrimSuffix(fields[0], ":")
	iri := strings.Trim(fields[1], "<>")
	prefixes[name] = iri
	return nil
}

// tokenizeStatement splits a single triple statement into exactly three
// whitespace-delimited tokens, respecting quoted literals so embedded spaces
// in literal values are not treated as token boundaries.
func tokenizeStatement(line string) ([]string, error) {
	var toks []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && (i == 0 || line[i-1] != '\\'):
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ' ' && !inQuote:
			if cur.Len() > 0 {
				toks = append(toks, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		toks = append(toks, cur.String())
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated literal")
	}
	// Literal objects may be followed by ^^<dt> or @lang without a space;
	// merge those back onto the literal token produced above if they were
	// split as a separate token by a stray space (defensive, rare case).
	return mergeLiteralSuffix(toks), nil
}

func mergeLiteralSuffix(toks []string) []string {
	var out []string
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if strings.HasSuffix(t, `"`) && i+1 < len(toks) &&
			(strings.HasPrefix(toks[i+1], "^^") || strings.HasPrefix(toks[i+1], "@")) {
			t = t + toks[i+1]
			i++
		}
		out = append(out, t)
	}
	return out
}

func parseTerm(tok string) (Term, error) {
	return parseTermWithPrefixes(tok, nil)
}

func parseTermWithPrefixes(tok string, prefixes map[string]string) (Term, error) {
	switch {
	case strings.HasPrefix(tok, "<") && strings.HasSuffix(tok, ">"):
		return IRI(tok[1 : len(tok)-1]), nil
	case strings.HasPrefix(tok, "_:"):
		return Blank(tok[2:]), nil
	case strings.HasPrefix(tok, `"`):
		return parseLiteralToken(tok)
	case prefixes != nil && strings.Contains(tok, ":"):
		parts := strings.SplitN(tok, ":", 2)
		base, ok := prefixes[parts[0]]
		if !ok {
			return Term{}, fmt.Errorf("unknown prefix %q", parts[0])
		}
		return IRI(base + parts[1]), nil
	default:
		return Term{}, fmt.Errorf("unrecognized term %q", tok)
	}
}

func parseLiteralToken(tok string) (Term, error) {
	// Find the closing quote, respecting escaped quotes.
	end := -1
	for i := 1; i < len(tok); i++ {
		if tok[i] == '"' && tok[i-1] != '\\' {
			end = i
			break
		}
	}
	if end == -1 {
		return Term{}, fmt.Errorf("unterminated literal %q", tok)
	}
	lexical := unescapeLiteral(tok[1:end])
	rest := tok[end+1:]
	switch {
	case strings.HasPrefix(rest, "^^"):
		dt := strings.Trim(rest[2:], "<>")
		return Literal(lexical, dt), nil
	case strings.HasPrefix(rest, "@"):
		return LangLiteral(lexical, rest[1:]), nil
	default:
		return Literal(lexical, XSDString), nil
	}
}

func unescapeLiteral(s string) string {
	replacer := strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t", `\r`, "\r")
	return replacer.Replace(s)
}

// SerializeNTriples renders quads as N-Triples (ignoring graph labels).
func SerializeNTriples(quads []Quad) []byte {
	var sb strings.Builder
	for _, q := range quads {
		sb.WriteString(q.Triple().String())
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}

// SerializeTriG renders quads grouped by named graph, TriG-style.
func SerializeTriG(quads []Quad) []byte {
	byGraph := map[string][]Quad{}
	var order []string
	for _, q := range quads {
		if _, ok := byGraph[q.Graph]; !ok {
			order = append(order, q.Graph)
		}
		byGraph[q.Graph] = append(byGraph[q.Graph], q)
	}
	var sb strings.Builder
	for _, g := range order {
		if g == DefaultGraph {
			for _, q := range byGraph[g] {
				sb.WriteString(q.Triple().String())
				sb.WriteByte('\n')
			}
			continue
		}
		sb.WriteString(IRI(g).String())
		sb.WriteString(" {\n")
		for _, q := range byGraph[g] {
			sb.WriteString("  ")
			sb.WriteString(q.Triple().String())
			sb.WriteByte('\n')
		}
		sb.WriteString("}\n")
	}
	return []byte(sb.String())
}

// ParseInt is a small helper used by the reasoner/shacl packages to read
// xsd:integer literal lexical forms.
func ParseInt(t Term) (int64, bool) {
	if t.Kind != KindLiteral {
		return 0, false
	}
	n, err := strconv.ParseInt(t.Value, 10, 64)
	return n, err == nil
}
