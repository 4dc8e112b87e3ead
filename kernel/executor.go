// Package kernel implements the engine's five-verb kernel (Transmute, Copy,
// Filter, Await, Void) as pure functions over a store snapshot, plus the
// generic template executor every verb is built on. Grounded on
// semantic/executor/executor.go's priority-ordered Registry/Executor
// dispatch shape, generalized here from action execution to verb
// execution: verbs differ only in which templates they invoke.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/semdriver"
)

// TemplateContext supplies the values substituted into every template the
// kernel executes, per the placeholder set in spec.md §3/§6.
type TemplateContext struct {
	Subject string
	TxID    string
	Targets []string
	Now     time.Time
	// Iterator and PredicateEval are verb-specific and filled in by the
	// caller when a template needs them (Copy's MI iteration variable,
	// Filter's predicate-evaluation expression).
	Iterator      string
	PredicateEval string
}

// NewTemplateContext builds a TemplateContext with a fresh transaction id
// and the current time.
func NewTemplateContext(subject string) TemplateContext {
	return TemplateContext{Subject: subject, TxID: uuid.NewString(), Now: time.Now().UTC()}
}

// substitute performs the placeholder substitution the generic executor
// contract names: %SUBJECT%, %TX_ID%, %TARGETS%, %NOW%, %ITERATOR%,
// %PREDICATE_EVAL%.
func substitute(template string, tc TemplateContext) string {
	targets := make([]string, len(tc.Targets))
	for i, t := range tc.Targets {
		targets[i] = "<" + t + ">"
	}
	r := strings.NewReplacer(
		"%SUBJECT%", "<"+tc.Subject+">",
		"%TX_ID%", tc.TxID,
		"%TARGETS%", strings.Join(targets, " "),
		"%NOW%", "\""+tc.Now.Format(time.RFC3339Nano)+"\"^^<"+rdf.XSDDateTime+">",
		"%ITERATOR%", tc.Iterator,
		"%PREDICATE_EVAL%", tc.PredicateEval,
	)
	return r.Replace(template)
}

// queryForm returns the leading query-form keyword of a (possibly
// PREFIX-prefixed) SPARQL query: CONSTRUCT, DELETE, INSERT, SELECT, or ASK.
// executeTemplate uses this to route a template to the read-only CONSTRUCT
// path or the delta-with-removals Update path — a branch on SPARQL query
// syntax, not on an ontology parameter value.
func queryForm(query string) string {
	trimmed := strings.TrimSpace(query)
	for strings.HasPrefix(trimmed, "PREFIX") {
		idx := strings.Index(trimmed, ">")
		if idx == -1 {
			break
		}
		trimmed = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(trimmed[idx+1:]), "."))
	}
	for _, kw := range []string{"CONSTRUCT", "DELETE", "INSERT", "SELECT", "ASK"} {
		if strings.HasPrefix(trimmed, kw) {
			return kw
		}
	}
	return ""
}

// executeTemplate is `_execute_template(template, bindings)`: substitute,
// run, and package the result as a QuadDelta. The template's query form
// (SELECT/ASK/CONSTRUCT/an update form) determines how its result is
// interpreted — selects and asks never themselves produce deltas. CONSTRUCT
// yields additions only; DELETE {...} INSERT {...} WHERE {...} and DELETE
// DATA / INSERT DATA go through Store.Update so a template can produce
// Removals (Void's token teardown, Await's reset_on_fire, Filter's
// non-taken-branch deselection).
func executeTemplate(ctx context.Context, store rdf.Store, template string, tc TemplateContext) (rdf.QuadDelta, error) {
	if strings.TrimSpace(template) == "" {
		return rdf.QuadDelta{}, errs.CompletenessViolation("missing required template")
	}
	query := substitute(template, tc)
	switch queryForm(query) {
	case "DELETE", "INSERT":
		delta, err := store.Update(ctx, query)
		if err != nil {
			return rdf.QuadDelta{}, errs.ReasonerError("template execution", err)
		}
		return delta, nil
	default:
		quads, err := store.Construct(ctx, query)
		if err != nil {
			return rdf.QuadDelta{}, errs.ReasonerError("template execution", err)
		}
		return rdf.QuadDelta{Additions: quads}, nil
	}
}

// runSelect substitutes and runs a SELECT template, for verbs that need a
// bound value (Copy's cardinality, e.g.) rather than a constructed delta.
func runSelect(ctx context.Context, store rdf.Store, template string, tc TemplateContext) (rdf.ResultSet, error) {
	if strings.TrimSpace(template) == "" {
		return rdf.ResultSet{}, errs.CompletenessViolation("missing required template")
	}
	query := substitute(template, tc)
	rs, err := store.Select(ctx, query)
	if err != nil {
		return rdf.ResultSet{}, errs.ReasonerError("template execution", err)
	}
	return rs, nil
}

// runAsk substitutes and runs an ASK template (Await's threshold check).
func runAsk(ctx context.Context, store rdf.Store, template string, tc TemplateContext) (bool, error) {
	if strings.TrimSpace(template) == "" {
		return false, errs.CompletenessViolation("missing required template")
	}
	query := substitute(template, tc)
	ok, err := store.Ask(ctx, query)
	if err != nil {
		return false, errs.ReasonerError("template execution", err)
	}
	return ok, nil
}

// Execute dispatches subject's resolved VerbConfig to the matching verb
// function. This is the kernel's only branch on *which* verb to run —
// never on the verb's parameter values, per spec.md §9.
func Execute(ctx context.Context, store rdf.Store, subject string, cfg *semdriver.VerbConfig) (rdf.QuadDelta, error) {
	if cfg == nil {
		return rdf.QuadDelta{}, nil
	}
	tc := NewTemplateContext(subject)
	switch cfg.Verb {
	case semdriver.VerbTransmute:
		return Transmute(ctx, store, subject, tc, cfg)
	case semdriver.VerbCopy:
		return Copy(ctx, store, subject, tc, cfg)
	case semdriver.VerbFilter:
		return Filter(ctx, store, subject, tc, cfg)
	case semdriver.VerbAwait:
		return Await(ctx, store, subject, tc, cfg)
	case semdriver.VerbVoid:
		return Void(ctx, store, subject, tc, cfg)
	default:
		return rdf.QuadDelta{}, errs.CompletenessViolation(fmt.Sprintf("unknown verb %q for subject %s", cfg.Verb, subject))
	}
}
