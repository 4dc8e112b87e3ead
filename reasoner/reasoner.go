// Package reasoner implements the monotonic N3-style forward chainer behind
// the engine's Reasoner port (SPEC_FULL.md §5 4.2a): repeatedly evaluate
// CONSTRUCT-shaped rules from a rules graph against a state graph until a
// pass produces no new triples, then return the union. It never mutates its
// inputs, matching the contract in spec.md §4.2.
package reasoner

import (
	"context"
	"time"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/sparqlite"
)

// Rule is one N3-style CONSTRUCT-shaped inference rule: for every binding of
// Where, assert Then.
type Rule struct {
	ID    string
	Where string // SPARQL WHERE-clause body, e.g. "{ ?x a <ex:Task> . }"
	Then  string // SPARQL CONSTRUCT template body, e.g. "{ ?x <ex:touched> true . }"
}

// Result is the reasoner's output for one invocation: the deductive closure
// plus bookkeeping the tick executor logs.
type Result struct {
	Output     []rdf.Quad
	Success    bool
	Error      string
	DurationMs int64
	Passes     int
}

// Reasoner evaluates a fixed rule set against arbitrary state graphs.
type Reasoner struct {
	rules    []Rule
	maxPasses int
}

// New constructs a Reasoner over rules, bounding forward-chaining passes at
// maxPasses (0 means unbounded — safe because N3 closure over a finite
// store is itself finite, but a bound guards against a malformed rule set
// that never reaches a fixpoint within a tick's time budget).
func New(rules []Rule, maxPasses int) *Reasoner {
	return &Reasoner{rules: rules, maxPasses: maxPasses}
}

// IsAvailable probes whether the reasoner can run at all. A from-scratch,
// in-process reasoner is always available; this exists to satisfy the port
// contract spec.md §4.2 requires ("is_available() probes external
// dependency") for remote/process-based reasoner implementations.
func (r *Reasoner) IsAvailable(context.Context) bool { return true }

// Run computes the deductive closure of stateQuads under r.rules, returning
// the union of stateQuads and all inferred quads. It does not mutate
// stateQuads.
func (r *Reasoner) Run(ctx context.Context, stateQuads []rdf.Quad) Result {
	start := time.Now()
	working := append([]rdf.Quad{}, stateQuads...)
	seen := quadSet(working)

	passes := 0
	for {
		if ctx.Err() != nil {
			return Result{Success: false, Error: ctx.Err().Error(), DurationMs: time.Since(start).Milliseconds(), Passes: passes}
		}
		if r.maxPasses > 0 && passes >= r.maxPasses {
			break
		}
		passes++
		eng := sparqlite.NewEngine(working)
		var newThisPass []rdf.Quad
		for _, rule := range r.rules {
			query := "CONSTRUCT " + rule.Then + " WHERE " + rule.Where
			inferred, err := eng.Construct(query)
			if err != nil {
				return Result{
					Success:    false,
					Error:      errs.ReasonerError("rule "+rule.ID, err).Error(),
					DurationMs: time.Since(start).Milliseconds(),
					Passes:     passes,
				}
			}
			for _, q := range inferred {
				key := q.String()
				if !seen[key] {
					seen[key] = true
					newThisPass = append(newThisPass, q)
				}
			}
		}
		if len(newThisPass) == 0 {
			break
		}
		working = append(working, newThisPass...)
	}

	return Result{
		Output:     working,
		Success:    true,
		DurationMs: time.Since(start).Milliseconds(),
		Passes:     passes,
	}
}

func quadSet(quads []rdf.Quad) map[string]bool {
	set := make(map[string]bool, len(quads))
	for _, q := range quads {
		set[q.String()] = true
	}
	return set
}
