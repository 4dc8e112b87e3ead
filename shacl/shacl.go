// Package shacl implements the engine's four-law invariant validator:
// TYPING, HERMETICITY, CHRONOLOGY, COMPLETENESS. New SPEC_FULL.md surface,
// implemented as direct Go checks over the store's quads and the
// ontology's pattern index (no SPARQL queries), the way graph/dag.go's
// checkCycleManual falls back to direct traversal when no backing store
// offers a native check.
package shacl

import (
	"context"
	"fmt"
	"time"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/physics"
	"github.com/kgcengine/kgc/rdf"
)

// Law identifies one of the four invariants a Violation belongs to.
type Law string

const (
	LawTyping       Law = "TYPING"
	LawHermeticity  Law = "HERMETICITY"
	LawChronology   Law = "CHRONOLOGY"
	LawCompleteness Law = "COMPLETENESS"
)

// Violation is one failed check, carrying enough context to locate the
// offending subject without leaking internals (the message itself is
// sanitized before ever reaching a caller outside this process).
type Violation struct {
	Law     Law
	Subject string
	Message string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s violation on %s: %s", v.Law, v.Subject, v.Message)
}

// Config configures the validator's tunables.
type Config struct {
	PredicateWhitelist map[string]bool
	MaxBatchSize        int // default 64, mirrors txn.MaxHermeticQuads
}

// Validator runs the four laws against a store snapshot or a staged delta.
type Validator struct {
	ontology  *physics.Ontology
	whitelist map[string]bool
	maxBatch  int
}

// New constructs a shacl Validator.
func New(ontology *physics.Ontology, cfg Config) *Validator {
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = 64
	}
	return &Validator{ontology: ontology, whitelist: cfg.PredicateWhitelist, maxBatch: maxBatch}
}

// Validate runs all four laws against the store's current state and
// returns every violation found (not just the first).
func (v *Validator) Validate(ctx context.Context, store rdf.Store) []error {
	var violations []error
	quads, err := store.AllQuads(ctx)
	if err != nil {
		return []error{fmt.Errorf("shacl: dump store: %w", err)}
	}
	violations = append(violations, v.checkTyping(quads)...)
	violations = append(violations, v.checkChronology(quads)...)
	violations = append(violations, v.checkCompleteness(ctx, store)...)
	return violations
}

// ValidateDelta runs HERMETICITY against a staged delta and, when store is
// non-nil, the remaining three laws against the store's post-delta state —
// satisfying txn.Validator's ValidateDelta(ctx, store, delta) contract used
// at commit time.
func (v *Validator) ValidateDelta(ctx context.Context, store rdf.Store, delta rdf.QuadDelta) error {
	if violations := v.checkHermeticity(delta); len(violations) > 0 {
		return violations[0]
	}
	if store == nil {
		return nil
	}
	if violations := v.Validate(ctx, store); len(violations) > 0 {
		return violations[0]
	}
	return nil
}

// checkHermeticity enforces batch size <= maxBatch and predicate ⊆ whitelist.
func (v *Validator) checkHermeticity(delta rdf.QuadDelta) []error {
	var out []error
	if delta.Size() > v.maxBatch {
		out = append(out, errs.HermeticityViolation(fmt.Sprintf("staged batch of %d exceeds limit %d", delta.Size(), v.maxBatch)))
	}
	if v.whitelist == nil {
		return out
	}
	for pred := range delta.Predicates() {
		if !v.whitelist[pred] {
			out = append(out, errs.HermeticityViolation("predicate not in whitelist: "+pred))
		}
	}
	return out
}

// checkTyping requires every subject appearing in the quad set to have at
// least one rdf:type assertion.
func (v *Validator) checkTyping(quads []rdf.Quad) []error {
	typed := make(map[string]bool)
	subjects := make(map[string]bool)
	for _, q := range quads {
		subjects[q.Subject.Value] = true
		if q.Predicate.Value == rdf.RDFType {
			typed[q.Subject.Value] = true
		}
	}
	var out []error
	for s := range subjects {
		if !typed[s] {
			out = append(out, errs.TypingViolation("subject has no rdf:type: "+s))
		}
	}
	return out
}

// predStartedAt and predCompletedAt name the timestamp-bearing predicates
// checkChronology compares: completedAt must not precede startedAt on the
// same subject. No other ordering of timestamps is checked.
var (
	predStartedAt   = "urn:kgc:startedAt"
	predCompletedAt = "urn:kgc:completedAt"
)

// checkChronology ensures no subject's completedAt precedes its startedAt.
func (v *Validator) checkChronology(quads []rdf.Quad) []error {
	started := make(map[string]time.Time)
	completed := make(map[string]time.Time)
	for _, q := range quads {
		if q.Object.Kind != rdf.KindLiteral {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, q.Object.Value)
		if err != nil {
			continue
		}
		switch q.Predicate.Value {
		case predStartedAt:
			started[q.Subject.Value] = t
		case predCompletedAt:
			completed[q.Subject.Value] = t
		}
	}
	var out []error
	for subj, c := range completed {
		s, ok := started[subj]
		if ok && c.Before(s) {
			out = append(out, errs.ChronologyViolation("completedAt precedes startedAt for "+subj))
		}
	}
	return out
}

// checkCompleteness requires every pattern mapping in the ontology's index
// to name a verb. The templates of the parameter values a mapping
// references are not checked, and store is not consulted.
func (v *Validator) checkCompleteness(ctx context.Context, store rdf.Store) []error {
	if v.ontology == nil {
		return nil
	}
	var out []error
	for _, p := range v.ontology.ListPatterns() {
		if p.Verb == "" {
			out = append(out, errs.CompletenessViolation("pattern "+p.ID+" has no verb mapping"))
		}
	}
	return out
}
