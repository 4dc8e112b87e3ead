package kernel

import (
	"context"
	"strconv"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/semdriver"
)

// Transmute changes status on subject and moves activation to a single
// successor — sequence, simple merge, implicit termination, structured
// loop head.
func Transmute(ctx context.Context, store rdf.Store, subject string, tc TemplateContext, cfg *semdriver.VerbConfig) (rdf.QuadDelta, error) {
	return executeTemplate(ctx, store, cfg.ExecutionTemplate, tc)
}

// Copy instantiates tokens on N successors, N computed by
// cardinality_template, materializing MIInstance nodes via
// instance_generation when the pattern is a multiple-instance one.
func Copy(ctx context.Context, store rdf.Store, subject string, tc TemplateContext, cfg *semdriver.VerbConfig) (rdf.QuadDelta, error) {
	rs, err := runSelect(ctx, store, cfg.CardinalityTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	n, err := extractCardinality(rs)
	if err != nil {
		return rdf.QuadDelta{}, err
	}

	var delta rdf.QuadDelta
	if cfg.InstanceGeneration != "" {
		for i := 0; i < n; i++ {
			iterTC := tc
			iterTC.Iterator = strconv.Itoa(i)
			d, err := executeTemplate(ctx, store, cfg.InstanceGeneration, iterTC)
			if err != nil {
				return rdf.QuadDelta{}, err
			}
			delta = delta.Merge(d)
		}
	}
	d, err := executeTemplate(ctx, store, cfg.ExecutionTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	return delta.Merge(d), nil
}

func extractCardinality(rs rdf.ResultSet) (int, error) {
	if rs.Empty() {
		return 0, errs.CompletenessViolation("cardinality_template returned no binding")
	}
	for _, v := range rs.Bindings[0] {
		if n, ok := rdf.ParseInt(v); ok {
			return int(n), nil
		}
	}
	return 0, errs.CompletenessViolation("cardinality_template did not bind an integer")
}

// Filter runs selection_template to produce kgc:selectedFlow triples, then
// activates only the selected successors. Supports exactlyOne, oneOrMore,
// deferred, mutex, loop-condition, and authorized-selection semantics —
// all of which live in the ontology's selection_template, not in Go.
func Filter(ctx context.Context, store rdf.Store, subject string, tc TemplateContext, cfg *semdriver.VerbConfig) (rdf.QuadDelta, error) {
	selection, err := executeTemplate(ctx, store, cfg.SelectionTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	activation, err := executeTemplate(ctx, store, cfg.ExecutionTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	return selection.Merge(activation), nil
}

// Await evaluates threshold_template; if true, it fires (optionally
// clearing incoming tokens per reset_on_fire). completion_template
// distinguishes waitAll/Active/First/Quorum/Milestone/Signal/Callback —
// again, ontology-driven, never branched on in Go.
func Await(ctx context.Context, store rdf.Store, subject string, tc TemplateContext, cfg *semdriver.VerbConfig) (rdf.QuadDelta, error) {
	fire, err := runAsk(ctx, store, cfg.ThresholdTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	if !fire {
		return rdf.QuadDelta{}, nil
	}
	completion, err := executeTemplate(ctx, store, cfg.CompletionTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	if !cfg.ResetOnFire {
		return completion, nil
	}
	reset, err := executeTemplate(ctx, store, cfg.ExecutionTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	return completion.Merge(reset), nil
}

// Void enumerates the cancellation scope via cancellation_template (a
// SELECT), removing tokens and dependent state for every target and
// setting its status to Cancelled.
func Void(ctx context.Context, store rdf.Store, subject string, tc TemplateContext, cfg *semdriver.VerbConfig) (rdf.QuadDelta, error) {
	rs, err := runSelect(ctx, store, cfg.CancellationTemplate, tc)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	var targets []string
	for _, b := range rs.Bindings {
		for _, t := range b {
			if t.Kind == rdf.KindIRI {
				targets = append(targets, t.Value)
			}
		}
	}
	tc.Targets = targets

	// cancellation_template only enumerates the scope; the actual token and
	// dependent-state removal plus the Cancelled status assertion is the
	// execution_template, parameterized by %TARGETS%; it removes triples
	// only when written as an update form (DELETE ... INSERT ... WHERE or
	// DELETE DATA), since a CONSTRUCT yields additions only — kept
	// ontology-driven rather than hand-assembled here so a pack can change
	// what "cancelled" removes without a kernel code change.
	return executeTemplate(ctx, store, cfg.ExecutionTemplate, tc)
}
