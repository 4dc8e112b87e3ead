// Package tick implements the tick executor and convergence runner: one
// application of physics is dump -> reason -> reload -> delta-compute ->
// PhysicsResult, repeated by run_to_completion until convergence. Grounded
// on statemanager.Manager's StartOperation/CompleteOperation lifecycle
// bookkeeping and coordinator/phases.go's transition-table discipline,
// adapted here to tick/convergence bookkeeping instead of HTTP-operation
// or workflow-phase bookkeeping.
package tick

import (
	"context"
	"time"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/logging"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/reasoner"
	"github.com/kgcengine/kgc/txn"
)

// PhysicsResult is the engine's per-tick output (spec.md §6).
type PhysicsResult struct {
	TickNumber    uint64
	DurationMs    int64
	TriplesBefore int
	TriplesAfter  int
	Delta         int64
	Converged     bool
}

// KernelRunner applies a single subject's resolved verb to the store and
// returns its delta, kept as an interface here so tick does not import
// kernel directly and create an import cycle through txn/hooks wiring at
// the engine layer.
type KernelRunner interface {
	ResolveAndExecute(ctx context.Context, store rdf.Store, subject string) (rdf.QuadDelta, error)
}

// Executor runs ticks against a store and a reasoner, driving kernel verb
// execution for the subjects the caller names as active this tick.
type Executor struct {
	store    rdf.Store
	reasoner *reasoner.Reasoner
	kernel   KernelRunner
	txns     *txn.Manager
	log      *logging.Context
	tickNum  uint64
}

// New constructs a tick Executor. txns may be nil, in which case
// kernel-driven deltas are applied to the store directly instead of being
// staged through a transaction — used by tests that don't need the
// hook/SHACL pipeline a full Manager drives.
func New(store rdf.Store, r *reasoner.Reasoner, k KernelRunner, txns *txn.Manager, log *logging.Context) *Executor {
	if log == nil {
		log = logging.NewContext(nil, nil)
	}
	return &Executor{store: store, reasoner: r, kernel: k, txns: txns, log: log}
}

// ExecuteTick performs one tick: snapshot, reason, reload, optionally apply
// kernel deltas for activeSubjects, snapshot again, report delta.
func (e *Executor) ExecuteTick(ctx context.Context, activeSubjects []string) (PhysicsResult, error) {
	start := time.Now()
	e.tickNum++
	log := e.log.WithTick(e.tickNum)

	before, err := e.store.Stats(ctx)
	if err != nil {
		return PhysicsResult{}, errs.StoreOperationError("stats before tick", err)
	}

	if !e.reasoner.IsAvailable(ctx) {
		return PhysicsResult{}, errs.ReasonerError("reasoner unavailable", nil)
	}

	stateQuads, err := e.store.AllQuads(ctx)
	if err != nil {
		return PhysicsResult{}, errs.StoreOperationError("dump store", err)
	}

	result := e.reasoner.Run(ctx, stateQuads)
	if !result.Success {
		log.WithError(errs.ReasonerError(result.Error, nil)).Error("reasoner failed")
		return PhysicsResult{}, errs.ReasonerError(result.Error, nil)
	}

	if err := e.store.AddQuads(ctx, newQuads(stateQuads, result.Output)); err != nil {
		return PhysicsResult{}, errs.StoreOperationError("reload reasoner output", err)
	}

	var kernelDelta rdf.QuadDelta
	for _, subject := range activeSubjects {
		if e.kernel == nil {
			continue
		}
		d, err := e.kernel.ResolveAndExecute(ctx, e.store, subject)
		if err != nil {
			return PhysicsResult{}, err
		}
		kernelDelta = kernelDelta.Merge(d)
	}

	if !kernelDelta.Empty() {
		if err := e.applyKernelDelta(ctx, kernelDelta); err != nil {
			return PhysicsResult{}, err
		}
	}

	after, err := e.store.Stats(ctx)
	if err != nil {
		return PhysicsResult{}, errs.StoreOperationError("stats after tick", err)
	}

	delta := int64(after.TripleCount) - int64(before.TripleCount)
	pr := PhysicsResult{
		TickNumber:    e.tickNum,
		DurationMs:    time.Since(start).Milliseconds(),
		TriplesBefore: before.TripleCount,
		TriplesAfter:  after.TripleCount,
		Delta:         delta,
		Converged:     delta == 0,
	}
	log.WithFields(map[string]interface{}{
		"delta":      delta,
		"duration_ms": pr.DurationMs,
	}).Debug("tick complete")
	return pr, nil
}

// applyKernelDelta lands the kernel-computed delta for this tick's active
// subjects, per spec.md §4.6 step 4 ("apply kernel-driven deltas ... under
// a fresh transaction"). With a Manager wired, the delta is staged,
// prepared, and committed as one transaction, gated by hermeticity, SHACL
// validation, and the hook pipeline; without one it is applied directly.
func (e *Executor) applyKernelDelta(ctx context.Context, delta rdf.QuadDelta) error {
	if e.txns == nil {
		if err := e.store.AddQuads(ctx, delta.Additions); err != nil {
			return errs.StoreOperationError("apply kernel additions", err)
		}
		if err := e.store.RemoveQuads(ctx, delta.Removals); err != nil {
			return errs.StoreOperationError("apply kernel removals", err)
		}
		return nil
	}

	t := e.txns.Begin("tick-executor", "kernel-driven delta")
	if err := e.txns.Stage(t.ID, delta); err != nil {
		e.txns.Abort(t.ID, err.Error())
		return err
	}
	if err := e.txns.Prepare(ctx, t.ID); err != nil {
		return err
	}
	return e.txns.Commit(ctx, t.ID)
}

func newQuads(before, after []rdf.Quad) []rdf.Quad {
	seen := make(map[string]bool, len(before))
	for _, q := range before {
		seen[q.String()] = true
	}
	var out []rdf.Quad
	for _, q := range after {
		if !seen[q.String()] {
			out = append(out, q)
		}
	}
	return out
}

// RunToCompletion calls ExecuteTick repeatedly until converged or maxTicks
// is reached. maxTicks == 0 on an unconverged workflow fails immediately.
func RunToCompletion(ctx context.Context, e *Executor, activeSubjects []string, maxTicks int) ([]PhysicsResult, error) {
	if maxTicks == 0 {
		return nil, errs.ConvergenceError(errs.ConvergenceInfo{MaxTicks: 0, FinalDelta: 1})
	}
	var results []PhysicsResult
	for i := 0; i < maxTicks; i++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		pr, err := e.ExecuteTick(ctx, activeSubjects)
		if err != nil {
			return results, err
		}
		results = append(results, pr)
		if pr.Converged {
			return results, nil
		}
	}
	final := results[len(results)-1]
	return results, errs.ConvergenceError(errs.ConvergenceInfo{MaxTicks: maxTicks, FinalDelta: int(final.Delta)})
}
