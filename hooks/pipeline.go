package hooks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kgcengine/kgc/cache"
	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/logging"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/receipts"
	"github.com/kgcengine/kgc/txn"
)

// defaultTimeout is execute_batch's per-hook budget when a hook does not
// override it.
const defaultTimeout = 100 * time.Millisecond

// Receiver is the minimal lockchain surface the pipeline needs to emit
// receipts, kept as an interface to avoid importing the concrete
// *receipts.Lockchain type everywhere a Pipeline is constructed in tests.
type Receiver interface {
	Append(ctx context.Context, r receipts.Receipt) (receipts.Receipt, error)
}

// Pipeline runs execute_batch over a Registry: per phase, in priority
// order, each fired hook runs under a timeout (Hook.Timeout, else
// Sandbox.TimeLimit, else 100ms), a failure is logged and sanitized into
// the receipt's error code, and a receipt is emitted. The hook's sandbox
// profile is not otherwise checked here (no CheckFileRead, CheckNetwork or
// CheckSubprocess call), and no tracing span is recorded.
type Pipeline struct {
	registry  *Registry
	lockchain Receiver
	cache     cache.Backend
	log       *logging.Context
	store     rdf.Store
	genFunc   func() uint64
}

// Config configures a Pipeline.
type Config struct {
	Registry   *Registry
	Lockchain  Receiver
	Cache      cache.Backend
	Log        *logging.Context
	Store      rdf.Store
	Generation func() uint64 // ontology generation, for condition cache scoping
}

// New constructs a hook execution Pipeline.
func New(cfg Config) *Pipeline {
	log := cfg.Log
	if log == nil {
		log = logging.NewContext(nil, nil)
	}
	genFunc := cfg.Generation
	if genFunc == nil {
		genFunc = func() uint64 { return 0 }
	}
	return &Pipeline{registry: cfg.Registry, lockchain: cfg.Lockchain, cache: cfg.Cache, log: log, store: cfg.Store, genFunc: genFunc}
}

// RunPhase adapts txn.HookContext into the pipeline's own Context and runs
// execute_batch for phase, stopping early on failure unless
// hctx.Metadata["stop_on_error"] is false. Satisfies txn.HookRunner, letting a
// *txn.Manager drive PRE_TRANSACTION/POST_COMMIT/POST_TRANSACTION directly
// through a Pipeline.
func (p *Pipeline) RunPhase(ctx context.Context, phase string, hctx txn.HookContext) error {
	stopOnError := true
	if v, ok := hctx.Metadata["stop_on_error"]; ok {
		if b, ok := v.(bool); ok {
			stopOnError = b
		}
	}
	metadata := hctx.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	local := &Context{TxnID: hctx.TxnID, Phase: Phase(phase), Metadata: metadata}
	err := p.ExecuteBatch(ctx, Phase(phase), local, p.store, p.genFunc(), stopOnError)
	if local.ShouldRollback() && err == nil {
		err = errs.PolicyViolation("hook requested rollback during " + phase)
	}
	return err
}

// ExecuteBatch is execute_batch(hooks, context, stop_on_error): the actual
// entry point callers (the engine's tick/txn wiring) use, kept distinct
// from RunPhase's narrower txn.HookRunner signature.
func (p *Pipeline) ExecuteBatch(ctx context.Context, phase Phase, hctx *Context, store rdf.Store, generation uint64, stopOnError bool) error {
	hooks := p.registry.ForPhase(phase)
	var firstErr error
	for _, h := range hooks {
		if firstErr != nil && stopOnError && phase != PhaseOnError {
			break
		}
		if err := p.invoke(ctx, h, hctx, store, generation); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// invoke runs one hook through the full wrapper stack.
func (p *Pipeline) invoke(ctx context.Context, h *Hook, hctx *Context, store rdf.Store, generation uint64) error {
	log := p.log.WithHook(h.ID)
	start := time.Now()

	fired, _, err := h.Condition.Evaluate(ctx, EvalContext{Store: store, Generation: generation, Cache: p.cache})
	if err != nil {
		p.emit(ctx, h, hctx, start, false, false, err, log)
		return err
	}
	if !fired {
		return nil
	}

	timeout := defaultTimeout
	switch {
	case h.Timeout > 0:
		timeout = time.Duration(h.Timeout) * time.Millisecond
	case h.Sandbox.TimeLimit > 0:
		timeout = h.Sandbox.TimeLimit
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- errs.HookTimeout("hook panicked")
			}
		}()
		done <- h.Handler(runCtx, hctx)
	}()

	select {
	case err := <-done:
		success := err == nil
		p.emit(ctx, h, hctx, start, true, success, err, log)
		return err
	case <-runCtx.Done():
		timeoutErr := errs.HookTimeout("hook " + h.ID + " exceeded its timeout")
		p.emit(ctx, h, hctx, start, true, false, timeoutErr, log)
		return timeoutErr
	}
}

func (p *Pipeline) emit(ctx context.Context, h *Hook, hctx *Context, start time.Time, fired, success bool, err error, log *logging.Context) {
	envelope := errs.Envelope{}
	if err != nil {
		envelope = errs.Sanitize(err)
		log.WithError(err).Warn("hook execution failed")
	}
	if p.lockchain == nil {
		return
	}
	r := receipts.Receipt{
		ID:         uuid.NewString(),
		HookID:     h.ID,
		Phase:      string(h.Phase),
		TxnID:      hctx.TxnID,
		Fired:      fired,
		Success:    success,
		ErrorCode:  envelope.Code,
		StartedAt:  start.UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	stamped, appendErr := p.lockchain.Append(ctx, r)
	if appendErr != nil {
		log.WithError(appendErr).Error("receipt emission failed")
		return
	}
	hctx.PriorReceipts = append(hctx.PriorReceipts, stamped)
}
