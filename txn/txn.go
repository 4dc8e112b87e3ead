// Package txn implements the transaction manager wrapping every
// state-changing operation: begin/stage/prepare/commit/abort, enforcing
// HERMETICITY at staging time. Grounded on statemanager/manager.go's
// operation lifecycle bookkeeping (StartOperation/CompleteOperation,
// eviction at capacity) adapted from generic async-operation tracking to
// transaction state.
package txn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusOpen     Status = "Open"
	StatusPrepared Status = "Prepared"
	StatusCommitted Status = "Committed"
	StatusAborted  Status = "Aborted"
)

// MaxHermeticQuads is the hermeticity cap: at most this many quads (additions
// plus removals) may be staged in one transaction.
const MaxHermeticQuads = 64

// Txn is one transaction's bookkeeping record.
type Txn struct {
	ID          string
	Author      string
	Reason      string
	Status      Status
	StartedAt   time.Time
	CompletedAt *time.Time
	Staged      rdf.QuadDelta
	Error       string
}

// HookRunner is the subset of hooks.Pipeline the transaction manager needs,
// kept as an interface here to avoid an import cycle between txn and hooks
// (hooks imports txn for HookContext; *hooks.Pipeline satisfies this
// interface through its RunPhase method).
type HookRunner interface {
	RunPhase(ctx context.Context, phase string, hctx HookContext) error
}

// HookContext is the minimal hook-invocation context the transaction
// manager passes to PRE_TRANSACTION/POST_COMMIT/POST_TRANSACTION/ON_ERROR.
type HookContext struct {
	TxnID    string
	Delta    rdf.QuadDelta
	Metadata map[string]interface{}
}

// Validator runs the SHACL four-law validation gating commit.
type Validator interface {
	ValidateDelta(ctx context.Context, store rdf.Store, delta rdf.QuadDelta) error
}

// PredicateWhitelist restricts which predicates may appear in a staged
// delta, the other half of HERMETICITY besides the 64-quad size cap.
type PredicateWhitelist map[string]bool

// Manager tracks in-flight and recently-completed transactions and
// sequences their commit protocol against a store, a hook runner, and a
// SHACL validator.
type Manager struct {
	mu          sync.Mutex
	store       rdf.Store
	hooks       HookRunner
	validator   Validator
	whitelist   PredicateWhitelist
	txns        map[string]*Txn
	maxRetained int
}

// Config configures a new Manager.
type Config struct {
	Store       rdf.Store
	Hooks       HookRunner
	Validator   Validator
	Whitelist   PredicateWhitelist
	MaxRetained int // retain at most this many completed txns, default 1000
}

// New constructs a transaction Manager.
func New(cfg Config) *Manager {
	if cfg.MaxRetained == 0 {
		cfg.MaxRetained = 1000
	}
	return &Manager{
		store:       cfg.Store,
		hooks:       cfg.Hooks,
		validator:   cfg.Validator,
		whitelist:   cfg.Whitelist,
		txns:        make(map[string]*Txn),
		maxRetained: cfg.MaxRetained,
	}
}

// Begin opens a new transaction.
func (m *Manager) Begin(author, reason string) *Txn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.txns) >= m.maxRetained {
		m.evictOldestLocked()
	}

	t := &Txn{
		ID:        uuid.NewString(),
		Author:    author,
		Reason:    reason,
		Status:    StatusOpen,
		StartedAt: time.Now().UTC(),
	}
	m.txns[t.ID] = t
	return t
}

// Stage validates and attaches delta to an open transaction, enforcing
// HERMETICITY: batch size <= 64 and every predicate in the whitelist.
func (m *Manager) Stage(txnID string, delta rdf.QuadDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.txns[txnID]
	if !ok || t.Status != StatusOpen {
		return errs.StoreOperationError("stage: transaction not open", nil)
	}

	merged := t.Staged.Merge(delta)
	if merged.Size() > MaxHermeticQuads {
		return errs.HermeticityViolation("staged batch exceeds 64 triples")
	}
	if m.whitelist != nil {
		for pred := range merged.Predicates() {
			if !m.whitelist[pred] {
				return errs.HermeticityViolation("unknown predicate " + pred)
			}
		}
	}
	t.Staged = merged
	return nil
}

// Prepare runs PRE_TRANSACTION hooks; a veto (should_rollback in hook
// metadata, surfaced as an error here) aborts the transaction immediately.
func (m *Manager) Prepare(ctx context.Context, txnID string) error {
	t, err := m.get(txnID)
	if err != nil {
		return err
	}
	if m.hooks != nil {
		if err := m.hooks.RunPhase(ctx, "PRE_TRANSACTION", HookContext{TxnID: txnID, Delta: t.Staged}); err != nil {
			m.Abort(txnID, err.Error())
			return err
		}
	}
	m.mu.Lock()
	t.Status = StatusPrepared
	m.mu.Unlock()
	return nil
}

// Commit applies the staged delta to the store, runs POST_COMMIT and
// POST_TRANSACTION hooks, and validates SHACL invariants — rolling back on
// any failure.
func (m *Manager) Commit(ctx context.Context, txnID string) error {
	t, err := m.get(txnID)
	if err != nil {
		return err
	}
	if t.Status != StatusPrepared {
		return errs.StoreOperationError("commit: transaction not prepared", nil)
	}

	if err := m.store.AddQuads(ctx, t.Staged.Additions); err != nil {
		m.Abort(txnID, err.Error())
		return errs.StoreOperationError("commit: apply additions", err)
	}
	if err := m.store.RemoveQuads(ctx, t.Staged.Removals); err != nil {
		m.Abort(txnID, err.Error())
		return errs.StoreOperationError("commit: apply removals", err)
	}

	if m.validator != nil {
		if err := m.validator.ValidateDelta(ctx, m.store, t.Staged); err != nil {
			m.rollback(ctx, t)
			return err
		}
	}

	if m.hooks != nil {
		if err := m.hooks.RunPhase(ctx, "POST_COMMIT", HookContext{TxnID: txnID, Delta: t.Staged}); err != nil {
			m.rollback(ctx, t)
			return err
		}
		if err := m.hooks.RunPhase(ctx, "POST_TRANSACTION", HookContext{TxnID: txnID, Delta: t.Staged}); err != nil {
			m.rollback(ctx, t)
			return err
		}
	}

	m.mu.Lock()
	now := time.Now().UTC()
	t.Status = StatusCommitted
	t.CompletedAt = &now
	m.mu.Unlock()
	return nil
}

// rollback reverses an applied delta (used when post-commit validation
// fails) and marks the transaction aborted.
func (m *Manager) rollback(ctx context.Context, t *Txn) {
	_ = m.store.RemoveQuads(ctx, t.Staged.Additions)
	_ = m.store.AddQuads(ctx, t.Staged.Removals)
	m.Abort(t.ID, "rolled back after post-commit validation failure")
}

// Abort discards staged writes and marks the transaction aborted. Emitting
// the ON_ERROR receipt is the caller's (engine's) responsibility, since the
// lockchain lives one layer up from the transaction manager.
func (m *Manager) Abort(txnID, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[txnID]
	if !ok {
		return
	}
	now := time.Now().UTC()
	t.Status = StatusAborted
	t.CompletedAt = &now
	t.Error = reason
}

func (m *Manager) get(txnID string) (*Txn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[txnID]
	if !ok {
		return nil, errs.StoreOperationError("unknown transaction "+txnID, nil)
	}
	return t, nil
}

// Get returns a copy of a transaction's current state.
func (m *Manager) Get(txnID string) (Txn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[txnID]
	if !ok {
		return Txn{}, false
	}
	return *t, true
}

func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldestTime time.Time
	for id, t := range m.txns {
		if t.Status == StatusOpen || t.Status == StatusPrepared {
			continue
		}
		if oldestID == "" || t.StartedAt.Before(oldestTime) {
			oldestID, oldestTime = id, t.StartedAt
		}
	}
	if oldestID != "" {
		delete(m.txns, oldestID)
	}
}
