// Package engine wires the whole kernel-physics-driver-tick-transaction-
// hook-receipt-validation-policy-sandbox-cache stack into one process,
// grounded on main.go's dependency-injection shape (construct every
// service, wire it into the next layer up, hand the assembled root to the
// CLI/HTTP entry point) adapted from cloud/deploy tooling wiring to
// workflow-engine component wiring.
package engine

import (
	"context"
	"fmt"

	"github.com/kgcengine/kgc/cache"
	"github.com/kgcengine/kgc/engineconfig"
	"github.com/kgcengine/kgc/hooks"
	"github.com/kgcengine/kgc/kernel"
	"github.com/kgcengine/kgc/logging"
	"github.com/kgcengine/kgc/physics"
	"github.com/kgcengine/kgc/policy"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/rdfstore"
	"github.com/kgcengine/kgc/reasoner"
	"github.com/kgcengine/kgc/receipts"
	"github.com/kgcengine/kgc/receipts/couchstore"
	"github.com/kgcengine/kgc/sandbox"
	"github.com/kgcengine/kgc/semdriver"
	"github.com/kgcengine/kgc/shacl"
	"github.com/kgcengine/kgc/tick"
	"github.com/kgcengine/kgc/txn"
)

// Engine is the fully assembled, running instance: one store, one
// ontology, the five-verb kernel resolved through the semantic driver, a
// reasoner-backed tick executor, a transaction manager gated by SHACL and
// driven by the hook pipeline, and a policy-pack manager governing which
// hooks are currently active.
type Engine struct {
	Store     rdf.Store
	Ontology  *physics.Ontology
	Driver    *semdriver.Driver
	Reasoner  *reasoner.Reasoner
	Ticker    *tick.Executor
	Txns      *txn.Manager
	Hooks     *hooks.Registry
	Pipeline  *hooks.Pipeline
	Lockchain *receipts.Lockchain
	Validator *shacl.Validator
	Policies  *policy.Manager
	Cache     cache.Backend
	Log       *logging.Context

	tickHistory []tick.PhysicsResult
}

// kernelAdapter satisfies tick.KernelRunner by resolving a subject's verb
// through the semantic driver and dispatching it through the kernel.
type kernelAdapter struct {
	driver *semdriver.Driver
}

func (a kernelAdapter) ResolveAndExecute(ctx context.Context, store rdf.Store, subject string) (rdf.QuadDelta, error) {
	cfg, err := a.driver.ResolveVerb(ctx, store, subject)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	return kernel.Execute(ctx, store, subject, cfg)
}

// New assembles an Engine from cfg and an initial physics ontology graph.
func New(ctx context.Context, cfg engineconfig.Config, ontologyQuads []rdf.Quad, rules []reasoner.Rule) (*Engine, error) {
	log := logging.NewContext(logging.New(logging.Config{Level: logging.Level(cfg.LogLevel), Format: cfg.LogFormat, Component: "kgcengine"}), nil)

	store, err := rdfstore.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ontology := physics.New(ontologyQuads)
	driver, err := semdriver.New(ontology, cfg.QueryCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build semantic driver: %w", err)
	}
	rz := reasoner.New(rules, 100)

	var queryCache cache.Backend
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{RedisURL: cfg.RedisURL})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		queryCache = rc
	} else {
		mc, err := cache.NewMemoryCache(cfg.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("build memory cache: %w", err)
		}
		queryCache = mc
	}

	var receiptStore receipts.Store
	if cfg.CouchDBURL != "" {
		cs, err := couchstore.Open(couchstore.Config{URL: cfg.CouchDBURL, Database: "kgc_receipts", CreateIfMissing: true})
		if err != nil {
			return nil, fmt.Errorf("connect couchdb receipt store: %w", err)
		}
		receiptStore = cs
	}
	lockchain := receipts.New(receipts.Config{BlockSize: cfg.LockchainBlockSize, Store: receiptStore})

	validator := shacl.New(ontology, shacl.Config{MaxBatchSize: cfg.HermeticityLimit})

	registry := hooks.NewRegistry()
	pipeline := hooks.New(hooks.Config{
		Registry:   registry,
		Lockchain:  lockchain,
		Cache:      queryCache,
		Log:        log,
		Store:      store,
		Generation: ontology.Generation,
	})

	txnMgr := txn.New(txn.Config{
		Store:     store,
		Hooks:     pipeline,
		Validator: validator,
		MaxRetained: 1000,
	})

	ticker := tick.New(store, rz, kernelAdapter{driver: driver}, txnMgr, log)

	return &Engine{
		Store:     store,
		Ontology:  ontology,
		Driver:    driver,
		Reasoner:  rz,
		Ticker:    ticker,
		Txns:      txnMgr,
		Hooks:     registry,
		Pipeline:  pipeline,
		Lockchain: lockchain,
		Validator: validator,
		Policies:  policy.New(),
		Cache:     queryCache,
		Log:       log,
	}, nil
}

// Tick runs one tick and records it in the bounded in-process history the
// introspection HTTP server serves.
func (e *Engine) Tick(ctx context.Context, activeSubjects []string) (tick.PhysicsResult, error) {
	pr, err := e.Ticker.ExecuteTick(ctx, activeSubjects)
	if err != nil {
		return pr, err
	}
	e.tickHistory = append(e.tickHistory, pr)
	if len(e.tickHistory) > 1000 {
		e.tickHistory = e.tickHistory[len(e.tickHistory)-1000:]
	}
	return pr, nil
}

// Recent returns the most recent up-to-limit tick results, newest last.
func (e *Engine) Recent(limit int) []tick.PhysicsResult {
	if limit <= 0 || limit > len(e.tickHistory) {
		limit = len(e.tickHistory)
	}
	return append([]tick.PhysicsResult{}, e.tickHistory[len(e.tickHistory)-limit:]...)
}

// Close releases the store and any cache/store backends that hold open
// connections.
func (e *Engine) Close() error {
	if closer, ok := e.Cache.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	return e.Store.Close()
}

// HookSandbox exposes a default deny-by-default sandbox profile new hooks
// can start from before widening specific permissions.
func HookSandbox() sandbox.Profile {
	return sandbox.DefaultProfile()
}
