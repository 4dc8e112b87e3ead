package hooks

import (
	"context"

	"github.com/kgcengine/kgc/receipts"
	"github.com/kgcengine/kgc/sandbox"
)

// Context is the value every hook handler receives, carrying forward
// metadata between hooks in a batch and surfacing prior receipts for
// inspection, per spec.md §4.8.
type Context struct {
	TxnID         string
	Phase         Phase
	Metadata      map[string]interface{}
	PriorReceipts []receipts.Receipt
}

// ShouldRollback reports whether a prior PRE_* hook in this batch vetoed
// the transaction by writing should_rollback into the shared metadata.
func (c Context) ShouldRollback() bool {
	v, ok := c.Metadata["should_rollback"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler is the function a hook runs when its condition fires.
type Handler func(ctx context.Context, hc *Context) error

// Hook is one registered lifecycle listener: a condition gating execution,
// a handler to run when it fires, and the metadata the pipeline and
// registry need to order and sandbox it.
type Hook struct {
	ID           string
	Phase        Phase
	Priority     int // lower runs first; ties broken by registration order
	Condition    Condition
	Handler      Handler
	Timeout      int // milliseconds, 0 means Sandbox.TimeLimit, or the pipeline default (100ms) if that is unset too
	Version      string
	Sandbox      sandbox.Profile
	registeredAt int64
}
