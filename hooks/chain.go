package hooks

import "context"

// Chain executes a fixed sequence of hooks one after another under a single
// shared Context, each consuming the previous one's metadata writes — the
// detect -> enrich -> validate shape spec.md §4.8 names.
type Chain struct {
	pipeline *Pipeline
	hooks    []*Hook
}

// NewChain builds a Chain over an explicit, ordered hook list rather than a
// phase lookup, for workflows that need a fixed sequence regardless of
// priority or registration order.
func NewChain(p *Pipeline, hooks ...*Hook) *Chain {
	return &Chain{pipeline: p, hooks: hooks}
}

// Run executes every hook in sequence, stopping at the first error.
func (c *Chain) Run(ctx context.Context, hctx *Context, deps EvalContext) error {
	for _, h := range c.hooks {
		if err := c.pipeline.invoke(ctx, h, hctx, deps.Store, deps.Generation); err != nil {
			return err
		}
	}
	return nil
}
