package hooks

import (
	"context"
	"fmt"
	"time"

	"github.com/kgcengine/kgc/cache"
	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

// CompareOp is one of the six comparison operators Threshold and Window
// conditions support.
type CompareOp string

const (
	OpLT  CompareOp = "<"
	OpLTE CompareOp = "<="
	OpEQ  CompareOp = "="
	OpNEQ CompareOp = "!="
	OpGT  CompareOp = ">"
	OpGTE CompareOp = ">="
)

func compare(lhs float64, op CompareOp, rhs float64) bool {
	switch op {
	case OpLT:
		return lhs < rhs
	case OpLTE:
		return lhs <= rhs
	case OpEQ:
		return lhs == rhs
	case OpNEQ:
		return lhs != rhs
	case OpGT:
		return lhs > rhs
	case OpGTE:
		return lhs >= rhs
	default:
		return false
	}
}

// EvalContext supplies a condition everything it may need to evaluate:
// the store to query, the ontology generation for cache scoping, and a
// shared query cache.
type EvalContext struct {
	Store      rdf.Store
	Generation uint64
	Cache      cache.Backend
}

// Condition is implemented by all eight condition kinds: evaluate(context)
// -> (fired, result), per spec.md §4.8.
type Condition interface {
	Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error)
}

func cachedAsk(ctx context.Context, ec EvalContext, query string) (bool, error) {
	key := cache.Key{QueryHash: cache.HashQuery(query), Generation: ec.Generation}
	if ec.Cache != nil {
		if v, ok := ec.Cache.Get(ctx, key); ok {
			if b, ok := v.(bool); ok {
				return b, nil
			}
		}
	}
	ok, err := ec.Store.Ask(ctx, query)
	if err != nil {
		return false, err
	}
	if ec.Cache != nil {
		ec.Cache.Set(ctx, key, ok, time.Minute)
	}
	return ok, nil
}

// SPARQLAskCondition fires when an ASK query evaluates true.
type SPARQLAskCondition struct {
	Query string
}

func (c SPARQLAskCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	ok, err := cachedAsk(ctx, ec, c.Query)
	return ok, ok, err
}

// SPARQLSelectCondition fires when a SELECT query returns at least one row;
// the full ResultSet is returned as the opaque result.
type SPARQLSelectCondition struct {
	Query string
}

func (c SPARQLSelectCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	rs, err := ec.Store.Select(ctx, c.Query)
	if err != nil {
		return false, nil, err
	}
	return !rs.Empty(), rs, nil
}

// Validator runs the SHACL four-law validation used both at commit time and
// by this condition kind, kept as an interface so hooks does not import
// shacl; *shacl.Validator satisfies it.
type Validator interface {
	Validate(ctx context.Context, store rdf.Store) []error
}

// SHACLCondition fires when shape conformance differs between the last
// observed validation result and the current one (validation-failure
// signalling, spec.md §4.8).
type SHACLCondition struct {
	Validator Validator
	prevOK    *bool
}

func (c *SHACLCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	violations := c.Validator.Validate(ctx, ec.Store)
	ok := len(violations) == 0
	fired := c.prevOK != nil && *c.prevOK != ok
	c.prevOK = &ok
	return fired, violations, nil
}

// DeltaDirection is the direction a named aggregate must move for a Delta
// condition to fire.
type DeltaDirection string

const (
	DeltaIncrease DeltaDirection = "INCREASE"
	DeltaDecrease DeltaDirection = "DECREASE"
	DeltaAny      DeltaDirection = "ANY"
)

// DeltaCondition fires when a named aggregate, extracted by a SELECT
// template binding a single numeric variable, changes direction between
// consecutive evaluations.
type DeltaCondition struct {
	Query     string
	Direction DeltaDirection
	prev      *float64
}

func (c *DeltaCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	rs, err := ec.Store.Select(ctx, c.Query)
	if err != nil {
		return false, nil, err
	}
	current, ok := firstNumericBinding(rs)
	if !ok {
		return false, nil, errs.CompletenessViolation("delta condition query bound no numeric value")
	}
	defer func() { v := current; c.prev = &v }()
	if c.prev == nil {
		return false, current, nil
	}
	diff := current - *c.prev
	switch c.Direction {
	case DeltaIncrease:
		return diff > 0, diff, nil
	case DeltaDecrease:
		return diff < 0, diff, nil
	default:
		return diff != 0, diff, nil
	}
}

func firstNumericBinding(rs rdf.ResultSet) (float64, bool) {
	if rs.Empty() {
		return 0, false
	}
	for _, v := range rs.Bindings[0] {
		if n, ok := rdf.ParseInt(v); ok {
			return float64(n), true
		}
	}
	return 0, false
}

// ThresholdCondition compares a SELECT-extracted numeric against a constant.
type ThresholdCondition struct {
	Query     string
	Op        CompareOp
	Threshold float64
}

func (c ThresholdCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	rs, err := ec.Store.Select(ctx, c.Query)
	if err != nil {
		return false, nil, err
	}
	v, ok := firstNumericBinding(rs)
	if !ok {
		return false, nil, errs.CompletenessViolation("threshold condition query bound no numeric value")
	}
	return compare(v, c.Op, c.Threshold), v, nil
}

// WindowAggregate is the sliding-window reduction a Window condition runs
// over its samples before the threshold compare.
type WindowAggregate string

const (
	AggregateSum   WindowAggregate = "SUM"
	AggregateAvg   WindowAggregate = "AVG"
	AggregateMin   WindowAggregate = "MIN"
	AggregateMax   WindowAggregate = "MAX"
	AggregateCount WindowAggregate = "COUNT"
)

type sample struct {
	at    time.Time
	value float64
}

// WindowCondition samples Query every Evaluate call, keeps the samples
// falling inside the trailing WindowSeconds, reduces them by Aggregate, and
// compares the result against Threshold.
type WindowCondition struct {
	Query         string
	WindowSeconds int
	Aggregate     WindowAggregate
	Op            CompareOp
	Threshold     float64

	samples []sample
}

func (c *WindowCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	rs, err := ec.Store.Select(ctx, c.Query)
	if err != nil {
		return false, nil, err
	}
	v, ok := firstNumericBinding(rs)
	if !ok {
		return false, nil, errs.CompletenessViolation("window condition query bound no numeric value")
	}
	now := time.Now()
	c.samples = append(c.samples, sample{at: now, value: v})
	cutoff := now.Add(-time.Duration(c.WindowSeconds) * time.Second)
	kept := c.samples[:0]
	for _, s := range c.samples {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	c.samples = kept

	reduced := reduce(c.samples, c.Aggregate)
	return compare(reduced, c.Op, c.Threshold), reduced, nil
}

func reduce(samples []sample, agg WindowAggregate) float64 {
	if len(samples) == 0 {
		return 0
	}
	switch agg {
	case AggregateSum:
		var sum float64
		for _, s := range samples {
			sum += s.value
		}
		return sum
	case AggregateAvg:
		var sum float64
		for _, s := range samples {
			sum += s.value
		}
		return sum / float64(len(samples))
	case AggregateMin:
		min := samples[0].value
		for _, s := range samples {
			if s.value < min {
				min = s.value
			}
		}
		return min
	case AggregateMax:
		max := samples[0].value
		for _, s := range samples {
			if s.value > max {
				max = s.value
			}
		}
		return max
	case AggregateCount:
		return float64(len(samples))
	default:
		return 0
	}
}

// CompositeOp is the boolean combinator a CompositeCondition applies over
// its sub-conditions.
type CompositeOp string

const (
	CompositeAnd CompositeOp = "AND"
	CompositeOr  CompositeOp = "OR"
	CompositeNot CompositeOp = "NOT"
)

// CompositeCondition combines sub-conditions with AND/OR/NOT, short-circuited.
type CompositeCondition struct {
	Op   CompositeOp
	Subs []Condition
}

func (c CompositeCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	results := make([]bool, 0, len(c.Subs))
	switch c.Op {
	case CompositeNot:
		if len(c.Subs) != 1 {
			return false, nil, fmt.Errorf("NOT composite requires exactly one sub-condition")
		}
		fired, _, err := c.Subs[0].Evaluate(ctx, ec)
		if err != nil {
			return false, nil, err
		}
		return !fired, !fired, nil
	case CompositeOr:
		for _, sub := range c.Subs {
			fired, _, err := sub.Evaluate(ctx, ec)
			if err != nil {
				return false, nil, err
			}
			if fired {
				return true, results, nil
			}
		}
		return false, results, nil
	default: // AND
		for _, sub := range c.Subs {
			fired, _, err := sub.Evaluate(ctx, ec)
			if err != nil {
				return false, nil, err
			}
			results = append(results, fired)
			if !fired {
				return false, results, nil
			}
		}
		return true, results, nil
	}
}

// AlwaysTrueCondition is the unconditional phase listener.
type AlwaysTrueCondition struct{}

func (AlwaysTrueCondition) Evaluate(ctx context.Context, ec EvalContext) (bool, interface{}, error) {
	return true, nil, nil
}
