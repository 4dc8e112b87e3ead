// Package semdriver implements the semantic driver: resolving, for any
// active node, the (verb, parameter-resources, templates) tuple from the
// physics ontology via one unified SPARQL query — never branching in Go on
// the ontology's parameter *values* (spec.md §9's named anti-pattern).
// Grounded on graph/dag.go's repository-backed lookup style, with a
// golang-lru cache keyed on (ontology generation, trigger shape) the way
// physics.Ontology's generation counter is meant to be used as a cache key.
package semdriver

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/physics"
	"github.com/kgcengine/kgc/rdf"
)

// VerbConfig is the immutable record resolved from the ontology for a node.
type VerbConfig struct {
	Verb                Verb
	ThresholdTemplate   string
	CardinalityTemplate string
	CompletionTemplate  string
	SelectionTemplate   string
	CancellationTemplate string
	ExecutionTemplate   string
	InstanceGeneration  string
	ResetOnFire         bool
	BindingTemplate     string
}

// Verb mirrors physics.Verb, re-exported so callers need only import one package.
type Verb = physics.Verb

const (
	VerbTransmute = physics.VerbTransmute
	VerbCopy      = physics.VerbCopy
	VerbFilter    = physics.VerbFilter
	VerbAwait     = physics.VerbAwait
	VerbVoid      = physics.VerbVoid
)

type cacheKey struct {
	generation uint64
	triggerShape string
}

// Driver resolves VerbConfigs against a physics.Ontology and an rdf.Store
// holding the active workflow state graph.
type Driver struct {
	ontology *physics.Ontology
	cache    *lru.Cache[cacheKey, *VerbConfig]
}

// New constructs a Driver with a resolution cache of the given size.
func New(ontology *physics.Ontology, cacheSize int) (*Driver, error) {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	c, err := lru.New[cacheKey, *VerbConfig](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Driver{ontology: ontology, cache: c}, nil
}

// ResolveVerb resolves (verb, parameter-resources, templates) for subject
// against store, returning nil if the node has nothing to do this tick
// (spec.md §4.4: "A missing trigger returns None").
func (d *Driver) ResolveVerb(ctx context.Context, store rdf.Store, subject string) (*VerbConfig, error) {
	triggerShape, err := d.triggerShape(ctx, store, subject)
	if err != nil {
		return nil, err
	}
	if triggerShape == "" {
		return nil, nil
	}

	key := cacheKey{generation: d.ontology.Generation(), triggerShape: triggerShape}
	if cfg, ok := d.cache.Get(key); ok {
		return cfg, nil
	}

	cfg, err := d.resolveUncached(ctx, store, subject)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		d.cache.Add(key, cfg)
	}
	return cfg, nil
}

// triggerShape extracts the subject's current (triggerProperty, triggerValue)
// pair, used both to decide whether a node has anything to do and as part
// of the cache key, since different subjects with the same trigger shape
// resolve to the same VerbConfig.
func (d *Driver) triggerShape(ctx context.Context, store rdf.Store, subject string) (string, error) {
	query := fmt.Sprintf(`SELECT ?prop ?val WHERE { <%s> ?prop ?val . }`, subject)
	rs, err := store.Select(ctx, query)
	if err != nil {
		return "", errs.StoreOperationError("trigger lookup", err)
	}
	if rs.Empty() {
		return "", nil
	}
	shape := ""
	for _, b := range rs.Bindings {
		shape += b["prop"].Value + "=" + b["val"].Value + ";"
	}
	return shape, nil
}

// unifiedParameterQuery is the single SPARQL query that returns the verb
// label plus every optional parameter-value resource's templates, per
// spec.md §4.4 step 2: "one query that returns the verb label plus seven
// optional parameter-value resources and, for each, its templates."
const unifiedParameterQuery = `
SELECT ?verb ?resetOnFire ?threshold ?cardinality ?completion ?selection ?cancellation ?execution ?instanceGen WHERE {
  ?mapping <` + physics.PredTriggerProperty + `> ?prop .
  ?mapping <` + physics.PredTriggerValue + `> ?val .
  <%s> ?prop ?val .
  ?mapping <` + physics.PredVerb + `> ?verb .
  OPTIONAL { ?mapping <` + physics.PredResetOnFire + `> ?resetOnFire . }
  OPTIONAL { ?mapping <` + physics.PredThresholdTemplate + `> ?thresholdParam . ?thresholdParam <` + physics.PredThresholdTemplate + `> ?threshold . }
  OPTIONAL { ?mapping <` + physics.PredCardinalityTemplate + `> ?cardinality . }
  OPTIONAL { ?mapping <` + physics.PredCompletionTemplate + `> ?completion . }
  OPTIONAL { ?mapping <` + physics.PredSelectionTemplate + `> ?selection . }
  OPTIONAL { ?mapping <` + physics.PredCancellationTemplate + `> ?cancellation . }
  OPTIONAL { ?mapping <` + physics.PredExecutionTemplate + `> ?execution . }
  OPTIONAL { ?mapping <` + physics.PredInstanceGeneration + `> ?instanceGen . }
}`

func (d *Driver) resolveUncached(ctx context.Context, store rdf.Store, subject string) (*VerbConfig, error) {
	query := fmt.Sprintf(unifiedParameterQuery, subject)
	rs, err := store.Select(ctx, query)
	if err != nil {
		return nil, errs.StoreOperationError("unified parameter extraction", err)
	}
	if rs.Empty() {
		return nil, nil
	}
	row := rs.Bindings[0]
	verb := Verb(row["verb"].Value)
	switch verb {
	case VerbTransmute, VerbCopy, VerbFilter, VerbAwait, VerbVoid:
	default:
		return nil, errs.CompletenessViolation(fmt.Sprintf("subject %s resolved to unknown verb %q", subject, verb))
	}

	cfg := &VerbConfig{
		Verb:                verb,
		ThresholdTemplate:   row["threshold"].Value,
		CardinalityTemplate: row["cardinality"].Value,
		CompletionTemplate:  row["completion"].Value,
		SelectionTemplate:   row["selection"].Value,
		CancellationTemplate: row["cancellation"].Value,
		ExecutionTemplate:   row["execution"].Value,
		InstanceGeneration:  row["instanceGen"].Value,
		ResetOnFire:         row["resetOnFire"].Value == "true",
	}
	return cfg, nil
}
