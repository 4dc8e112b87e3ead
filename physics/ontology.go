// Package physics serves the pattern->verb->template ontology to the
// semantic driver: the fixed "physics" that the five-verb kernel obeys.
// Grounded on semantic/actionregistry.go's registry-with-lookup shape,
// generalized with a monotonic generation counter the way
// statemanager.Manager tracks operation state across reloads.
package physics

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

// Verb is one of the five kernel verbs.
type Verb string

const (
	VerbTransmute Verb = "Transmute"
	VerbCopy      Verb = "Copy"
	VerbFilter    Verb = "Filter"
	VerbAwait     Verb = "Await"
	VerbVoid      Verb = "Void"
)

// PatternInfo is the human-facing summary of a registered pattern, returned
// by get_pattern_info/list_patterns.
type PatternInfo struct {
	ID       string
	Name     string
	Verb     Verb
	Category string
}

// Ontology holds the immutable-per-generation ontology graph plus indices
// the semantic driver needs to resolve a node's VerbConfig without
// re-parsing the ontology on every tick.
type Ontology struct {
	mu         sync.RWMutex
	quads      []rdf.Quad
	generation uint64
	patterns   map[string]PatternInfo
}

// New constructs an Ontology from an initial set of physics-graph quads.
func New(quads []rdf.Quad) *Ontology {
	o := &Ontology{}
	o.reload(quads)
	return o
}

// Generation returns the current ontology generation, used as a cache key
// by the semantic driver and the query cache.
func (o *Ontology) Generation() uint64 {
	return atomic.LoadUint64(&o.generation)
}

// Quads returns a copy of the current ontology graph.
func (o *Ontology) Quads() []rdf.Quad {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]rdf.Quad, len(o.quads))
	copy(out, o.quads)
	return out
}

// Reload replaces the ontology graph and increments the generation counter.
// Per spec.md §4.3, this is a controlled operation — callers are expected
// to hold the relevant write lock (or run it inside a transaction) so no
// tick observes a torn ontology.
func (o *Ontology) Reload(quads []rdf.Quad) {
	o.reload(quads)
}

func (o *Ontology) reload(quads []rdf.Quad) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.quads = append([]rdf.Quad{}, quads...)
	o.patterns = indexPatterns(o.quads)
	atomic.AddUint64(&o.generation, 1)
}

// GetRules returns the ontology as a Turtle document.
func (o *Ontology) GetRules(ctx context.Context) string {
	return string(rdf.SerializeTriG(o.Quads()))
}

// GetRuleSubset returns only the triples whose subject is one of the given
// pattern IDs. Triples of the ParameterValue resources those mappings
// reference are not included.
func (o *Ontology) GetRuleSubset(ctx context.Context, patternIDs []string) string {
	want := make(map[string]bool, len(patternIDs))
	for _, id := range patternIDs {
		want[id] = true
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	var subset []rdf.Quad
	for _, q := range o.quads {
		if want[q.Subject.Value] {
			subset = append(subset, q)
		}
	}
	return string(rdf.SerializeTriG(subset))
}

// GetPatternInfo looks up one pattern's descriptive metadata.
func (o *Ontology) GetPatternInfo(id string) (PatternInfo, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	info, ok := o.patterns[id]
	return info, ok
}

// ListPatterns returns every registered pattern, in no particular order.
func (o *Ontology) ListPatterns() []PatternInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PatternInfo, 0, len(o.patterns))
	for _, p := range o.patterns {
		out = append(out, p)
	}
	return out
}

// Namespace IRIs used by the physics ontology's required shapes.
const (
	NSKgc = "urn:kgc:"

	PredPattern         = NSKgc + "pattern"
	PredTriggerProperty = NSKgc + "triggerProperty"
	PredTriggerValue    = NSKgc + "triggerValue"
	PredVerb            = NSKgc + "verb"
	PredName            = NSKgc + "name"
	PredCategory        = NSKgc + "category"

	PredThresholdTemplate   = NSKgc + "thresholdTemplate"
	PredCardinalityTemplate = NSKgc + "cardinalityTemplate"
	PredSelectionTemplate   = NSKgc + "selectionTemplate"
	PredCompletionTemplate  = NSKgc + "completionTemplate"
	PredCancellationTemplate = NSKgc + "cancellationTemplate"
	PredExecutionTemplate   = NSKgc + "executionTemplate"
	PredInstanceGeneration  = NSKgc + "instanceGeneration"
	PredResetOnFire         = NSKgc + "resetOnFire"

	ClassPatternMapping = NSKgc + "PatternMapping"
)

func indexPatterns(quads []rdf.Quad) map[string]PatternInfo {
	infos := map[string]PatternInfo{}
	bySubject := map[string][]rdf.Quad{}
	for _, q := range quads {
		bySubject[q.Subject.Value] = append(bySubject[q.Subject.Value], q)
	}
	for subj, sq := range bySubject {
		info := PatternInfo{ID: subj}
		isMapping := false
		for _, q := range sq {
			switch q.Predicate.Value {
			case rdf.RDFType:
				if q.Object.Value == ClassPatternMapping {
					isMapping = true
				}
			case PredName:
				info.Name = q.Object.Value
			case PredVerb:
				info.Verb = Verb(q.Object.Value)
			case PredCategory:
				info.Category = q.Object.Value
			}
		}
		if isMapping {
			infos[subj] = info
		}
	}
	return infos
}

// ErrCompletenessViolation is returned when a pattern mapping lacks a
// required template, per spec.md's COMPLETENESS law.
func ErrCompletenessViolation(patternID, template string) error {
	return errs.CompletenessViolation("pattern " + patternID + " missing " + template)
}
