package hooks

import (
	"encoding/json"
	"sort"
	"strconv"
	"sync"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
)

// Registry holds every registered hook, keyed by phase and kept sorted by
// priority (ties broken by registration order), the same priority-keyed
// registration/lookup shape as semantic/actionregistry.go's ActionRegistry
// generalized from a single string-keyed map to one bucket per phase.
type Registry struct {
	mu      sync.RWMutex
	byPhase map[Phase][]*Hook
	byID    map[string]*Hook
	seq     int64
}

// NewRegistry constructs an empty hook Registry.
func NewRegistry() *Registry {
	return &Registry{
		byPhase: make(map[Phase][]*Hook),
		byID:    make(map[string]*Hook),
	}
}

// Register adds a hook, rejecting a duplicate ID and an unknown phase.
func (r *Registry) Register(h *Hook) error {
	if !h.Phase.valid() {
		return errs.CompletenessViolation("unknown hook phase " + string(h.Phase))
	}
	if h.Version == "" {
		return errs.CompletenessViolation("hook " + h.ID + " missing required version metadata")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[h.ID]; exists {
		return errs.PolicyViolation("hook already registered: " + h.ID)
	}
	r.seq++
	h.registeredAt = r.seq
	r.byID[h.ID] = h
	r.byPhase[h.Phase] = append(r.byPhase[h.Phase], h)
	sort.SliceStable(r.byPhase[h.Phase], func(i, j int) bool {
		bucket := r.byPhase[h.Phase]
		if bucket[i].Priority != bucket[j].Priority {
			return bucket[i].Priority < bucket[j].Priority
		}
		return bucket[i].registeredAt < bucket[j].registeredAt
	})
	return nil
}

// Unregister removes a hook by id.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	bucket := r.byPhase[h.Phase]
	for i, entry := range bucket {
		if entry.ID == id {
			r.byPhase[h.Phase] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
}

// ForPhase returns the hooks registered for phase, in priority order. The
// returned slice is a copy safe for the caller to range over concurrently
// with further registrations.
func (r *Registry) ForPhase(phase Phase) []*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.byPhase[phase]
	out := make([]*Hook, len(bucket))
	copy(out, bucket)
	return out
}

// Get looks up a hook by id.
func (r *Registry) Get(id string) (*Hook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byID[id]
	return h, ok
}

// hookManifestEntry is the JSON-serializable projection of a Hook used for
// pack loading/inspection; Condition and Handler are behavior, not data, so
// they are excluded from the manifest.
type hookManifestEntry struct {
	ID       string `json:"id"`
	Phase    Phase  `json:"phase"`
	Priority int    `json:"priority"`
	Timeout  int    `json:"timeoutMs"`
	Version  string `json:"version"`
}

// MarshalJSON serializes the registry's manifest (id/phase/priority/timeout/
// version per hook) for pack distribution and introspection.
func (r *Registry) MarshalJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []hookManifestEntry
	for _, h := range r.byID {
		entries = append(entries, hookManifestEntry{ID: h.ID, Phase: h.Phase, Priority: h.Priority, Timeout: h.Timeout, Version: h.Version})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return json.Marshal(entries)
}

// ManifestTriples serializes the registry's manifest as RDF triples for
// graph integration, one kgc:Hook resource per entry.
func (r *Registry) ManifestTriples() []rdf.Triple {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var triples []rdf.Triple
	for _, h := range r.byID {
		subj := rdf.IRI("urn:kgc:hook:" + h.ID)
		triples = append(triples,
			rdf.Triple{Subject: subj, Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("urn:kgc:Hook")},
			rdf.Triple{Subject: subj, Predicate: rdf.IRI("urn:kgc:phase"), Object: rdf.Literal(string(h.Phase), rdf.XSDString)},
			rdf.Triple{Subject: subj, Predicate: rdf.IRI("urn:kgc:priority"), Object: rdf.Literal(strconv.Itoa(h.Priority), rdf.XSDInteger)},
			rdf.Triple{Subject: subj, Predicate: rdf.IRI("urn:kgc:version"), Object: rdf.Literal(h.Version, rdf.XSDString)},
		)
	}
	return triples
}
