// Package policy implements the PolicyPack manager: load/activate/
// deactivate/hot-reload of a bundle of hooks, shapes, and SLOs, with semver
// dependency resolution ordered by Kahn's algorithm. Grounded on
// graph/dag.go's GetExecutionOrder (adjacency list, in-degree map, queue
// drain), generalized here from action-dependency ordering to pack-load
// ordering, and checkCycleManual's cycle-detection fallback for a
// human-readable cycle report when the Kahn pass cannot fully drain.
package policy

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kgcengine/kgc/errs"
)

// Dependency names another pack and the semver range this pack requires of it.
type Dependency struct {
	Name       string
	MinVersion string // inclusive lower bound, e.g. "1.2.0"
}

// SLO is one service-level objective the pack declares, e.g.
// lockchainBlockSize, hookTimeoutMs.
type SLO map[string]interface{}

// Pack is a loadable bundle of hooks, shapes, and SLOs.
type Pack struct {
	Name         string
	Version      string
	Dependencies []Dependency
	HookIDs      []string
	SLO          SLO
	active       bool
}

// Active reports whether the pack is currently the activated one for its name.
func (p *Pack) Active() bool { return p.active }

// Manager loads and activates PolicyPacks, keeping at most one active
// version per pack name and resolving load order via dependency topology.
type Manager struct {
	mu    sync.RWMutex
	packs map[string]*Pack // keyed by name; only the active version is swapped in here
}

// New constructs an empty policy Manager.
func New() *Manager {
	return &Manager{packs: make(map[string]*Pack)}
}

// Load registers a pack without activating it. A pack referencing a
// dependency with no registered pack of a satisfying version fails to load.
func (m *Manager) Load(p *Pack) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dep := range p.Dependencies {
		existing, ok := m.packs[dep.Name]
		if !ok {
			return errs.PolicyViolation(fmt.Sprintf("pack %s requires %s which is not loaded", p.Name, dep.Name))
		}
		if compareSemver(existing.Version, dep.MinVersion) < 0 {
			return errs.PolicyViolation(fmt.Sprintf("pack %s requires %s>=%s, loaded is %s", p.Name, dep.Name, dep.MinVersion, existing.Version))
		}
	}
	m.packs[p.Name] = p
	return nil
}

// Activate marks a loaded pack active, swapping it in atomically behind the
// manager's write lock; the registry observed by any concurrent reader is
// always either the old or the new pack, never a partial state.
func (m *Manager) Activate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packs[name]
	if !ok {
		return errs.PolicyViolation("unknown pack: " + name)
	}
	p.active = true
	return nil
}

// Deactivate marks a pack inactive without unloading it, so a later
// Activate can bring it back without reloading.
func (m *Manager) Deactivate(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.packs[name]
	if !ok {
		return errs.PolicyViolation("unknown pack: " + name)
	}
	p.active = false
	return nil
}

// Reload replaces a pack's definition in place (hot reload) without
// requiring the engine to restart; activation state is preserved.
func (m *Manager) Reload(p *Pack) error {
	m.mu.Lock()
	wasActive := false
	if existing, ok := m.packs[p.Name]; ok {
		wasActive = existing.active
	}
	m.mu.Unlock()

	if err := m.Load(p); err != nil {
		return err
	}
	if wasActive {
		return m.Activate(p.Name)
	}
	return nil
}

// Get returns a loaded pack by name.
func (m *Manager) Get(name string) (*Pack, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.packs[name]
	return p, ok
}

// ActivePacks returns every currently active pack.
func (m *Manager) ActivePacks() []*Pack {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Pack
	for _, p := range m.packs {
		if p.active {
			out = append(out, p)
		}
	}
	return out
}

// LoadOrder topologically sorts packs by their declared dependencies using
// Kahn's algorithm, so a caller can load/activate a whole bundle in one
// dependency-respecting pass. Returns an error naming the cycle if the
// dependency graph is not a DAG.
func LoadOrder(packs []*Pack) ([]*Pack, error) {
	byName := make(map[string]*Pack, len(packs))
	inDegree := make(map[string]int, len(packs))
	adjacency := make(map[string][]*Pack)

	for _, p := range packs {
		byName[p.Name] = p
		inDegree[p.Name] = 0
	}
	for _, p := range packs {
		for _, dep := range p.Dependencies {
			if _, ok := byName[dep.Name]; !ok {
				continue // dependency loaded separately/out of band
			}
			adjacency[dep.Name] = append(adjacency[dep.Name], p)
			inDegree[p.Name]++
		}
	}

	var queue []*Pack
	for _, p := range packs {
		if inDegree[p.Name] == 0 {
			queue = append(queue, p)
		}
	}

	var order []*Pack
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		for _, dependent := range adjacency[current.Name] {
			inDegree[dependent.Name]--
			if inDegree[dependent.Name] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) != len(packs) {
		var stuck []string
		for name, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, errs.PolicyViolation("circular pack dependency among: " + strings.Join(stuck, ", "))
	}
	return order, nil
}

// compareSemver does a narrow total-order comparison of two "MAJOR.MINOR.PATCH"
// strings, stdlib-only: no example repo in the retrieval pack imports a
// semver library, and the engine only ever needs >= comparisons for pack
// dependency gating, not full range/prerelease parsing.
func compareSemver(a, b string) int {
	pa, pb := splitSemver(a), splitSemver(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitSemver(v string) [3]int {
	var out [3]int
	parts := strings.SplitN(strings.TrimPrefix(v, "v"), ".", 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n, _ := strconv.Atoi(parts[i])
		out[i] = n
	}
	return out
}
