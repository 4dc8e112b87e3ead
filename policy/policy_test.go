package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrderRespectsDependencies(t *testing.T) {
	base := &Pack{Name: "base", Version: "1.0.0"}
	mid := &Pack{Name: "mid", Version: "1.0.0", Dependencies: []Dependency{{Name: "base", MinVersion: "1.0.0"}}}
	top := &Pack{Name: "top", Version: "1.0.0", Dependencies: []Dependency{{Name: "mid", MinVersion: "1.0.0"}}}

	order, err := LoadOrder([]*Pack{top, mid, base})
	require.NoError(t, err)
	require.Equal(t, []string{"base", "mid", "top"}, names(order))
}

func TestLoadOrderDetectsCycle(t *testing.T) {
	a := &Pack{Name: "a", Version: "1.0.0", Dependencies: []Dependency{{Name: "b", MinVersion: "1.0.0"}}}
	b := &Pack{Name: "b", Version: "1.0.0", Dependencies: []Dependency{{Name: "a", MinVersion: "1.0.0"}}}

	_, err := LoadOrder([]*Pack{a, b})
	require.Error(t, err)
}

func TestLoadRejectsUnsatisfiedDependency(t *testing.T) {
	m := New()
	err := m.Load(&Pack{Name: "top", Version: "1.0.0", Dependencies: []Dependency{{Name: "base", MinVersion: "1.0.0"}}})
	require.Error(t, err)
}

func TestLoadRejectsVersionTooLow(t *testing.T) {
	m := New()
	require.NoError(t, m.Load(&Pack{Name: "base", Version: "1.0.0"}))
	err := m.Load(&Pack{Name: "top", Version: "1.0.0", Dependencies: []Dependency{{Name: "base", MinVersion: "2.0.0"}}})
	require.Error(t, err)
}

func TestActivateDeactivateReload(t *testing.T) {
	m := New()
	require.NoError(t, m.Load(&Pack{Name: "base", Version: "1.0.0"}))
	require.NoError(t, m.Activate("base"))

	active := m.ActivePacks()
	require.Len(t, active, 1)

	require.NoError(t, m.Deactivate("base"))
	require.Empty(t, m.ActivePacks())

	require.NoError(t, m.Reload(&Pack{Name: "base", Version: "1.0.1"}))
	require.Empty(t, m.ActivePacks())
}

func names(packs []*Pack) []string {
	out := make([]string, len(packs))
	for i, p := range packs {
		out[i] = p.Name
	}
	return out
}
