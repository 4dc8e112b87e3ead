package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/rdfstore"
)

var errTest = errors.New("boom")

type fakeHooks struct {
	phases []string
	fail   string // phase name to fail, empty means never fail
}

func (f *fakeHooks) RunPhase(_ context.Context, phase string, _ HookContext) error {
	f.phases = append(f.phases, phase)
	if phase == f.fail {
		return errTest
	}
	return nil
}

type fakeValidator struct {
	err error
}

func (f fakeValidator) ValidateDelta(context.Context, rdf.Store, rdf.QuadDelta) error {
	return f.err
}

func newTxnStore(t *testing.T) rdf.Store {
	t.Helper()
	s, err := rdfstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDelta() rdf.QuadDelta {
	return rdf.QuadDelta{Additions: []rdf.Quad{
		{Subject: rdf.IRI("ex:a"), Predicate: rdf.IRI("ex:p"), Object: rdf.IRI("ex:b")},
	}}
}

func TestBeginStagePrepareCommitHappyPath(t *testing.T) {
	store := newTxnStore(t)
	hooks := &fakeHooks{}
	m := New(Config{Store: store, Hooks: hooks, Validator: fakeValidator{}})

	txn := m.Begin("alice", "add a triple")
	require.Equal(t, StatusOpen, txn.Status)

	require.NoError(t, m.Stage(txn.ID, sampleDelta()))
	require.NoError(t, m.Prepare(context.Background(), txn.ID))
	require.NoError(t, m.Commit(context.Background(), txn.ID))

	got, ok := m.Get(txn.ID)
	require.True(t, ok)
	require.Equal(t, StatusCommitted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.Equal(t, []string{"PRE_TRANSACTION", "POST_COMMIT", "POST_TRANSACTION"}, hooks.phases)

	quads, err := store.AllQuads(context.Background())
	require.NoError(t, err)
	require.Len(t, quads, 1)
}

func TestStageRejectsOversizedBatch(t *testing.T) {
	store := newTxnStore(t)
	m := New(Config{Store: store})
	txn := m.Begin("alice", "big batch")

	var additions []rdf.Quad
	for i := 0; i < MaxHermeticQuads+1; i++ {
		additions = append(additions, rdf.Quad{
			Subject:   rdf.IRI("ex:s"),
			Predicate: rdf.IRI("ex:p"),
			Object:    rdf.Literal("x", rdf.XSDString),
		})
	}
	err := m.Stage(txn.ID, rdf.QuadDelta{Additions: additions})
	require.Error(t, err)
}

func TestStageRejectsUnknownPredicate(t *testing.T) {
	store := newTxnStore(t)
	m := New(Config{Store: store, Whitelist: PredicateWhitelist{"ex:allowed": true}})
	txn := m.Begin("alice", "bad predicate")

	err := m.Stage(txn.ID, rdf.QuadDelta{Additions: []rdf.Quad{
		{Subject: rdf.IRI("ex:s"), Predicate: rdf.IRI("ex:forbidden"), Object: rdf.IRI("ex:o")},
	}})
	require.Error(t, err)
}

func TestStageOnUnopenedTransactionFails(t *testing.T) {
	store := newTxnStore(t)
	m := New(Config{Store: store})
	err := m.Stage("does-not-exist", sampleDelta())
	require.Error(t, err)
}

func TestPrepareVetoAbortsTransaction(t *testing.T) {
	store := newTxnStore(t)
	hooks := &fakeHooks{fail: "PRE_TRANSACTION"}
	m := New(Config{Store: store, Hooks: hooks})
	txn := m.Begin("alice", "vetoed")
	require.NoError(t, m.Stage(txn.ID, sampleDelta()))

	err := m.Prepare(context.Background(), txn.ID)
	require.Error(t, err)

	got, ok := m.Get(txn.ID)
	require.True(t, ok)
	require.Equal(t, StatusAborted, got.Status)
}

func TestCommitRollsBackOnValidationFailure(t *testing.T) {
	store := newTxnStore(t)
	m := New(Config{Store: store, Validator: fakeValidator{err: errTest}})
	txn := m.Begin("alice", "invalid commit")
	require.NoError(t, m.Stage(txn.ID, sampleDelta()))
	require.NoError(t, m.Prepare(context.Background(), txn.ID))

	err := m.Commit(context.Background(), txn.ID)
	require.Error(t, err)

	got, ok := m.Get(txn.ID)
	require.True(t, ok)
	require.Equal(t, StatusAborted, got.Status)

	quads, err := store.AllQuads(context.Background())
	require.NoError(t, err)
	require.Empty(t, quads)
}

func TestCommitWithoutPrepareFails(t *testing.T) {
	store := newTxnStore(t)
	m := New(Config{Store: store})
	txn := m.Begin("alice", "skip prepare")
	require.NoError(t, m.Stage(txn.ID, sampleDelta()))

	err := m.Commit(context.Background(), txn.ID)
	require.Error(t, err)
}
