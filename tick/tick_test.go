package tick

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/rdfstore"
	"github.com/kgcengine/kgc/reasoner"
	"github.com/kgcengine/kgc/txn"
)

type fakeKernel struct {
	calls []string
	delta rdf.QuadDelta
	err   error

	// growPerCall, when true, adds one fresh triple to the store on every
	// invocation, so the caller never observes a zero-delta tick.
	growPerCall bool
	grown       int
}

func (f *fakeKernel) ResolveAndExecute(ctx context.Context, store rdf.Store, subject string) (rdf.QuadDelta, error) {
	f.calls = append(f.calls, subject)
	if f.growPerCall {
		f.grown++
		q := rdf.Quad{
			Subject:   rdf.IRI(subject),
			Predicate: rdf.IRI("ex:counter"),
			Object:    rdf.Literal(intToStr(f.grown), rdf.XSDString),
		}
		if err := store.AddQuads(ctx, []rdf.Quad{q}); err != nil {
			return rdf.QuadDelta{}, err
		}
	}
	return f.delta, f.err
}

func intToStr(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return string(b)
}

func newStore(t *testing.T) rdf.Store {
	t.Helper()
	s, err := rdfstore.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExecuteTickConvergesWithNoChanges(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI("rdf:type"), Object: rdf.IRI("ex:Task")},
	}))

	rz := reasoner.New(nil, 10)
	k := &fakeKernel{}
	e := New(store, rz, k, nil, nil)

	pr, err := e.ExecuteTick(ctx, nil)
	require.NoError(t, err)
	require.True(t, pr.Converged)
	require.Equal(t, int64(0), pr.Delta)
	require.Equal(t, uint64(1), pr.TickNumber)
}

func TestExecuteTickRunsKernelForActiveSubjects(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	rz := reasoner.New(nil, 10)
	k := &fakeKernel{}
	e := New(store, rz, k, nil, nil)

	_, err := e.ExecuteTick(ctx, []string{"ex:a", "ex:b"})
	require.NoError(t, err)
	require.Equal(t, []string{"ex:a", "ex:b"}, k.calls)
}

func TestExecuteTickReflectsReasonerInference(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:task1"), Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("ex:Task")},
	}))
	rz := reasoner.New([]reasoner.Rule{
		{ID: "touch", Where: "{ ?x a <ex:Task> . }", Then: "{ ?x <ex:touched> true . }"},
	}, 10)
	e := New(store, rz, &fakeKernel{}, nil, nil)

	pr, err := e.ExecuteTick(ctx, nil)
	require.NoError(t, err)
	require.False(t, pr.Converged)
	require.Equal(t, int64(1), pr.Delta)
}

func TestRunToCompletionStopsAtConvergence(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	rz := reasoner.New(nil, 10)
	e := New(store, rz, &fakeKernel{}, nil, nil)

	results, err := RunToCompletion(ctx, e, nil, 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.True(t, results[0].Converged)
}

func TestRunToCompletionFailsAtMaxTicksWithoutConvergence(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	rz := reasoner.New(nil, 10)
	// A kernel that adds one new triple per tick never lets the store
	// reach a fixed point within a small tick ceiling.
	k := &fakeKernel{growPerCall: true}
	e := New(store, rz, k, nil, nil)

	_, err := RunToCompletion(ctx, e, []string{"ex:counter-subject"}, 3)
	require.Error(t, err)
}

func TestExecuteTickAppliesKernelDeltaWithoutTxnManager(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	rz := reasoner.New(nil, 10)
	k := &fakeKernel{delta: rdf.QuadDelta{
		Additions: []rdf.Quad{{Subject: rdf.IRI("ex:a"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Active", rdf.XSDString)}},
	}}
	e := New(store, rz, k, nil, nil)

	_, err := e.ExecuteTick(ctx, []string{"ex:a"})
	require.NoError(t, err)

	all, err := store.AllQuads(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Active", all[0].Object.Value)
}

func TestExecuteTickStagesKernelDeltaThroughTxnManager(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.AddQuads(ctx, []rdf.Quad{
		{Subject: rdf.IRI("ex:a"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Enabled", rdf.XSDString)},
	}))

	rz := reasoner.New(nil, 10)
	k := &fakeKernel{delta: rdf.QuadDelta{
		Additions: []rdf.Quad{{Subject: rdf.IRI("ex:a"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Active", rdf.XSDString)}},
		Removals:  []rdf.Quad{{Subject: rdf.IRI("ex:a"), Predicate: rdf.IRI("ex:status"), Object: rdf.Literal("Enabled", rdf.XSDString)}},
	}}
	txnMgr := txn.New(txn.Config{Store: store})
	e := New(store, rz, k, txnMgr, nil)

	_, err := e.ExecuteTick(ctx, []string{"ex:a"})
	require.NoError(t, err)

	all, err := store.AllQuads(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Active", all[0].Object.Value)
}

func TestRunToCompletionZeroMaxTicksFailsImmediately(t *testing.T) {
	store := newStore(t)
	rz := reasoner.New(nil, 10)
	e := New(store, rz, &fakeKernel{}, nil, nil)

	_, err := RunToCompletion(context.Background(), e, nil, 0)
	require.Error(t, err)
}
