package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAppendChainsHashes(t *testing.T) {
	lc := New(Config{BlockSize: 100})
	ctx := context.Background()

	r1, err := lc.Append(ctx, Receipt{ID: "r1", HookID: "h1", Phase: "POST_COMMIT", Fired: true, Success: true, StartedAt: time.Now()})
	require.NoError(t, err)
	require.Empty(t, r1.PrevHash)
	require.NotEmpty(t, r1.Hash)

	r2, err := lc.Append(ctx, Receipt{ID: "r2", HookID: "h2", Phase: "POST_COMMIT", Fired: true, Success: true, StartedAt: time.Now()})
	require.NoError(t, err)
	require.Equal(t, r1.Hash, r2.PrevHash)

	require.NoError(t, VerifyReceipt(r2, r1.Hash))
}

func TestAnchorsAtBlockSize(t *testing.T) {
	lc := New(Config{BlockSize: 2})
	ctx := context.Background()

	_, err := lc.Append(ctx, Receipt{ID: "a", HookID: "h", StartedAt: time.Now()})
	require.NoError(t, err)
	r2, err := lc.Append(ctx, Receipt{ID: "b", HookID: "h", StartedAt: time.Now()})
	require.NoError(t, err)
	require.NotEmpty(t, r2.MerkleAnchor)
}

func TestVerifyReceiptDetectsTampering(t *testing.T) {
	lc := New(Config{BlockSize: 100})
	ctx := context.Background()
	r, err := lc.Append(ctx, Receipt{ID: "a", HookID: "h", StartedAt: time.Now()})
	require.NoError(t, err)

	r.Success = !r.Success
	require.Error(t, VerifyReceipt(r, ""))
}

func TestRecentRetentionWindow(t *testing.T) {
	lc := New(Config{BlockSize: 10, RetainCap: 2})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := lc.Append(ctx, Receipt{ID: string(rune('a' + i)), HookID: "h", StartedAt: time.Now()})
		require.NoError(t, err)
	}
	require.Len(t, lc.Recent(), 2)
}
