package receipts

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/cbergoon/merkletree"

	"github.com/kgcengine/kgc/errs"
)

// DefaultBlockSize is how many receipts accumulate between Merkle anchors
// when Config.BlockSize is unset. The engine sets Config.BlockSize from
// engineconfig's lockchain_block_size; no policy pack value is read.
const DefaultBlockSize = 64

// leaf adapts a receipt's already-computed hash to merkletree.Content.
type leaf struct {
	hash string
}

func (l leaf) CalculateHash() ([]byte, error) {
	b, err := hex.DecodeString(l.hash)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (l leaf) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(leaf)
	if !ok {
		return false, fmt.Errorf("cannot compare leaf to %T", other)
	}
	return l.hash == o.hash, nil
}

// Store is the durable append-and-query surface a Lockchain persists to.
type Store interface {
	Append(ctx context.Context, r Receipt) error
	ByHookID(ctx context.Context, hookID string) ([]Receipt, error)
	ByActor(ctx context.Context, actor string) ([]Receipt, error)
	ByTimeRange(ctx context.Context, fromUnix, toUnix int64) ([]Receipt, error)
}

// Lockchain appends receipts, chaining each to the last via prev_hash and
// periodically re-anchoring a Merkle root over the current block.
type Lockchain struct {
	mu        sync.Mutex
	blockSize int
	store     Store
	lastHash  string
	block     []Receipt
	all       []Receipt // in-memory retention when store is nil
	retainCap int
}

// Config configures a Lockchain.
type Config struct {
	BlockSize int   // default DefaultBlockSize
	Store     Store // optional durable backend; nil keeps an in-memory retention window
	RetainCap int   // in-memory retention cap when Store is nil, default 1000
}

// New constructs a Lockchain.
func New(cfg Config) *Lockchain {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.RetainCap <= 0 {
		cfg.RetainCap = 1000
	}
	return &Lockchain{blockSize: cfg.BlockSize, store: cfg.Store, retainCap: cfg.RetainCap}
}

// Append computes r's hash (chained to the previous receipt), stamps a
// Merkle anchor whenever the current block reaches BlockSize, and persists
// it. A hashing or chaining failure aborts — receipts are part of the
// durability contract, never best-effort.
func (l *Lockchain) Append(ctx context.Context, r Receipt) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r.PrevHash = l.lastHash
	hash, err := computeHash(r)
	if err != nil {
		return Receipt{}, errs.StoreOperationError("lockchain: compute receipt hash", err)
	}
	r.Hash = hash
	l.lastHash = hash
	l.block = append(l.block, r)

	if len(l.block) >= l.blockSize {
		root, err := l.anchorLocked()
		if err != nil {
			return Receipt{}, errs.StoreOperationError("lockchain: merkle anchor", err)
		}
		r.MerkleAnchor = root
		l.block = l.block[:0]
	}

	if l.store != nil {
		if err := l.store.Append(ctx, r); err != nil {
			return Receipt{}, errs.StoreOperationError("lockchain: persist receipt", err)
		}
	} else {
		l.all = append(l.all, r)
		if len(l.all) > l.retainCap {
			l.all = l.all[len(l.all)-l.retainCap:]
		}
	}

	return r, nil
}

// anchorLocked rebuilds the Merkle tree over the current block and returns
// its root hex-encoded. Caller holds l.mu.
func (l *Lockchain) anchorLocked() (string, error) {
	contents := make([]merkletree.Content, len(l.block))
	for i, r := range l.block {
		contents[i] = leaf{hash: r.Hash}
	}
	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(tree.MerkleRoot()), nil
}

// VerifyReceipt checks that a receipt's prev_hash equals expectedPrevHash
// and that its hash matches a recomputation over its own fields. It does
// not check membership in a Merkle-anchored block.
func VerifyReceipt(r Receipt, expectedPrevHash string) error {
	if r.PrevHash != expectedPrevHash {
		return errs.ChronologyViolation("receipt prev_hash does not chain to expected predecessor")
	}
	recomputed, err := computeHash(Receipt{
		ID: r.ID, HookID: r.HookID, Phase: r.Phase, TxnID: r.TxnID, Actor: r.Actor,
		Fired: r.Fired, Success: r.Success, ErrorCode: r.ErrorCode,
		StartedAt: r.StartedAt, DurationMs: r.DurationMs, Metadata: r.Metadata, PrevHash: r.PrevHash,
	})
	if err != nil {
		return errs.StoreOperationError("verify: recompute hash", err)
	}
	if recomputed != r.Hash {
		return errs.ChronologyViolation("receipt hash does not match its content")
	}
	return nil
}

// Recent returns the in-memory retention window (only populated when the
// Lockchain has no durable Store backend).
func (l *Lockchain) Recent() []Receipt {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Receipt, len(l.all))
	copy(out, l.all)
	return out
}

// ByHookID queries the durable store if configured, otherwise filters the
// in-memory retention window.
func (l *Lockchain) ByHookID(hookID string) ([]Receipt, error) {
	if l.store != nil {
		return l.store.ByHookID(context.Background(), hookID)
	}
	var out []Receipt
	for _, r := range l.Recent() {
		if r.HookID == hookID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ByActor queries the durable store if configured, otherwise filters the
// in-memory retention window.
func (l *Lockchain) ByActor(actor string) ([]Receipt, error) {
	if l.store != nil {
		return l.store.ByActor(context.Background(), actor)
	}
	var out []Receipt
	for _, r := range l.Recent() {
		if r.Actor == actor {
			out = append(out, r)
		}
	}
	return out, nil
}
