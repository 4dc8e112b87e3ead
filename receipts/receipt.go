// Package receipts implements the cryptographically chained lockchain:
// every hook execution emits a Receipt whose hash links to the previous
// receipt's hash, with a Merkle tree rebuilt and anchored every block.
// Grounded on the retrieval pack's other_examples blockchain manifests for
// the Merkle-anchoring shape (github.com/cbergoon/merkletree), and on
// storage/database.go's Kivik/CouchDB client for the optional durable
// store backend.
package receipts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/kgcengine/kgc/rdf"
)

// Receipt records one hook invocation's outcome in the lockchain.
type Receipt struct {
	ID          string                 `json:"id"`
	HookID      string                 `json:"hookId"`
	Phase       string                 `json:"phase"`
	TxnID       string                 `json:"txnId"`
	Actor       string                 `json:"actor"`
	Fired       bool                   `json:"fired"`
	Success     bool                   `json:"success"`
	ErrorCode   string                 `json:"errorCode,omitempty"`
	StartedAt   time.Time              `json:"startedAt"`
	DurationMs  int64                  `json:"durationMs"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	PrevHash    string                 `json:"prevHash"`
	Hash        string                 `json:"hash"`
	MerkleAnchor string                `json:"merkleAnchor,omitempty"`
}

// canonicalFields is the JSON projection hashed to produce Hash; it
// excludes Hash and MerkleAnchor themselves so the hash covers only the
// receipt's content.
type canonicalFields struct {
	ID         string                 `json:"id"`
	HookID     string                 `json:"hookId"`
	Phase      string                 `json:"phase"`
	TxnID      string                 `json:"txnId"`
	Actor      string                 `json:"actor"`
	Fired      bool                   `json:"fired"`
	Success    bool                   `json:"success"`
	ErrorCode  string                 `json:"errorCode,omitempty"`
	StartedAt  time.Time              `json:"startedAt"`
	DurationMs int64                  `json:"durationMs"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	PrevHash   string                 `json:"prevHash"`
}

// computeHash hashes r's canonical fields plus prevHash, giving
// H(canonical(receipt fields excluding hash)).
func computeHash(r Receipt) (string, error) {
	canon := canonicalFields{
		ID: r.ID, HookID: r.HookID, Phase: r.Phase, TxnID: r.TxnID, Actor: r.Actor,
		Fired: r.Fired, Success: r.Success, ErrorCode: r.ErrorCode,
		StartedAt: r.StartedAt, DurationMs: r.DurationMs, Metadata: sortedMetadata(r.Metadata),
		PrevHash: r.PrevHash,
	}
	raw, err := json.Marshal(canon)
	if err != nil {
		return "", fmt.Errorf("canonicalize receipt: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// sortedMetadata is a stand-in stable projection; map key order in
// encoding/json is already sorted for string keys, kept as a named step so
// canonicalization is an explicit, auditable part of the hash contract.
func sortedMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]interface{}, len(m))
	for _, k := range keys {
		out[k] = m[k]
	}
	return out
}

// Triples serializes a receipt as RDF for graph integration.
func (r Receipt) Triples() []rdf.Triple {
	subj := rdf.IRI("urn:kgc:receipt:" + r.ID)
	triples := []rdf.Triple{
		{Subject: subj, Predicate: rdf.IRI(rdf.RDFType), Object: rdf.IRI("urn:kgc:Receipt")},
		{Subject: subj, Predicate: rdf.IRI("urn:kgc:hookId"), Object: rdf.Literal(r.HookID, rdf.XSDString)},
		{Subject: subj, Predicate: rdf.IRI("urn:kgc:phase"), Object: rdf.Literal(r.Phase, rdf.XSDString)},
		{Subject: subj, Predicate: rdf.IRI("urn:kgc:txnId"), Object: rdf.Literal(r.TxnID, rdf.XSDString)},
		{Subject: subj, Predicate: rdf.IRI("urn:kgc:prevHash"), Object: rdf.Literal(r.PrevHash, rdf.XSDString)},
		{Subject: subj, Predicate: rdf.IRI("urn:kgc:hash"), Object: rdf.Literal(r.Hash, rdf.XSDString)},
		{Subject: subj, Predicate: rdf.IRI("urn:kgc:startedAt"), Object: rdf.Literal(r.StartedAt.Format(time.RFC3339Nano), rdf.XSDDateTime)},
	}
	if r.MerkleAnchor != "" {
		triples = append(triples, rdf.Triple{Subject: subj, Predicate: rdf.IRI("urn:kgc:merkleAnchor"), Object: rdf.Literal(r.MerkleAnchor, rdf.XSDString)})
	}
	return triples
}
