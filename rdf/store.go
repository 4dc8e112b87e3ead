package rdf

import "context"

// Store is the port every triple-store backend (in-memory/BoltDB via
// rdfstore) must satisfy. Kernel verbs, the reasoner, and the transaction manager only ever
// talk to a Store through this interface.
type Store interface {
	// Load parses data in the given format ("turtle", "ntriples", "trig")
	// and adds the resulting quads to graph (DefaultGraph if empty),
	// returning the number of triples added. Fails with a ParseError on
	// malformed input.
	Load(ctx context.Context, format string, data []byte, graph string) (int, error)

	// AddQuads inserts quads directly, without parsing.
	AddQuads(ctx context.Context, quads []Quad) error

	// RemoveQuads deletes quads directly.
	RemoveQuads(ctx context.Context, quads []Quad) error

	// Select evaluates a SPARQL SELECT query and returns its result set.
	Select(ctx context.Context, query string) (ResultSet, error)

	// Ask evaluates a SPARQL ASK query.
	Ask(ctx context.Context, query string) (bool, error)

	// Construct evaluates a SPARQL CONSTRUCT query and returns the
	// resulting quads (placed in DefaultGraph).
	Construct(ctx context.Context, query string) ([]Quad, error)

	// Update evaluates an update-form query (INSERT DATA, DELETE DATA, or
	// DELETE {...} INSERT {...} WHERE {...}) and returns the resulting
	// QuadDelta without applying it — the caller stages and commits the
	// delta through the transaction manager.
	Update(ctx context.Context, query string) (QuadDelta, error)

	// AllQuads returns every quad in the store, across all named graphs.
	AllQuads(ctx context.Context) ([]Quad, error)

	// Snapshot returns a read-only, point-in-time view of the store's
	// contents that later writes to the store do not affect. The tick
	// executor and transaction manager read the live store, not a Snapshot.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Stats reports aggregate counters used by the introspection surface.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any backing resources (file handles, connections).
	Close() error
}

// Snapshot is an immutable view of a Store's contents at a point in time.
type Snapshot interface {
	Select(ctx context.Context, query string) (ResultSet, error)
	Ask(ctx context.Context, query string) (bool, error)
	AllQuads(ctx context.Context) ([]Quad, error)
	TripleCount() int
}

// Stats reports store-wide aggregate counters.
type Stats struct {
	TripleCount     int
	NamedGraphCount int
}
