// Package rdfstore implements rdf.Store on top of Cayley, the way
// semantic.WorkflowGraph wraps a Cayley handle for workflow metadata — here
// generalized from a fixed JSON-LD workflow shape to an arbitrary quad
// store serving the kernel's five verbs and the reasoner.
package rdfstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cayleygraph/cayley"
	"github.com/cayleygraph/cayley/graph"
	_ "github.com/cayleygraph/cayley/graph/kv/bolt"
	_ "github.com/cayleygraph/cayley/graph/memstore"
	"github.com/cayleygraph/quad"

	"github.com/kgcengine/kgc/errs"
	"github.com/kgcengine/kgc/rdf"
	"github.com/kgcengine/kgc/sparqlite"
)

// Store is a Cayley-backed implementation of rdf.Store. Reads and writes
// are serialized behind a mutex: Cayley's bolt backend does not support
// concurrent writers, and the engine's own concurrency model (one tick at a
// time, §4.3) does not require finer-grained locking.
type Store struct {
	mu     sync.RWMutex
	handle *cayley.Handle
	path   string // "" for pure in-memory
}

// Open opens (creating if necessary) a BoltDB-backed store at path. An
// empty path opens a transient in-memory store, used by tests and by the
// reasoner's scratch working graph.
func Open(path string) (*Store, error) {
	if path == "" {
		store, err := cayley.NewMemoryGraph()
		if err != nil {
			return nil, errs.StoreOperationError("open in-memory store", err)
		}
		return &Store{handle: store}, nil
	}

	if err := graph.InitQuadStore("bolt", path, nil); err != nil && err != graph.ErrDatabaseExists {
		return nil, errs.StoreOperationError("initialize bolt store", err)
	}
	handle, err := cayley.NewGraph("bolt", path, nil)
	if err != nil {
		return nil, errs.StoreOperationError("open bolt store", err)
	}
	return &Store{handle: handle, path: path}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return nil
	}
	return s.handle.Close()
}

func toCayleyQuad(q rdf.Quad) quad.Quad {
	return quad.Quad{
		Subject:   termToValue(q.Subject),
		Predicate: termToValue(q.Predicate),
		Object:    termToValue(q.Object),
		Label:     labelValue(q.Graph),
	}
}

func labelValue(graphName string) quad.Value {
	if graphName == "" {
		return nil
	}
	return quad.IRI(graphName)
}

func termToValue(t rdf.Term) quad.Value {
	switch t.Kind {
	case rdf.KindIRI:
		return quad.IRI(t.Value)
	case rdf.KindBlank:
		return quad.BNode(t.Value)
	case rdf.KindLiteral:
		if t.Lang != "" {
			return quad.LangString{Value: quad.String(t.Value), Lang: t.Lang}
		}
		if t.Datatype != "" && t.Datatype != rdf.XSDString {
			return quad.TypedString{Value: quad.String(t.Value), Type: quad.IRI(t.Datatype)}
		}
		return quad.String(t.Value)
	default:
		return quad.String(t.Value)
	}
}

func valueToTerm(v quad.Value) rdf.Term {
	switch val := v.(type) {
	case quad.IRI:
		return rdf.IRI(string(val))
	case quad.BNode:
		return rdf.Blank(string(val))
	case quad.LangString:
		return rdf.LangLiteral(string(val.Value), val.Lang)
	case quad.TypedString:
		return rdf.Literal(string(val.Value), string(val.Type))
	case quad.String:
		return rdf.Literal(string(val), rdf.XSDString)
	default:
		if v == nil {
			return rdf.Term{}
		}
		return rdf.Literal(v.String(), rdf.XSDString)
	}
}

func (s *Store) Load(ctx context.Context, format string, data []byte, graphName string) (int, error) {
	var triples []rdf.Triple
	var err error
	switch format {
	case "turtle", "trig":
		triples, err = rdf.ParseTurtle(data)
	case "ntriples", "nt":
		triples, err = rdf.ParseNTriples(data)
	default:
		return 0, errs.ParseError(fmt.Sprintf("unsupported format %q", format), nil)
	}
	if err != nil {
		return 0, err
	}
	quads := make([]rdf.Quad, 0, len(triples))
	for _, t := range triples {
		quads = append(quads, t.WithGraph(graphName))
	}
	if err := s.AddQuads(ctx, quads); err != nil {
		return 0, err
	}
	return len(quads), nil
}

func (s *Store) AddQuads(_ context.Context, quads []rdf.Quad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make([]quad.Quad, 0, len(quads))
	for _, q := range quads {
		set = append(set, toCayleyQuad(q))
	}
	if err := s.handle.AddQuadSet(set); err != nil {
		return errs.StoreOperationError("add quads", err)
	}
	return nil
}

func (s *Store) RemoveQuads(_ context.Context, quads []rdf.Quad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range quads {
		if err := s.handle.RemoveQuad(toCayleyQuad(q)); err != nil && err != graph.ErrQuadNotExist {
			return errs.StoreOperationError("remove quad", err)
		}
	}
	return nil
}

func (s *Store) AllQuads(ctx context.Context) ([]rdf.Quad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allQuadsLocked(ctx)
}

func (s *Store) allQuadsLocked(ctx context.Context) ([]rdf.Quad, error) {
	it := s.handle.QuadsAllIterator()
	defer it.Close()

	var out []rdf.Quad
	for it.Next(ctx) {
		q := s.handle.Quad(it.Result())
		rq := rdf.Quad{
			Subject:   valueToTerm(q.Subject),
			Predicate: valueToTerm(q.Predicate),
			Object:    valueToTerm(q.Object),
		}
		if q.Label != nil {
			rq.Graph = q.Label.String()
		}
		out = append(out, rq)
	}
	if err := it.Err(); err != nil {
		return nil, errs.StoreOperationError("iterate quads", err)
	}
	return out, nil
}

func (s *Store) engine(ctx context.Context) (*sparqlite.Engine, error) {
	quads, err := s.allQuadsLocked(ctx)
	if err != nil {
		return nil, err
	}
	return sparqlite.NewEngine(quads), nil
}

func (s *Store) Select(ctx context.Context, query string) (rdf.ResultSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, err := s.engine(ctx)
	if err != nil {
		return rdf.ResultSet{}, err
	}
	return eng.Select(query)
}

func (s *Store) Ask(ctx context.Context, query string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, err := s.engine(ctx)
	if err != nil {
		return false, err
	}
	return eng.Ask(query)
}

func (s *Store) Construct(ctx context.Context, query string) ([]rdf.Quad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, err := s.engine(ctx)
	if err != nil {
		return nil, err
	}
	return eng.Construct(query)
}

func (s *Store) Update(ctx context.Context, query string) (rdf.QuadDelta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, err := s.engine(ctx)
	if err != nil {
		return rdf.QuadDelta{}, err
	}
	return eng.Update(query)
}

func (s *Store) Stats(ctx context.Context) (rdf.Stats, error) {
	quads, err := s.AllQuads(ctx)
	if err != nil {
		return rdf.Stats{}, err
	}
	graphs := map[string]struct{}{}
	for _, q := range quads {
		if q.Graph != "" {
			graphs[q.Graph] = struct{}{}
		}
	}
	return rdf.Stats{TripleCount: len(quads), NamedGraphCount: len(graphs)}, nil
}

func (s *Store) Snapshot(ctx context.Context) (rdf.Snapshot, error) {
	quads, err := s.AllQuads(ctx)
	if err != nil {
		return nil, err
	}
	return &snapshot{quads: quads, engine: sparqlite.NewEngine(quads)}, nil
}

type snapshot struct {
	quads  []rdf.Quad
	engine *sparqlite.Engine
}

func (s *snapshot) Select(_ context.Context, query string) (rdf.ResultSet, error) { return s.engine.Select(query) }
func (s *snapshot) Ask(_ context.Context, query string) (bool, error)             { return s.engine.Ask(query) }
func (s *snapshot) AllQuads(_ context.Context) ([]rdf.Quad, error)                { return s.quads, nil }
func (s *snapshot) TripleCount() int                                              { return len(s.quads) }
