package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/depmesh/depmesh/pkg/graph"
)

// Store is an in-memory graph store. It backs dry runs and tests; the
// transactional contract matches the persistent adapters: writes are
// staged per transaction and become visible only on Commit.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]struct{}
	edges map[graph.EdgeKey]*graph.Edge
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nodes: make(map[string]struct{}),
		edges: make(map[graph.EdgeKey]*graph.Edge),
	}
}

// Begin opens a staged transaction against the store.
func (s *Store) Begin(ctx context.Context) (graph.Txn, error) {
	return &txn{store: s}, nil
}

// NodeCount returns the number of materialized nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of materialized edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// HasNode reports whether a node with the given identity exists.
func (s *Store) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// Edge returns a copy of the edge with the given key, if present.
func (s *Store) Edge(key graph.EdgeKey) (graph.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[key]
	if !ok {
		return graph.Edge{}, false
	}
	cp := *e
	cp.Configs = slices.Clone(e.Configs)
	return cp, true
}

// Nodes returns all node identities in sorted order.
func (s *Store) Nodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Edges returns copies of all edges, ordered by (from, to, scope).
func (s *Store) Edges() []graph.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graph.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		cp := *e
		cp.Configs = slices.Clone(e.Configs)
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b graph.Edge) int {
		if a.From != b.From {
			return cmpString(a.From, b.From)
		}
		if a.To != b.To {
			return cmpString(a.To, b.To)
		}
		return cmpString(a.Scope, b.Scope)
	})
	return out
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type stagedEdge struct {
	key    graph.EdgeKey
	config string
}

type txn struct {
	store *Store
	done  bool
	nodes []string
	edges []stagedEdge
}

func (t *txn) UpsertNode(ctx context.Context, id string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.nodes = append(t.nodes, id)
	return nil
}

func (t *txn) UpsertEdge(ctx context.Context, from, to, scope, config string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.edges = append(t.edges, stagedEdge{
		key:    graph.EdgeKey{From: from, To: to, Scope: scope},
		config: config,
	})
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, id := range t.nodes {
		t.store.nodes[id] = struct{}{}
	}
	for _, se := range t.edges {
		e, ok := t.store.edges[se.key]
		if !ok {
			e = &graph.Edge{From: se.key.From, To: se.key.To, Scope: se.key.Scope}
			t.store.edges[se.key] = e
		}
		if !slices.Contains(e.Configs, se.config) {
			e.Configs = append(e.Configs, se.config)
		}
	}
	return nil
}

func (t *txn) Rollback(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	t.nodes = nil
	t.edges = nil
	return nil
}
