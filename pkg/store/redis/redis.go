package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/depmesh/depmesh/pkg/graph"
)

const (
	nodesKey = "depmesh:nodes"
	edgesKey = "depmesh:edges"
)

// Store is a Redis-backed graph store. Nodes and edges are members of
// Redis sets and every upsert is a SADD, which is natively idempotent.
// A transaction is a TxPipeline: commands are buffered client-side and
// sent as one MULTI/EXEC block on Commit, so a failed run leaves the
// server untouched.
type Store struct {
	client *redis.Client
}

// NewStore creates a graph store on top of an existing Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// edgeMember encodes an edge key as a single set member. The unit
// separator cannot appear in artifact coordinates or project names.
func edgeMember(key graph.EdgeKey) string {
	return key.From + "\x1f" + key.To + "\x1f" + key.Scope
}

func edgeConfigsKey(key graph.EdgeKey) string {
	return "depmesh:edge:" + edgeMember(key) + ":configs"
}

// Begin opens a buffered transaction.
func (s *Store) Begin(ctx context.Context) (graph.Txn, error) {
	return &txn{pipe: s.client.TxPipeline()}, nil
}

// HasNode reports whether a node with the given identity exists.
func (s *Store) HasNode(ctx context.Context, id string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, nodesKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to SISMEMBER %s: %w", nodesKey, err)
	}
	return ok, nil
}

// NodeCount returns the number of materialized nodes.
func (s *Store) NodeCount(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, nodesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to SCARD %s: %w", nodesKey, err)
	}
	return int(n), nil
}

// EdgeCount returns the number of materialized edges.
func (s *Store) EdgeCount(ctx context.Context) (int, error) {
	n, err := s.client.SCard(ctx, edgesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to SCARD %s: %w", edgesKey, err)
	}
	return int(n), nil
}

// Edge returns the edge with the given key and its config set. Redis
// sets are unordered, so Configs carries no observation order here.
func (s *Store) Edge(ctx context.Context, key graph.EdgeKey) (graph.Edge, bool, error) {
	ok, err := s.client.SIsMember(ctx, edgesKey, edgeMember(key)).Result()
	if err != nil {
		return graph.Edge{}, false, fmt.Errorf("failed to SISMEMBER %s: %w", edgesKey, err)
	}
	if !ok {
		return graph.Edge{}, false, nil
	}
	configs, err := s.client.SMembers(ctx, edgeConfigsKey(key)).Result()
	if err != nil {
		return graph.Edge{}, false, fmt.Errorf("failed to SMEMBERS edge configs: %w", err)
	}
	return graph.Edge{From: key.From, To: key.To, Scope: key.Scope, Configs: configs}, true, nil
}

type txn struct {
	pipe redis.Pipeliner
	done bool
}

func (t *txn) UpsertNode(ctx context.Context, id string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.pipe.SAdd(ctx, nodesKey, id)
	return nil
}

func (t *txn) UpsertEdge(ctx context.Context, from, to, scope, config string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	key := graph.EdgeKey{From: from, To: to, Scope: scope}
	t.pipe.SAdd(ctx, edgesKey, edgeMember(key))
	t.pipe.SAdd(ctx, edgeConfigsKey(key), config)
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	if _, err := t.pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to EXEC transaction: %w", err)
	}
	return nil
}

func (t *txn) Rollback(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	t.pipe.Discard()
	return nil
}
