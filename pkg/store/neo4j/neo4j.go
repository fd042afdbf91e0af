package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/depmesh/depmesh/pkg/graph"
)

// Store is a Neo4j-backed graph store. Nodes are :Artifact vertices
// keyed by id; edges are :DEPENDS_ON relationships keyed by (endpoints,
// scope) with a configs list property. Every statement is a MERGE, and
// config membership is checked before appending, so re-running any
// statement leaves the graph unchanged.
type Store struct {
	driver neo4j.DriverWithContext
}

// NewStore connects to the Neo4j instance at uri with basic auth and
// verifies connectivity before returning.
func NewStore(ctx context.Context, uri, username, password string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach neo4j at %s: %w", uri, err)
	}
	return &Store{driver: driver}, nil
}

// Close releases the underlying driver and its connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Begin opens a write session and an explicit transaction on it.
func (s *Store) Begin(ctx context.Context) (graph.Txn, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, fmt.Errorf("failed to begin neo4j transaction: %w", err)
	}
	return &txn{session: session, tx: tx}, nil
}

type txn struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	done    bool
}

func (t *txn) UpsertNode(ctx context.Context, id string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	_, err := t.tx.Run(ctx, `MERGE (a:Artifact {id: $id})`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("failed to merge node: %w", err)
	}
	return nil
}

func (t *txn) UpsertEdge(ctx context.Context, from, to, scope, config string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	// The CASE guards the append: a config already present in
	// r.configs is never added a second time.
	query := `
		MERGE (a:Artifact {id: $from})
		MERGE (b:Artifact {id: $to})
		MERGE (a)-[r:DEPENDS_ON {scope: $scope}]->(b)
		ON CREATE SET r.configs = []
		SET r.configs = CASE
			WHEN $config IN r.configs THEN r.configs
			ELSE r.configs + $config
		END
	`
	_, err := t.tx.Run(ctx, query, map[string]any{
		"from":   from,
		"to":     to,
		"scope":  scope,
		"config": config,
	})
	if err != nil {
		return fmt.Errorf("failed to merge edge: %w", err)
	}
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	defer t.session.Close(ctx)
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit neo4j transaction: %w", err)
	}
	return nil
}

func (t *txn) Rollback(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	defer t.session.Close(ctx)
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("failed to roll back neo4j transaction: %w", err)
	}
	return nil
}
