package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/depmesh/depmesh/pkg/graph"
)

// Nodes returns all node identities in sorted order.
func (s *Store) Nodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Edge returns the edge with the given key and its config set, ordered by
// insertion. The second return is false when the edge does not exist.
func (s *Store) Edge(ctx context.Context, key graph.EdgeKey) (graph.Edge, bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM edges WHERE from_id = ? AND to_id = ? AND scope = ?
	`, key.From, key.To, key.Scope).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Edge{}, false, nil
	}
	if err != nil {
		return graph.Edge{}, false, fmt.Errorf("failed to query edge: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT config FROM edge_configs
		WHERE from_id = ? AND to_id = ? AND scope = ?
		ORDER BY rowid
	`, key.From, key.To, key.Scope)
	if err != nil {
		return graph.Edge{}, false, fmt.Errorf("failed to query edge configs: %w", err)
	}
	defer rows.Close()

	edge := graph.Edge{From: key.From, To: key.To, Scope: key.Scope}
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return graph.Edge{}, false, fmt.Errorf("failed to scan config row: %w", err)
		}
		edge.Configs = append(edge.Configs, config)
	}
	return edge, true, rows.Err()
}

// EdgeCount returns the number of edges in the store.
func (s *Store) EdgeCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count edges: %w", err)
	}
	return n, nil
}

// NodeCount returns the number of nodes in the store.
func (s *Store) NodeCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return n, nil
}
