package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/depmesh/depmesh/pkg/graph"
)

// Store is a SQLite-backed graph store. Nodes, edges and per-edge config
// memberships live in three tables keyed so that every upsert can be an
// INSERT OR IGNORE, which makes re-running any statement a no-op.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at dbPath.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// The composite primary keys carry the idempotence: a repeated
	// node, edge or config observation hits the same key and is
	// ignored by the INSERT OR IGNORE upserts.
	query := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS edges (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, scope)
	);

	CREATE TABLE IF NOT EXISTS edge_configs (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		scope TEXT NOT NULL,
		config TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, scope, config),
		FOREIGN KEY (from_id, to_id, scope) REFERENCES edges(from_id, to_id, scope)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_scope ON edges(scope);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create graph tables: %w", err)
	}

	return nil
}

// Begin opens a write transaction.
func (s *Store) Begin(ctx context.Context) (graph.Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sqlite transaction: %w", err)
	}
	return &txn{tx: tx}, nil
}

type txn struct {
	tx   *sql.Tx
	done bool
}

func (t *txn) UpsertNode(ctx context.Context, id string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	_, err := t.tx.ExecContext(ctx, `INSERT OR IGNORE INTO nodes (id) VALUES (?)`, id)
	if err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}
	return nil
}

func (t *txn) UpsertEdge(ctx context.Context, from, to, scope, config string) error {
	if t.done {
		return graph.ErrTxnDone
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO edges (from_id, to_id, scope) VALUES (?, ?, ?)
	`, from, to, scope)
	if err != nil {
		return fmt.Errorf("failed to insert edge: %w", err)
	}

	_, err = t.tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO edge_configs (from_id, to_id, scope, config) VALUES (?, ?, ?, ?)
	`, from, to, scope, config)
	if err != nil {
		return fmt.Errorf("failed to insert edge config: %w", err)
	}
	return nil
}

func (t *txn) Commit(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	return t.tx.Commit()
}

func (t *txn) Rollback(ctx context.Context) error {
	if t.done {
		return graph.ErrTxnDone
	}
	t.done = true
	return t.tx.Rollback()
}
