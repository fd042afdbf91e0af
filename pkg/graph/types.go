package graph

import (
	"context"
	"errors"
)

// ErrTxnDone is returned by adapters when an operation is issued on a
// transaction that was already committed or rolled back.
var ErrTxnDone = errors.New("graph: transaction already finished")

// Store is the capability the materializer needs from a graph backend:
// open a transaction that can upsert nodes and edges atomically.
type Store interface {
	// Begin opens a new write transaction. Every materialization run
	// maps to exactly one transaction.
	Begin(ctx context.Context) (Txn, error)
}

// Txn is one all-or-nothing unit of graph writes. Both upserts are
// create-if-absent: calling them any number of times with the same
// arguments leaves the store in the same state as calling them once.
type Txn interface {
	// UpsertNode ensures a node with the given identity exists. It
	// never overwrites attributes of an existing node.
	UpsertNode(ctx context.Context, id string) error

	// UpsertEdge ensures a (from -> to) edge scoped to the given
	// project exists, then ensures config is a member of the edge's
	// config set. The config set never holds duplicates.
	UpsertEdge(ctx context.Context, from, to, scope, config string) error

	// Commit makes every upsert of this transaction visible. Nothing
	// written through the transaction is visible before Commit.
	Commit(ctx context.Context) error

	// Rollback discards every upsert of this transaction.
	Rollback(ctx context.Context) error
}

// Edge is a directed depends-on relationship between two nodes,
// scoped to the project it was materialized under. Configs lists the
// configuration names through which the relationship was observed, in
// first-observation order, without duplicates.
type Edge struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Scope   string   `json:"scope"`
	Configs []string `json:"configs"`
}

// EdgeKey identifies an edge within a store.
type EdgeKey struct {
	From  string
	To    string
	Scope string
}
