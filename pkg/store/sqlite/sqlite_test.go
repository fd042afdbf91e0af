package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depmesh/depmesh/pkg/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "depmesh.db")
	st, err := NewStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestNewStoreMigrates(t *testing.T) {
	st := newTestStore(t)

	for _, table := range []string{"nodes", "edges", "edge_configs"} {
		var name string
		err := st.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestUpsertIdempotence(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		txn, err := st.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, txn.UpsertNode(ctx, "app:1.0"))
		require.NoError(t, txn.UpsertNode(ctx, "lib-a"))
		require.NoError(t, txn.UpsertEdge(ctx, "app:1.0", "lib-a", "app:1.0", "compile"))
		require.NoError(t, txn.UpsertEdge(ctx, "app:1.0", "lib-a", "app:1.0", "compile"))
		require.NoError(t, txn.UpsertEdge(ctx, "app:1.0", "lib-a", "app:1.0", "runtime"))
		require.NoError(t, txn.Commit(ctx))
	}

	nodes, err := st.Nodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"app:1.0", "lib-a"}, nodes)

	edgeCount, err := st.EdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edgeCount)

	e, ok, err := st.Edge(ctx, graph.EdgeKey{From: "app:1.0", To: "lib-a", Scope: "app:1.0"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"compile", "runtime"}, e.Configs)
}

func TestRollbackLeavesStoreUnchanged(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.UpsertNode(ctx, "app:1.0"))
	require.NoError(t, txn.UpsertNode(ctx, "lib-a"))
	require.NoError(t, txn.UpsertEdge(ctx, "app:1.0", "lib-a", "app:1.0", "compile"))
	require.NoError(t, txn.Rollback(ctx))

	nodeCount, err := st.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, nodeCount)

	edgeCount, err := st.EdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, edgeCount)
}

func TestUncommittedInvisible(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.UpsertNode(ctx, "app:1.0"))

	// Reads outside the transaction must not see staged writes.
	nodeCount, err := st.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, nodeCount)

	require.NoError(t, txn.Commit(ctx))

	nodeCount, err = st.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nodeCount)
}

func TestFinishedTxnRejectsUse(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Commit(ctx))

	assert.ErrorIs(t, txn.UpsertNode(ctx, "x"), graph.ErrTxnDone)
	assert.ErrorIs(t, txn.Commit(ctx), graph.ErrTxnDone)
	assert.ErrorIs(t, txn.Rollback(ctx), graph.ErrTxnDone)
}

func TestEdgeMissing(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.Edge(context.Background(), graph.EdgeKey{From: "a", To: "b", Scope: "s"})
	require.NoError(t, err)
	assert.False(t, ok)
}
