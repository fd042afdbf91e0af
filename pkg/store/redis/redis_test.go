package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depmesh/depmesh/pkg/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client)
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
		require.NoError(t, txn.UpsertEdge(ctx, "app:1.0", "lib-a", "app:1.0", "runtime"))
		require.NoError(t, txn.Commit(ctx))
	}

	nodeCount, err := st.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nodeCount)

	edgeCount, err := st.EdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edgeCount)

	e, ok, err := st.Edge(ctx, graph.EdgeKey{From: "app:1.0", To: "lib-a", Scope: "app:1.0"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"compile", "runtime"}, e.Configs)
}

func TestRollbackSendsNothing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.UpsertNode(ctx, "app:1.0"))
	require.NoError(t, txn.UpsertEdge(ctx, "app:1.0", "lib-a", "app:1.0", "compile"))
	require.NoError(t, txn.Rollback(ctx))

	nodeCount, err := st.NodeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, nodeCount)

	edgeCount, err := st.EdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, edgeCount)
}

func TestBufferedUntilCommit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.UpsertNode(ctx, "app:1.0"))

	ok, err := st.HasNode(ctx, "app:1.0")
	require.NoError(t, err)
	assert.False(t, ok, "node must not be visible before commit")

	require.NoError(t, txn.Commit(ctx))

	ok, err = st.HasNode(ctx, "app:1.0")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFinishedTxnRejectsUse(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.Commit(ctx))

	assert.ErrorIs(t, txn.UpsertNode(ctx, "x"), graph.ErrTxnDone)
	assert.ErrorIs(t, txn.UpsertEdge(ctx, "a", "b", "s", "c"), graph.ErrTxnDone)
	assert.ErrorIs(t, txn.Commit(ctx), graph.ErrTxnDone)
	assert.ErrorIs(t, txn.Rollback(ctx), graph.ErrTxnDone)
}

func TestScopePartitionsEdges(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	txn, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, txn.UpsertEdge(ctx, "lib-a", "lib-b", "app:1.0", "compile"))
	require.NoError(t, txn.UpsertEdge(ctx, "lib-a", "lib-b", "other:2.0", "compile"))
	require.NoError(t, txn.Commit(ctx))

	edgeCount, err := st.EdgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, edgeCount)
}
