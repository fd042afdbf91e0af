package materialize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/depmesh/depmesh/pkg/graph"
)

// mockTxn satisfies graph.Txn.
type mockTxn struct {
	mock.Mock
}

func (m *mockTxn) UpsertNode(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *mockTxn) UpsertEdge(ctx context.Context, from, to, scope, config string) error {
	args := m.Called(from, to, scope, config)
	return args.Error(0)
}

func (m *mockTxn) Commit(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockTxn) Rollback(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

type mockStore struct {
	txn graph.Txn
}

func (s *mockStore) Begin(ctx context.Context) (graph.Txn, error) {
	return s.txn, nil
}

func TestRunRollsBackOnFirstError(t *testing.T) {
	storeErr := errors.New("constraint violation")

	txn := new(mockTxn)
	txn.On("UpsertNode", "app:1.0").Return(nil)
	txn.On("UpsertNode", "lib-a").Return(nil)
	txn.On("UpsertEdge", "app:1.0", "lib-a", "app:1.0", "compile").Return(storeErr)
	txn.On("Rollback").Return(nil)

	err := New(&mockStore{txn: txn}).Run(context.Background(), exampleManifest())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	// Enough context to diagnose which operation failed.
	assert.Contains(t, err.Error(), "lib-a")

	txn.AssertCalled(t, "Rollback")
	txn.AssertNotCalled(t, "Commit")
	// Traversal stops at the first failure: lib-b is never reached.
	txn.AssertNotCalled(t, "UpsertNode", "lib-b")
}

func TestRunCommitErrorSurfaces(t *testing.T) {
	commitErr := errors.New("transaction conflict")

	txn := new(mockTxn)
	txn.On("UpsertNode", mock.Anything).Return(nil)
	txn.On("UpsertEdge", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	txn.On("Commit").Return(commitErr)

	err := New(&mockStore{txn: txn}).Run(context.Background(), exampleManifest())
	require.Error(t, err)
	assert.ErrorIs(t, err, commitErr)
	txn.AssertNotCalled(t, "Rollback")
}
