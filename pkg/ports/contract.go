package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract. Adapter test packages call this with
// their concrete store.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("SaveAndGet", func(t *testing.T) {
		sess := domain.NewSession(sessionID, "onboarding", time.Now().UTC())
		sess.CurrentNodeID = "ask-name"
		sess.Status = domain.StatusAwaitingInput
		sess.Context["name"] = "Ada"
		sess.Attempts["ask-name"] = 2

		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Get(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, sess.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, sess.Status, loaded.Status)
		assert.Equal(t, "Ada", loaded.Context["name"])
		assert.Equal(t, 2, loaded.Attempts["ask-name"])
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		sess := domain.NewSession(sessionID+"-copy", "onboarding", time.Now().UTC())
		sess.Context["city"] = "Lisbon"
		require.NoError(t, store.Save(ctx, sess))

		first, err := store.Get(ctx, sess.ID)
		require.NoError(t, err)
		first.Context["city"] = "mutated"

		second, err := store.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lisbon", second.Context["city"])
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, err := store.Get(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		sess := domain.NewSession(sessionID+"-del", "onboarding", time.Now().UTC())
		require.NoError(t, store.Save(ctx, sess))
		require.NoError(t, store.Delete(ctx, sess.ID))

		_, err := store.Get(ctx, sess.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		assert.NoError(t, store.Delete(ctx, sess.ID), "deleting a missing session is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewSession(id1, "onboarding", time.Now().UTC())))
		require.NoError(t, store.Save(ctx, domain.NewSession(id2, "onboarding", time.Now().UTC())))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}

// RunFlowStoreContract verifies that a FlowStore implementation adheres to
// the interface contract.
func RunFlowStoreContract(t *testing.T, store FlowStore) {
	ctx := context.Background()
	flowID := "contract-flow-" + time.Now().Format("20060102150405")

	def := &domain.FlowDefinition{
		ID:          flowID,
		Name:        "Contract flow",
		StartNodeID: "hello",
		Nodes: map[string]domain.Node{
			"hello": {ID: "hello", Type: domain.NodeMessage, Prompt: "Hi!"},
		},
	}

	t.Run("PutAndGet", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, def))

		loaded, err := store.Get(ctx, flowID)
		require.NoError(t, err)
		assert.Equal(t, def.Name, loaded.Name)
		assert.Equal(t, def.StartNodeID, loaded.StartNodeID)
		require.Contains(t, loaded.Nodes, "hello")
		assert.Equal(t, domain.NodeMessage, loaded.Nodes["hello"].Type)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		_, err := store.Get(ctx, "missing-"+flowID)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, def))
		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, flowID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, def))
		require.NoError(t, store.Delete(ctx, flowID))
		_, err := store.Get(ctx, flowID)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)
	})
}
