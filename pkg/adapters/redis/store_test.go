package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

func newTestStore(t *testing.T, opts ...Option) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client, opts...), mr
}

func TestSessionStoreContract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunSessionStoreContract(t, store)
}

func TestSessionStoreTTL(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	sess := domain.NewSession("ttl-1", "onboarding", time.Now().UTC())
	require.NoError(t, store.Save(ctx, sess))

	// The key carries the TTL.
	ttl := mr.TTL("parley:session:ttl-1")
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 1)

	// After expiry the session is gone and List prunes the index.
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "ttl-1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, "ttl-1")
}

func TestSessionStorePrefix(t *testing.T) {
	store, mr := newTestStore(t, WithPrefix("acme:conv:"))
	ctx := context.Background()

	sess := domain.NewSession("p-1", "onboarding", time.Now().UTC())
	require.NoError(t, store.Save(ctx, sess))

	assert.True(t, mr.Exists("acme:conv:p-1"))
	assert.False(t, mr.Exists("parley:session:p-1"))
}

func TestSessionStoreRoundTripsHistory(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess := domain.NewSession("h-1", "onboarding", now)
	sess.RecordMessage(domain.RoleUser, "hello", "ask-code", now)
	sess.RecordMessage(domain.RoleAssistant, "hi!", "ask-code", now)
	sess.LastTurnID = "turn-9"
	sess.LastResult = &domain.TurnResult{TurnID: "turn-9", Messages: []string{"hi!"}, NodeID: "ask-code"}

	require.NoError(t, store.Save(ctx, sess))

	loaded, err := store.Get(ctx, "h-1")
	require.NoError(t, err)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, domain.RoleAssistant, loaded.History[1].Role)
	assert.Equal(t, "turn-9", loaded.LastTurnID)
	require.NotNil(t, loaded.LastResult)
	assert.Equal(t, []string{"hi!"}, loaded.LastResult.Messages)
}
