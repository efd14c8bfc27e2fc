package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/adapters/memory"
	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

func testKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func sampleSession() *domain.Session {
	sess := domain.NewSession("sess-1", "onboarding", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	sess.CurrentNodeID = "ask-email"
	sess.Status = domain.StatusAwaitingInput
	sess.Context["email"] = "ada@example.com"
	sess.RecordMessage(domain.RoleUser, "hello", "ask-email", sess.CreatedAt)
	return sess
}

func encryptedStore(t *testing.T, cfg EncryptionConfig) (ports.SessionStore, *memory.SessionStore) {
	t.Helper()
	inner := memory.NewSessionStore()
	return Chain(inner, NewEncryptionMiddleware(cfg)), inner
}

func TestEncryptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := encryptedStore(t, EncryptionConfig{ActiveKey: testKey(1)})

	require.NoError(t, store.Save(ctx, sampleSession()))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "ask-email", got.CurrentNodeID)
	assert.Equal(t, "ada@example.com", got.Context["email"])
	assert.Len(t, got.History, 1)
}

func TestEncryptionHidesContentAtRest(t *testing.T) {
	ctx := context.Background()
	store, inner := encryptedStore(t, EncryptionConfig{ActiveKey: testKey(1)})

	require.NoError(t, store.Save(ctx, sampleSession()))

	raw, err := inner.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, raw.CurrentNodeID)
	assert.Empty(t, raw.History)
	assert.NotContains(t, raw.Context, "email")
	assert.Contains(t, raw.Context, "__encrypted__")
	// Status stays readable for monitoring.
	assert.Equal(t, domain.StatusAwaitingInput, raw.Status)
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	oldKey, newKey := testKey(1), testKey(2)

	oldStore, inner := encryptedStore(t, EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, oldStore.Save(ctx, sampleSession()))

	// A store rotated to a new active key still reads old sessions via the
	// fallback list.
	rotated := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	}))
	got, err := rotated.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Context["email"])
}

func TestEncryptionWrongKeyFails(t *testing.T) {
	ctx := context.Background()
	store, inner := encryptedStore(t, EncryptionConfig{ActiveKey: testKey(1)})
	require.NoError(t, store.Save(ctx, sampleSession()))

	other := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(9)}))
	_, err := other.Get(ctx, "sess-1")
	assert.ErrorContains(t, err, "decrypt")
}

func TestEncryptionRejectsPlainSessions(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewSessionStore()
	require.NoError(t, inner.Save(ctx, sampleSession()))

	store := Chain(inner, NewEncryptionMiddleware(EncryptionConfig{ActiveKey: testKey(1)}))
	_, err := store.Get(ctx, "sess-1")
	assert.ErrorContains(t, err, "encrypted envelope")
}

func TestEncryptionRequires32ByteKey(t *testing.T) {
	assert.Panics(t, func() {
		NewEncryptionMiddleware(EncryptionConfig{ActiveKey: []byte("short")})
	})
}
