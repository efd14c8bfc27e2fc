package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyflow/parley/pkg/domain"
	"github.com/parleyflow/parley/pkg/ports"
)

func TestSessionStoreContract(t *testing.T) {
	ports.RunSessionStoreContract(t, New(t.TempDir()))
}

func TestNewDefaultsBasePath(t *testing.T) {
	store := New("")
	assert.Equal(t, filepath.Join(".parley", "sessions"), store.basePath)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	sess := domain.NewSession("sess-1", "signup", time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), sess))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "sess-1.json", entries[0].Name())
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	sess := domain.NewSession("sess-1", "signup", time.Now().UTC())
	require.NoError(t, store.Save(context.Background(), sess))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "backup.json"), 0o755))

	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-1"}, ids)
}

func TestGetRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{nope"), 0o644))

	_, err := store.Get(context.Background(), "bad")
	assert.ErrorContains(t, err, "unmarshal session")
}

func TestSaveRejectsEmptyID(t *testing.T) {
	store := New(t.TempDir())
	err := store.Save(context.Background(), &domain.Session{})
	assert.ErrorContains(t, err, "session id cannot be empty")
}
