package storage_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"skyauth/core"
	"skyauth/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_CreatesEmptyMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles.json")

	_, err := storage.NewFileStore(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastIndex":0,"entries":{}}`, string(data))
}

func TestFileStore_AssignsAndPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles.json")

	store, err := storage.NewFileStore(path)
	require.NoError(t, err)

	id, created, err := store.GetOrCreate(ctx, "A")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, id)

	id, created, err = store.GetOrCreate(ctx, "B")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, id)

	id, created, err = store.GetOrCreate(ctx, "A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, id)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lastIndex":2,"entries":{"A":1,"B":2}}`, string(data))

	reopened, err := storage.NewFileStore(path)
	require.NoError(t, err)
	id, err = reopened.Lookup(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	_, err = reopened.Lookup(ctx, "C")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFileStore_ReadsLegacyLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"lastIndex":3,"users":{"X":3}}`), 0o600))

	store, err := storage.NewFileStore(path)
	require.NoError(t, err)

	id, err := store.Lookup(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 3, id)

	id, created, err := store.GetOrCreate(ctx, "Y")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 4, id)

	var onDisk map[string]json.RawMessage
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Contains(t, onDisk, "entries")
	assert.NotContains(t, onDisk, "users")
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := storage.NewFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_EmptyProviderID(t *testing.T) {
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	require.NoError(t, err)

	_, _, err = store.GetOrCreate(context.Background(), "  ")
	assert.ErrorIs(t, err, core.ErrEmptyProviderID)
}

func TestFileStore_ConcurrentFirstLogin(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	require.NoError(t, err)

	const n = 16
	ids := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, _, err := store.GetOrCreate(ctx, "same-user")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, 1, id)
	}
	assert.Equal(t, 1, store.Snapshot().LastIndex)
}
