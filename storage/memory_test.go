package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"skyauth/core"
	"skyauth/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewSeededMemoryStore()

	id, err := store.Lookup(ctx, storage.ProviderUser2)
	require.NoError(t, err)
	assert.Equal(t, 2, id)

	id, created, err := store.GetOrCreate(ctx, "new")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, id)
	assert.Equal(t, 1, store.Calls())

	_, _, err = store.GetOrCreate(ctx, "")
	assert.ErrorIs(t, err, core.ErrEmptyProviderID)
}

func TestMemoryBanList(t *testing.T) {
	ctx := context.Background()
	bans := storage.NewMemoryBanList(storage.BannedUser, " ")

	banned, err := bans.IsBanned(ctx, storage.BannedUser)
	require.NoError(t, err)
	assert.True(t, banned)

	banned, err = bans.IsBanned(ctx, "")
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, bans.Unban(ctx, storage.BannedUser))
	banned, _ = bans.IsBanned(ctx, storage.BannedUser)
	assert.False(t, banned)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	backend, err := storage.Open(ctx, storage.Config{
		Type:     "file",
		FilePath: filepath.Join(dir, "profiles.json"),
	}, []string{"banned-1"}, nil)
	require.NoError(t, err)
	banned, err := backend.Bans.IsBanned(ctx, "banned-1")
	require.NoError(t, err)
	assert.True(t, banned)
	require.NoError(t, backend.Close())

	backend, err = storage.Open(ctx, storage.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(dir, "skyauth.db"),
	}, []string{"banned-2"}, nil)
	require.NoError(t, err)
	banned, err = backend.Bans.IsBanned(ctx, "banned-2")
	require.NoError(t, err)
	assert.True(t, banned)
	_, ok := backend.Store.(storage.Importer)
	assert.True(t, ok)
	require.NoError(t, backend.Close())

	_, err = storage.Open(ctx, storage.Config{Type: "cassandra"}, nil, nil)
	assert.ErrorContains(t, err, "unsupported store type")
}
