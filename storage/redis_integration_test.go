//go:build integration

package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"skyauth/core"
	"skyauth/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) *storage.RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	require.NoError(t, client.Ping(ctx).Err())

	store := storage.NewRedisStoreWithPrefix(client, "test:")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStore_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	id, created, err := store.GetOrCreate(ctx, "A")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, id)

	id, created, err = store.GetOrCreate(ctx, "A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, id)

	_, err = store.Lookup(ctx, "B")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestRedisStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	const n = 32
	ids := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, _, err := store.GetOrCreate(ctx, "same")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()
	for _, id := range ids {
		assert.Equal(t, 1, id)
	}

	id, created, err := store.GetOrCreate(ctx, "other")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, id)
}

func TestRedisStore_ImportAndBans(t *testing.T) {
	ctx := context.Background()
	store := newRedisStore(t)

	mapping := core.NewIdentityMapping()
	mapping.Entries["X"] = 5
	mapping.LastIndex = 5
	require.NoError(t, store.Import(ctx, mapping))

	id, created, err := store.GetOrCreate(ctx, "Y")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 6, id)

	require.NoError(t, store.Ban(ctx, "X", "reason"))
	banned, err := store.IsBanned(ctx, "X")
	require.NoError(t, err)
	assert.True(t, banned)
	require.NoError(t, store.Unban(ctx, "X"))
	banned, err = store.IsBanned(ctx, "X")
	require.NoError(t, err)
	assert.False(t, banned)
}
