package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"skyauth/core"
)

// getOrAssignScript returns {profileID, created}. Redis runs scripts
// atomically, so the read and the counter bump cannot interleave.
var getOrAssignScript = redis.NewScript(`
local id = redis.call('HGET', KEYS[1], ARGV[1])
if id then
	return {tonumber(id), 0}
end
local n = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], ARGV[1], n)
return {n, 1}
`)

// RedisStore keeps the mapping in a hash plus a counter key, and bans in a
// second hash.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ core.IdentityStore = (*RedisStore)(nil)
	_ core.BanList       = (*RedisStore)(nil)
)

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return NewRedisStoreWithPrefix(client, "skyauth:")
}

func NewRedisStoreWithPrefix(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) entriesKey() string { return s.prefix + "profiles" }
func (s *RedisStore) counterKey() string { return s.prefix + "profiles:last_index" }
func (s *RedisStore) bansKey() string    { return s.prefix + "bans" }

func (s *RedisStore) Lookup(ctx context.Context, providerUserID string) (int, error) {
	id, err := s.client.HGet(ctx, s.entriesKey(), providerUserID).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, core.ErrNotFound
		}
		return 0, fmt.Errorf("redis hget: %w", err)
	}
	return id, nil
}

func (s *RedisStore) GetOrCreate(ctx context.Context, providerUserID string) (int, bool, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, false, core.ErrEmptyProviderID
	}

	res, err := getOrAssignScript.Run(ctx, s.client,
		[]string{s.entriesKey(), s.counterKey()}, providerUserID).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis get-or-assign: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis get-or-assign: unexpected reply of %d values", len(res))
	}
	return int(res[0]), res[1] == 1, nil
}

// Import copies an existing mapping without overwriting present entries and
// raises the counter to at least mapping.LastIndex.
func (s *RedisStore) Import(ctx context.Context, mapping *core.IdentityMapping) error {
	pipe := s.client.TxPipeline()
	for providerUserID, profileID := range mapping.Entries {
		pipe.HSetNX(ctx, s.entriesKey(), providerUserID, strconv.Itoa(profileID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis import: %w", err)
	}

	last, err := s.client.Get(ctx, s.counterKey()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis get counter: %w", err)
	}
	if mapping.LastIndex > last {
		return s.client.Set(ctx, s.counterKey(), mapping.LastIndex, 0).Err()
	}
	return nil
}

func (s *RedisStore) IsBanned(ctx context.Context, providerUserID string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.bansKey(), providerUserID).Result()
	if err != nil {
		return false, fmt.Errorf("redis hexists: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Ban(ctx context.Context, providerUserID, reason string) error {
	if strings.TrimSpace(providerUserID) == "" {
		return core.ErrEmptyProviderID
	}
	return s.client.HSet(ctx, s.bansKey(), providerUserID, reason).Err()
}

func (s *RedisStore) Unban(ctx context.Context, providerUserID string) error {
	return s.client.HDel(ctx, s.bansKey(), providerUserID).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
