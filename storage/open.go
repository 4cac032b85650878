package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"skyauth/core"
)

type Config struct {
	Type       string      `yaml:"type" env:"TYPE"`
	FilePath   string      `yaml:"file_path" env:"FILE_PATH"`
	SQLitePath string      `yaml:"sqlite_path" env:"SQLITE_PATH"`
	Redis      RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	YDB        YDBConfig   `yaml:"ydb" envPrefix:"YDB_"`
}

type RedisConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

// Importer accepts an existing mapping, keeping its profile ids.
type Importer interface {
	Import(ctx context.Context, mapping *core.IdentityMapping) error
}

// Backend is an opened identity store plus the ban list that goes with it.
// Backends without ban storage get a MemoryBanList seeded from the static
// list.
type Backend struct {
	Store core.IdentityStore
	Bans  core.BanList
}

func (b *Backend) Close() error {
	return b.Store.Close()
}

func Open(ctx context.Context, cfg Config, staticBans []string, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(cfg.Type) {
	case "", "file":
		path := cfg.FilePath
		if path == "" {
			path = "data/profiles.json"
		}
		store, err := NewFileStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file store: %w", err)
		}
		logger.Info("using file identity store", "path", path)
		return &Backend{Store: store, Bans: NewMemoryBanList(staticBans...)}, nil

	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		if err := seedBans(ctx, store, staticBans); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("using SQLite identity store", "path", cfg.SQLitePath)
		return &Backend{Store: store, Bans: store}, nil

	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		store := NewRedisStore(client)
		if cfg.Redis.Prefix != "" {
			store = NewRedisStoreWithPrefix(client, cfg.Redis.Prefix)
		}
		if err := seedBans(ctx, store, staticBans); err != nil {
			store.Close()
			return nil, err
		}
		logger.Info("using redis identity store", "addr", opts.Addr)
		return &Backend{Store: store, Bans: store}, nil

	case "ydb":
		store, err := NewYDBStore(ctx, cfg.YDB)
		if err != nil {
			return nil, err
		}
		logger.Info("using YDB identity store")
		return &Backend{Store: store, Bans: NewMemoryBanList(staticBans...)}, nil

	case "memory", "mock":
		logger.Warn("using in-memory identity store, profile ids are lost on restart")
		return &Backend{Store: NewMemoryStore(), Bans: NewMemoryBanList(staticBans...)}, nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s (supported: file, sqlite, redis, ydb, memory)", cfg.Type)
	}
}

func seedBans(ctx context.Context, bans core.BanList, ids []string) error {
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if err := bans.Ban(ctx, id, "static configuration"); err != nil {
			return fmt.Errorf("seed ban %s: %w", id, err)
		}
	}
	return nil
}
