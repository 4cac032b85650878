package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ydb-platform/ydb-go-sdk/v3"
	"github.com/ydb-platform/ydb-go-sdk/v3/retry"
	yc "github.com/ydb-platform/ydb-go-yc"

	"skyauth/core"
)

//go:embed schema/ydb/schema.yql
var ydbSchema string

type YDBConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
	// ServiceAccountKeyFile selects Yandex Cloud service account credentials.
	ServiceAccountKeyFile string `yaml:"service_account_key_file" env:"SERVICE_ACCOUNT_KEY_FILE"`
	// MetadataCredentials uses the instance metadata service instead.
	MetadataCredentials bool `yaml:"metadata_credentials" env:"METADATA_CREDENTIALS"`
	CreateSchema        bool `yaml:"create_schema" env:"CREATE_SCHEMA"`
}

// YDBStore keeps the identity mapping in YDB. Each assignment runs in a
// serializable transaction that the SDK retries on conflicts.
type YDBStore struct {
	driver *ydb.Driver
	db     *sql.DB
}

var _ core.IdentityStore = (*YDBStore)(nil)

func NewYDBStore(ctx context.Context, cfg YDBConfig) (*YDBStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("ydb: dsn is required")
	}

	var opts []ydb.Option
	switch {
	case cfg.ServiceAccountKeyFile != "":
		opts = append(opts, yc.WithInternalCA(), yc.WithServiceAccountKeyFileCredentials(cfg.ServiceAccountKeyFile))
	case cfg.MetadataCredentials:
		opts = append(opts, yc.WithInternalCA(), yc.WithMetadataCredentials())
	default:
		opts = append(opts, ydb.WithAnonymousCredentials())
	}

	driver, err := ydb.Open(ctx, cfg.DSN, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open ydb: %w", err)
	}

	connector, err := ydb.Connector(driver)
	if err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to create ydb connector: %w", err)
	}

	store := &YDBStore{driver: driver, db: sql.OpenDB(connector)}

	if cfg.CreateSchema {
		if err := store.initSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return store, nil
}

func (s *YDBStore) initSchema(ctx context.Context) error {
	ctx = ydb.WithQueryMode(ctx, ydb.SchemeQueryMode)
	for _, stmt := range strings.Split(ydbSchema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			return err
		}
	}
	return nil
}

func (s *YDBStore) Lookup(ctx context.Context, providerUserID string) (int, error) {
	query := `
		DECLARE $provider_user_id AS Utf8;
		SELECT profile_id FROM profiles WHERE provider_user_id = $provider_user_id;
	`

	var profileID int64
	err := retry.Do(ctx, s.db, func(ctx context.Context, cc *sql.Conn) error {
		return cc.QueryRowContext(ctx, query, sql.Named("provider_user_id", providerUserID)).Scan(&profileID)
	}, retry.WithIdempotent(true))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return int(profileID), nil
}

func (s *YDBStore) GetOrCreate(ctx context.Context, providerUserID string) (int, bool, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, false, core.ErrEmptyProviderID
	}

	var (
		profileID int64
		created   bool
	)
	err := retry.DoTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		created = false

		err := tx.QueryRowContext(ctx, `
			DECLARE $provider_user_id AS Utf8;
			SELECT profile_id FROM profiles WHERE provider_user_id = $provider_user_id;
		`, sql.Named("provider_user_id", providerUserID)).Scan(&profileID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		var last int64
		err = tx.QueryRowContext(ctx, `SELECT last_index FROM profile_counter WHERE id = 0;`).Scan(&last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		profileID = last + 1

		_, err = tx.ExecContext(ctx, `
			DECLARE $last_index AS Int64;
			DECLARE $provider_user_id AS Utf8;
			DECLARE $created_at AS Timestamp;
			UPSERT INTO profile_counter (id, last_index) VALUES (0, $last_index);
			UPSERT INTO profiles (provider_user_id, profile_id, created_at)
			VALUES ($provider_user_id, $last_index, $created_at);
		`,
			sql.Named("last_index", profileID),
			sql.Named("provider_user_id", providerUserID),
			sql.Named("created_at", time.Now().UTC()),
		)
		if err != nil {
			return err
		}
		created = true
		return nil
	}, retry.WithIdempotent(true), retry.WithTxOptions(&sql.TxOptions{Isolation: sql.LevelSerializable}))
	if err != nil {
		return 0, false, fmt.Errorf("ydb get-or-create: %w", err)
	}
	return int(profileID), created, nil
}

func (s *YDBStore) Close() error {
	dbErr := s.db.Close()
	return errors.Join(dbErr, s.driver.Close(context.Background()))
}
