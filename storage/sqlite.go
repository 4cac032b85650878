package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"skyauth/core"

	_ "modernc.org/sqlite"
)

//go:embed schema/sqlite/schema.sql
var sqliteSchema string

// SQLiteStore keeps the identity mapping and the ban list in one SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ core.IdentityStore = (*SQLiteStore)(nil)
	_ core.BanList       = (*SQLiteStore)(nil)
)

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes every read-modify-write.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

func (s *SQLiteStore) Lookup(ctx context.Context, providerUserID string) (int, error) {
	query := `
		SELECT profile_id
		FROM profiles
		WHERE provider_user_id = ?
	`

	var profileID int
	err := s.db.QueryRowContext(ctx, query, providerUserID).Scan(&profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, core.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return profileID, nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, providerUserID string) (int, bool, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, false, core.ErrEmptyProviderID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback()

	var profileID int
	err = tx.QueryRowContext(ctx,
		`SELECT profile_id FROM profiles WHERE provider_user_id = ?`,
		providerUserID,
	).Scan(&profileID)
	if err == nil {
		return profileID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	err = tx.QueryRowContext(ctx,
		`UPDATE profile_counter SET last_index = last_index + 1 WHERE id = 0 RETURNING last_index`,
	).Scan(&profileID)
	if err != nil {
		return 0, false, fmt.Errorf("advance profile counter: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (provider_user_id, profile_id, created_at) VALUES (?, ?, ?)`,
		providerUserID, profileID, time.Now().Unix(),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return 0, false, fmt.Errorf("profile id %d already taken: %w", profileID, err)
		}
		return 0, false, err
	}

	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return profileID, true, nil
}

// Import writes an existing mapping, keeping its profile ids. Entries that
// already exist are left untouched.
func (s *SQLiteStore) Import(ctx context.Context, mapping *core.IdentityMapping) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for providerUserID, profileID := range mapping.Entries {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO profiles (provider_user_id, profile_id, created_at) VALUES (?, ?, ?)`,
			providerUserID, profileID, now,
		)
		if err != nil {
			return fmt.Errorf("import %s: %w", providerUserID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE profile_counter SET last_index = MAX(last_index, ?, (SELECT COALESCE(MAX(profile_id), 0) FROM profiles)) WHERE id = 0`,
		mapping.LastIndex,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) IsBanned(ctx context.Context, providerUserID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bans WHERE provider_user_id = ?`,
		providerUserID,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) Ban(ctx context.Context, providerUserID, reason string) error {
	if strings.TrimSpace(providerUserID) == "" {
		return core.ErrEmptyProviderID
	}
	query := `
		INSERT INTO bans (provider_user_id, reason, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (provider_user_id) DO UPDATE SET reason = excluded.reason
	`
	_, err := s.db.ExecContext(ctx, query, providerUserID, reason, time.Now().Unix())
	return err
}

func (s *SQLiteStore) Unban(ctx context.Context, providerUserID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bans WHERE provider_user_id = ?`, providerUserID)
	return err
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	return strings.Contains(errMsg, "UNIQUE constraint failed") ||
		strings.Contains(errMsg, "UNIQUE") ||
		strings.Contains(errMsg, "unique")
}
