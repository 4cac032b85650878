package core

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyProviderID = errors.New("empty provider user id")
)

// IdentityStore maps provider user ids onto stable profile ids.
// GetOrCreate must serialize its read-modify-write so concurrent first
// logins of one provider id never receive two profile ids.
type IdentityStore interface {
	Lookup(ctx context.Context, providerUserID string) (int, error)

	GetOrCreate(ctx context.Context, providerUserID string) (profileID int, created bool, err error)

	Close() error
}

type BanList interface {
	IsBanned(ctx context.Context, providerUserID string) (bool, error)

	Ban(ctx context.Context, providerUserID, reason string) error

	Unban(ctx context.Context, providerUserID string) error
}
