package core

import (
	"context"
	"errors"
)

var (
	ErrProviderUserInfo    = errors.New("provider user info request failed")
	ErrProviderMemberRoles = errors.New("provider member roles request failed")
	ErrMemberNotFound      = errors.New("provider member not found")
)

// UserInfo is the provider's canonical identity for a bearer token.
type UserInfo struct {
	ProviderUserID string
	Username       string
	Discriminator  string
	Avatar         string
}

type IdentityProvider interface {
	// GetUserInfo resolves the "who am I" identity for accessToken.
	GetUserInfo(ctx context.Context, accessToken string) (*UserInfo, error)

	// GetMemberRoles lists the user's group memberships. A user outside the
	// group yields ErrMemberNotFound.
	GetMemberRoles(ctx context.Context, providerUserID string) ([]string, error)
}
