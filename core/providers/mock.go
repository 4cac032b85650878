package providers

import (
	"context"
	"sync"

	"skyauth/core"
)

// Predefined test access tokens
const (
	Token1 = "mock_access_token_1"
	Token2 = "mock_access_token_2"
	Token3 = "mock_access_token_3"
)

// Predefined test roles
const (
	RoleWhitelisted = "role_whitelisted"
	RoleSupporter   = "role_supporter"
)

// Predefined test user info
var (
	User1 = &core.UserInfo{
		ProviderUserID: "100000000000000001",
		Username:       "Mock User One",
		Discriminator:  "0001",
	}

	User2 = &core.UserInfo{
		ProviderUserID: "100000000000000002",
		Username:       "Mock User Two",
		Discriminator:  "0002",
	}

	// User3 is not a member of the guild.
	User3 = &core.UserInfo{
		ProviderUserID: "100000000000000003",
		Username:       "Mock User Three",
	}
)

// MockProvider is a test implementation of IdentityProvider
type MockProvider struct {
	mu          sync.Mutex
	tokenToUser map[string]*core.UserInfo
	memberRoles map[string][]string

	// track method calls for verification
	GetUserInfoCalls    int
	GetMemberRolesCalls int
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		tokenToUser: map[string]*core.UserInfo{
			Token1: User1,
			Token2: User2,
			Token3: User3,
		},
		memberRoles: map[string][]string{
			User1.ProviderUserID: {RoleWhitelisted, RoleSupporter},
			User2.ProviderUserID: {RoleWhitelisted},
		},
	}
}

// SetRoles replaces the guild roles for a user. A nil slice removes the
// user from the guild.
func (m *MockProvider) SetRoles(providerUserID string, roles []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if roles == nil {
		delete(m.memberRoles, providerUserID)
		return
	}
	m.memberRoles[providerUserID] = roles
}

func (m *MockProvider) GetUserInfo(ctx context.Context, accessToken string) (*core.UserInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetUserInfoCalls++

	user, ok := m.tokenToUser[accessToken]
	if !ok {
		return nil, core.ErrProviderUserInfo
	}

	copied := *user
	return &copied, nil
}

func (m *MockProvider) GetMemberRoles(ctx context.Context, providerUserID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetMemberRolesCalls++

	roles, ok := m.memberRoles[providerUserID]
	if !ok {
		return nil, core.ErrMemberNotFound
	}
	return append([]string(nil), roles...), nil
}

// Calls returns the call counters under the lock.
func (m *MockProvider) Calls() (userInfo, memberRoles int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetUserInfoCalls, m.GetMemberRolesCalls
}
