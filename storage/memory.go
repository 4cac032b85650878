package storage

import (
	"context"
	"strings"
	"sync"

	"skyauth/core"
)

// Predefined test provider ids
const (
	ProviderUser1 = "100000000000000001"
	ProviderUser2 = "100000000000000002"
	BannedUser    = "100000000000000666"
)

// MemoryStore is an in-process IdentityStore. Mappings are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	mapping *core.IdentityMapping

	// track method calls for verification
	GetOrCreateCalls int
}

var _ core.IdentityStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mapping: core.NewIdentityMapping()}
}

// NewSeededMemoryStore returns a store with ProviderUser1 and ProviderUser2
// already assigned profile ids 1 and 2.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	s.mapping.Assign(ProviderUser1)
	s.mapping.Assign(ProviderUser2)
	return s
}

func (s *MemoryStore) Lookup(ctx context.Context, providerUserID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.mapping.Entries[providerUserID]
	if !ok {
		return 0, core.ErrNotFound
	}
	return id, nil
}

func (s *MemoryStore) GetOrCreate(ctx context.Context, providerUserID string) (int, bool, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, false, core.ErrEmptyProviderID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetOrCreateCalls++

	id, created := s.mapping.Assign(providerUserID)
	return id, created, nil
}

func (s *MemoryStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetOrCreateCalls
}

func (s *MemoryStore) Close() error {
	return nil
}

// MemoryBanList is a BanList seeded from static configuration.
type MemoryBanList struct {
	mu     sync.RWMutex
	banned map[string]string
}

var _ core.BanList = (*MemoryBanList)(nil)

func NewMemoryBanList(providerUserIDs ...string) *MemoryBanList {
	b := &MemoryBanList{banned: map[string]string{}}
	for _, id := range providerUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			b.banned[id] = ""
		}
	}
	return b
}

func (b *MemoryBanList) IsBanned(ctx context.Context, providerUserID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.banned[providerUserID]
	return ok, nil
}

func (b *MemoryBanList) Ban(ctx context.Context, providerUserID, reason string) error {
	if strings.TrimSpace(providerUserID) == "" {
		return core.ErrEmptyProviderID
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banned[providerUserID] = reason
	return nil
}

func (b *MemoryBanList) Unban(ctx context.Context, providerUserID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.banned, providerUserID)
	return nil
}
