package core

import (
	"slices"
	"sync"
)

// Session is what downstream character selection knows about an accepted
// connection.
type Session struct {
	ProfileID      int
	Roles          []string
	ProviderUserID string
}

// Sessions tracks accepted connections. Writes happen on the scheduler
// loop; reads may come from HTTP handlers.
type Sessions struct {
	cfg CharacterConfig

	mu       sync.RWMutex
	sessions map[int]Session
}

func NewSessions(cfg CharacterConfig) *Sessions {
	if cfg.DefaultSlots < 1 {
		cfg.DefaultSlots = DefaultCharacterSlots
	}
	if cfg.SlotsWithRole < 1 {
		cfg.SlotsWithRole = DefaultSlotsWithRole
	}
	return &Sessions{cfg: cfg, sessions: map[int]Session{}}
}

// Accept records a verdict, replacing any earlier session on the slot.
func (s *Sessions) Accept(v Verdict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[v.ConnectionID] = Session{
		ProfileID:      v.ProfileID,
		Roles:          slices.Clone(v.Roles),
		ProviderUserID: v.ProviderUserID,
	}
}

func (s *Sessions) Remove(connID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, connID)
}

func (s *Sessions) Get(connID int) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[connID]
	if ok {
		sess.Roles = slices.Clone(sess.Roles)
	}
	return sess, ok
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// MaxCharacterSlots is the character limit for the connection's session.
func (s *Sessions) MaxCharacterSlots(connID int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[connID]
	if ok && s.cfg.ExtraSlotRoleID != "" && slices.Contains(sess.Roles, s.cfg.ExtraSlotRoleID) {
		return s.cfg.SlotsWithRole
	}
	return s.cfg.DefaultSlots
}

// ConnectionsFor lists live connections bound to providerUserID, in
// ascending order.
func (s *Sessions) ConnectionsFor(providerUserID string) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int
	for connID, sess := range s.sessions {
		if providerUserID != "" && sess.ProviderUserID == providerUserID {
			ids = append(ids, connID)
		}
	}
	slices.Sort(ids)
	return ids
}
