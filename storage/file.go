package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"skyauth/core"
)

// FileStore keeps the identity mapping as one indented JSON document,
// rewritten in full on every new assignment.
type FileStore struct {
	path string

	mu      sync.Mutex
	mapping *core.IdentityMapping
}

var _ core.IdentityStore = (*FileStore)(nil)

// NewFileStore loads path, creating an empty mapping file when it does not
// exist yet.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.mapping = core.NewIdentityMapping()
		if err := s.persist(s.mapping); err != nil {
			return nil, fmt.Errorf("create identity file: %w", err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	mapping := core.NewIdentityMapping()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, mapping); err != nil {
			return nil, fmt.Errorf("parse identity file %s: %w", path, err)
		}
	}
	s.mapping = mapping
	return s, nil
}

func (s *FileStore) Lookup(ctx context.Context, providerUserID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.mapping.Entries[providerUserID]
	if !ok {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// GetOrCreate persists a new assignment before returning it. When the write
// fails the in-memory mapping is left unchanged so a retry allocates the
// same id.
func (s *FileStore) GetOrCreate(ctx context.Context, providerUserID string) (int, bool, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return 0, false, core.ErrEmptyProviderID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.mapping.Entries[providerUserID]; ok {
		return id, false, nil
	}

	next := s.clone()
	id, _ := next.Assign(providerUserID)
	if err := s.persist(next); err != nil {
		return 0, false, err
	}
	s.mapping = next
	return id, true, nil
}

// Snapshot returns a copy of the current mapping.
func (s *FileStore) Snapshot() *core.IdentityMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clone()
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) clone() *core.IdentityMapping {
	m := &core.IdentityMapping{
		LastIndex: s.mapping.LastIndex,
		Entries:   make(map[string]int, len(s.mapping.Entries)+1),
	}
	for k, v := range s.mapping.Entries {
		m.Entries[k] = v
	}
	return m
}

func (s *FileStore) persist(m *core.IdentityMapping) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
