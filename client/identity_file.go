package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const identityFilePrefix = "//"

// FileIdentitySource reads the identity file written by the launcher. The
// file starts with a two byte comment prefix followed by the JSON identity.
type FileIdentitySource struct {
	Path string
}

// ReadRemoteIdentity returns nil, nil when the file is missing or empty.
func (s FileIdentitySource) ReadRemoteIdentity() (*RemoteIdentity, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	if len(data) >= len(identityFilePrefix) && string(data[:len(identityFilePrefix)]) == identityFilePrefix {
		data = data[len(identityFilePrefix):]
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var id *RemoteIdentity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return id, nil
}

// WriteIdentityFile writes id in the launcher's layout.
func WriteIdentityFile(path string, id RemoteIdentity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("marshal identity: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create identity dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append([]byte(identityFilePrefix), data...), 0o600); err != nil {
		return fmt.Errorf("write identity file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace identity file: %w", err)
	}
	return nil
}
