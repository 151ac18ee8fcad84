package fs

import (
	"SupplyRun/internal/cli/session"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SessionStore keeps the signed-in identity in a JSON file under the user
// config directory. Dir overrides the directory.
type SessionStore struct {
	Dir string
}

var _ session.Store = SessionStore{}

func (s SessionStore) configDir() (string, error) {
	p := s.Dir
	if p == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(dir, "SupplyRun")
	}
	if err := os.MkdirAll(p, 0o700); err != nil {
		return "", err
	}
	return p, nil
}

func (s SessionStore) sessionPath() (string, error) {
	dir, err := s.configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// Save writes id, replacing any stored identity.
func (s SessionStore) Save(id session.Identity) error {
	p, err := s.sessionPath()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return err
	}
	// replaced atomically
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Load returns the stored identity, or nil when none is stored.
func (s SessionStore) Load() (*session.Identity, error) {
	p, err := s.sessionPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var id session.Identity
	if err := json.Unmarshal(b, &id); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", p, err)
	}
	if id.UID == "" || id.Token == "" {
		return nil, nil
	}
	return &id, nil
}

// Clear removes the stored identity. Clearing an empty store is not an error.
func (s SessionStore) Clear() error {
	p, err := s.sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
