package console

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// TokenStore persists the refresh token across sessions. The access token is
// never written to a TokenStore.
type TokenStore interface {
	LoadRefreshToken() (string, error)
	SaveRefreshToken(token string) error
	ClearRefreshToken() error
}

type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) LoadRefreshToken() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) SaveRefreshToken(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryTokenStore) ClearRefreshToken() error {
	return m.SaveRefreshToken("")
}

type tokenFile struct {
	RefreshToken string `yaml:"refresh_token"`
}

// FileTokenStore keeps the refresh token in a YAML file readable only by the owner.
type FileTokenStore struct {
	Path string
}

func (f *FileTokenStore) LoadRefreshToken() (string, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	var contents tokenFile
	if err := yaml.Unmarshal(raw, &contents); err != nil {
		return "", fmt.Errorf("failed to parse token file %s: %w", f.Path, err)
	}
	return contents.RefreshToken, nil
}

func (f *FileTokenStore) SaveRefreshToken(token string) error {
	raw, err := yaml.Marshal(tokenFile{RefreshToken: token})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.Path, raw, 0o600)
}

func (f *FileTokenStore) ClearRefreshToken() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
