// Package credman keeps the control API token used by client commands.
// The token lives in the operating system keyring when one is available
// and in a private file otherwise.
package credman

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/zalando/go-keyring"
)

// ErrNoToken is returned by Get when nothing is stored.
var ErrNoToken = errors.New("credman: no token stored")

const tokenFileMode = 0o600

// Store holds one token.
type Store interface {
	Set(token string) error
	Get() (string, error)
	Delete() error
}

var (
	keyringSet    = keyring.Set
	keyringGet    = keyring.Get
	keyringDelete = keyring.Delete
)

// Keyring stores the token in the system keyring under Service and User.
type Keyring struct {
	Service string
	User    string
}

func NewKeyring() *Keyring {
	return &Keyring{
		Service: "shutterloop",
		User:    "rpc",
	}
}

func (k *Keyring) Set(token string) error {
	return keyringSet(k.Service, k.User, token)
}

func (k *Keyring) Get() (string, error) {
	token, err := keyringGet(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return token, err
}

func (k *Keyring) Delete() error {
	err := keyringDelete(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// FileStore keeps the token in a file readable only by its owner.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fsys afero.Fs, path string) *FileStore {
	return &FileStore{fs: fsys, path: path}
}

// Set writes the token atomically through a temporary file.
func (f *FileStore) Set(token string) error {
	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credman: create dir: %w", err)
	}
	tmp, err := afero.TempFile(f.fs, dir, ".token.tmp.*")
	if err != nil {
		return fmt.Errorf("credman: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		f.fs.Remove(tmpPath)
		return fmt.Errorf("credman: write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		f.fs.Remove(tmpPath)
		return fmt.Errorf("credman: close temp file: %w", err)
	}
	if err := f.fs.Chmod(tmpPath, tokenFileMode); err != nil {
		f.fs.Remove(tmpPath)
		return fmt.Errorf("credman: set permissions: %w", err)
	}
	if err := f.fs.Rename(tmpPath, f.path); err != nil {
		f.fs.Remove(tmpPath)
		return fmt.Errorf("credman: rename token file: %w", err)
	}
	return nil
}

func (f *FileStore) Get() (string, error) {
	b, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("credman: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (f *FileStore) Delete() error {
	err := f.fs.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("credman: %w", err)
	}
	return nil
}

// Manager prefers its primary store and falls back to the secondary one
// when the primary is unavailable.
type Manager struct {
	primary  Store
	fallback Store
}

func NewManager(primary, fallback Store) *Manager {
	return &Manager{primary: primary, fallback: fallback}
}

// Set stores token in the primary store, or in the fallback if that fails.
// It reports which one took it.
func (m *Manager) Set(token string) (where string, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("credman: empty token")
	}
	perr := m.primary.Set(token)
	if perr == nil {
		_ = m.fallback.Delete()
		return "keyring", nil
	}
	if err := m.fallback.Set(token); err != nil {
		return "", errors.Join(perr, err)
	}
	return "file", nil
}

func (m *Manager) Get() (string, error) {
	token, err := m.primary.Get()
	if err == nil && token != "" {
		return token, nil
	}
	return m.fallback.Get()
}

// Delete removes the token from both stores. A primary store that cannot
// be reached is only reported together with a fallback failure.
func (m *Manager) Delete() error {
	perr := m.primary.Delete()
	if ferr := m.fallback.Delete(); ferr != nil {
		return errors.Join(perr, ferr)
	}
	return nil
}
