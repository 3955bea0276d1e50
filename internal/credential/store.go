// Package credential persists the bearer token for the console session.
package credential

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenFileName is the fixed name the token is persisted under. It plays
// the role of the durable storage key: one token per console, overwritten
// on every new login.
const TokenFileName = ".parishdesk-token"

// Store holds the current bearer token. Read never fails outward and Clear
// is idempotent, so session teardown can always run to completion.
type Store interface {
	Save(token string) error
	Read() (string, bool)
	Clear() error
}

// FileStore keeps the token in a file so the session survives restarts.
type FileStore struct {
	path string
}

// NewFileStore creates a store rooted at dir. An empty dir falls back to
// the user home directory, then the working directory.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = home
		} else {
			dir = "."
		}
	}
	return &FileStore{path: filepath.Join(dir, TokenFileName)}
}

// Path returns the location of the token file.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the token, overwriting any prior value.
func (s *FileStore) Save(token string) error {
	return os.WriteFile(s.path, []byte(token), 0o600)
}

// Read returns the persisted token, or false when none is stored.
func (s *FileStore) Read() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", false
	}
	return token, true
}

// Clear removes the token. Clearing an already-empty store is not an error.
func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu         sync.Mutex
	token      string
	present    bool
	SaveCalls  int
	ClearCalls int
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.present = true
	s.SaveCalls++
	return nil
}

func (s *MemStore) Read() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.present
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.present = false
	s.ClearCalls++
	return nil
}
