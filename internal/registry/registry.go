// Package registry persists database registrations and saved queries.
// Both stores are external collaborators from the core's point of view:
// they are injected as interfaces and the file-backed implementations load
// on construction and save on every write.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// ErrNotFound is returned when a registration or saved query is missing.
var ErrNotFound = errors.New("registry: not found")

// Database is one registered database connection. Driver selects the
// engine ("postgres" when empty).
type Database struct {
	ID       string `json:"id"`
	Host     string `json:"host"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
	Port     string `json:"port"`
	Driver   string `json:"driver,omitempty"`
}

// Store is the registration store injected into the server and the query
// executor.
type Store interface {
	Get(id string) (Database, error)
	Set(db Database) error
	Delete(id string) error
	IDs() []string
	Exists(id string) bool
}

// QueryStore holds named saved queries.
type QueryStore interface {
	All() map[string]string
	Set(name, query string) error
}

// FileStore is a Store backed by a JSON file, loaded once at construction
// and rewritten on every mutation.
type FileStore struct {
	path string

	mu  sync.RWMutex
	dbs map[string]Database
}

// OpenFileStore loads the registration file at path, treating a missing
// file as an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, dbs: make(map[string]Database)}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.dbs); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", path, err)
	}
	for id, db := range s.dbs {
		db.ID = id
		s.dbs[id] = db
	}
	return s, nil
}

// Get returns the registration for id.
func (s *FileStore) Get(id string) (Database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, ok := s.dbs[id]
	if !ok {
		return Database{}, fmt.Errorf("%w: database %q", ErrNotFound, id)
	}
	return db, nil
}

// Set creates or replaces a registration and persists the store.
func (s *FileStore) Set(db Database) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbs[db.ID] = db
	return s.saveLocked()
}

// Delete removes a registration and persists the store.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[id]; !ok {
		return fmt.Errorf("%w: database %q", ErrNotFound, id)
	}
	delete(s.dbs, id)
	return s.saveLocked()
}

// IDs returns all registered ids, sorted.
func (s *FileStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.dbs))
	for id := range s.dbs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Exists reports whether id is registered.
func (s *FileStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dbs[id]
	return ok
}

func (s *FileStore) saveLocked() error {
	raw, err := json.MarshalIndent(s.dbs, "", "    ")
	if err != nil {
		return fmt.Errorf("registry: encode store: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("registry: write %s: %w", s.path, err)
	}
	return nil
}

// FileQueryStore is a QueryStore backed by a JSON file. A fresh store
// starts with an empty "current" slot, mirroring the editor state the UI
// keeps.
type FileQueryStore struct {
	path string

	mu      sync.RWMutex
	queries map[string]string
}

// OpenFileQueryStore loads the saved-query file at path, treating a
// missing file as a fresh store.
func OpenFileQueryStore(path string) (*FileQueryStore, error) {
	s := &FileQueryStore{path: path, queries: map[string]string{"current": ""}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &s.queries); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", path, err)
	}
	return s, nil
}

// All returns a copy of every saved query keyed by name.
func (s *FileQueryStore) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.queries))
	for k, v := range s.queries {
		out[k] = v
	}
	return out
}

// Set saves or replaces a query and persists the store.
func (s *FileQueryStore) Set(name, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[name] = query
	raw, err := json.MarshalIndent(s.queries, "", "    ")
	if err != nil {
		return fmt.Errorf("registry: encode queries: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("registry: write %s: %w", s.path, err)
	}
	return nil
}
