// Package regen decides when an issued pass bundle may be served from cache
// and when it must be rebuilt. The cache is content-addressed: a bundle is
// reusable only while the fingerprint of its inputs is unchanged.
package regen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrDemonWolf/linkden-sub002/core/canon"
	"github.com/MrDemonWolf/linkden-sub002/core/fsx"
)

// Entry is one cached bundle: the fingerprint it was built from, the archive
// bytes, and when it was produced. No TTL: entries are invalidated only by
// fingerprint drift.
type Entry struct {
	PassID      string    `json:"pass_id"`
	Fingerprint string    `json:"fingerprint"`
	Archive     []byte    `json:"archive"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the injected cache backend. Keys are logical pass identities, so
// storing a fresh entry atomically evicts the stale one for that pass.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (Entry, bool, error)
	Put(key string, entry Entry) error
	Delete(key string) error
}

// MemoryStore is the in-process store used by tests and single-node
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *MemoryStore) Put(key string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// DiskStore persists entries as one JSON file per key under a directory,
// written atomically so a crashed process never leaves a torn entry.
type DiskStore struct {
	Dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := fsx.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("cache directory: %w", err)
	}
	return &DiskStore{Dir: dir}, nil
}

func (s *DiskStore) path(key string) string {
	// Keys contain pass-type identifiers with dots and slashes; the file
	// name is the digest of the key, not the key itself.
	return filepath.Join(s.Dir, canon.SHA256Hex([]byte(key))+".json")
}

func (s *DiskStore) Get(key string) (Entry, bool, error) {
	// #nosec G304 -- path is derived from the store directory and a key digest.
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("parse cache entry: %w", err)
	}
	return entry, true, nil
}

func (s *DiskStore) Put(key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := fsx.WriteFileAtomic(s.path(key), data, 0o600); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

func (s *DiskStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}
