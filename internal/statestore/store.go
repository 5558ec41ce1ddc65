// Package statestore persists notetrack's named JSON blobs: the main
// config, the two option-color maps, the Lark token cache, and the
// work-item identity cache (entries plus LRU order).
//
// Writes are atomic (temp file + rename) and the whole directory is
// guarded by a file lock so concurrent nt invocations don't interleave
// partial writes. A corrupt or missing blob loads as absent, never as a
// fatal error; every blob is re-derivable from the external trackers or
// re-enterable through settings.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// Blob names. Each is stored as <name>.json under the state directory.
const (
	BlobConfig       = "config"
	BlobColorsAuto   = "option-colors-auto"
	BlobColorsFixed  = "option-colors-fixed"
	BlobLarkToken    = "lark-token"
	BlobItemCache    = "workitem-cache"
	BlobItemCacheLRU = "workitem-cache-lru"
)

const (
	lockRetryDelay = 50 * time.Millisecond
	lockTimeout    = 5 * time.Second
)

// Store reads and writes named JSON blobs in a single directory.
type Store struct {
	dir  string
	lock *flock.Flock
}

// DefaultDir returns the default state directory (~/.notetrack).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".notetrack"), nil
}

// Open creates the state directory if needed and returns a store for it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Load reads the named blob into v. Returns false if the blob does not
// exist. A blob that exists but cannot be parsed is reported as an error;
// callers that treat corruption as "empty" (the caches) ignore it.
func (s *Store) Load(name string, v interface{}) (bool, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing %s: %w", name, err)
	}
	return true, nil
}

// Save writes the named blob atomically under the directory lock.
func (s *Store) Save(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", name, err)
	}

	// Another nt process may hold the lock; retry briefly rather than fail.
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("locking state dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("state dir %s is locked by another process", s.dir)
	}
	defer func() { _ = s.lock.Unlock() }()

	path := s.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// Delete removes the named blob. Missing blobs are not an error.
func (s *Store) Delete(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}
