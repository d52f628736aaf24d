package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the snapshot as one JSON file under a private directory.
// Permissions follow local-secret conventions: 0700 directory, 0600 file.
type FileStore struct {
	path string
}

// NewFileStore builds a store writing <dir>/<key>.json. An empty key falls
// back to [DefaultKey].
func NewFileStore(dir, key string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("snapshot: directory required")
	}
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, key+".json")}, nil
}

// Path returns the file backing this store.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the snapshot file.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("snapshot: read: %w", err)
	}
	return Decode(data)
}

// Save atomically replaces the snapshot file. A temp-file rename keeps a
// crash mid-write from producing a half-written snapshot.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Clear removes the snapshot file. Clearing an absent snapshot is a no-op.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot: remove: %w", err)
	}
	return nil
}
