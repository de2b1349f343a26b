package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appledger "github.com/erp/ledger/internal/application/ledger"
)

var _ appledger.ArchiveStore = (*LocalArchiveStore)(nil)

// LocalArchiveStore writes archives below a directory on the local disk.
// Meant for development and single-node installs.
type LocalArchiveStore struct {
	root string
}

// NewLocalArchiveStore creates dir if needed
func NewLocalArchiveStore(dir string) (*LocalArchiveStore, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid archive directory: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchiveStore{root: root}, nil
}

// Put writes body atomically and returns its file:// location
func (s *LocalArchiveStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".archive-*")
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return "file://" + filepath.ToSlash(path), nil
}

// resolve maps key below root, rejecting keys that escape it
func (s *LocalArchiveStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage key %q escapes the archive directory", key)
	}
	return path, nil
}

// Root returns the archive directory
func (s *LocalArchiveStore) Root() string {
	return s.root
}
