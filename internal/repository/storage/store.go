package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Store is the blob port the file-backed repositories persist through.
// Paths are slash-separated and relative to the data root; Read of a
// missing path returns an error satisfying errors.Is(err, fs.ErrNotExist).
type Store interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	// ListDirs returns the names (not paths) of subdirectories of dir.
	ListDirs(ctx context.Context, dir string) ([]string, error)
	// ListFiles returns the names of regular files directly under dir.
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// LocalStore implements Store on the local filesystem under a data root.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root, creating the
// directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func (s *LocalStore) Read(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(s.abs(path))
}

func (s *LocalStore) Write(_ context.Context, path string, data []byte) error {
	abs := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(abs, data, 0o644)
}

func (s *LocalStore) Delete(_ context.Context, path string) error {
	err := os.Remove(s.abs(path))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(s.abs(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *LocalStore) ListDirs(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs, nil
}

func (s *LocalStore) ListFiles(_ context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
