package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/findash/findash-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MemStore is an in-memory implementation of storage.Store for tests.
// It records every write so tests can assert which paths were touched.
type MemStore struct {
	mu      sync.Mutex
	Files   map[string][]byte
	Writes  []string
	Deletes []string
}

// NewMemStore creates a new MemStore
func NewMemStore() *MemStore {
	return &MemStore{Files: make(map[string][]byte)}
}

// Read returns the stored bytes for a path
func (m *MemStore) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores bytes under a path and records the write
func (m *MemStore) Write(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.Files[path] = stored
	m.Writes = append(m.Writes, path)
	return nil
}

// Delete removes a path
func (m *MemStore) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, path)
	m.Deletes = append(m.Deletes, path)
	return nil
}

// Exists reports whether a path is stored
func (m *MemStore) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Files[path]
	return ok, nil
}

// ListDirs returns the immediate subdirectory names under dir
func (m *MemStore) ListDirs(_ context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	seen := map[string]bool{}
	for path := range m.Files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if i := strings.Index(rest, "/"); i > 0 {
			seen[rest[:i]] = true
		}
	}
	var dirs []string
	for name := range seen {
		dirs = append(dirs, name)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ListFiles returns the file names directly under dir
func (m *MemStore) ListFiles(_ context.Context, dir string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var files []string
	for path := range m.Files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if !strings.Contains(rest, "/") {
			files = append(files, rest)
		}
	}
	sort.Strings(files)
	return files, nil
}

// WriteCount returns how many times a path was written
func (m *MemStore) WriteCount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.Writes {
		if p == path {
			n++
		}
	}
	return n
}

// NewTransaction builds a transaction for tests. Amount is mirrored to
// outflow for positive values and inflow for negative ones.
func NewTransaction(id, date, payee, amount string) *domain.Transaction {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(fmt.Sprintf("bad test date %q: %v", date, err))
	}
	a := decimal.RequireFromString(amount)
	t := &domain.Transaction{
		ID:    id,
		Date:  d,
		Payee: payee,
	}
	if a.IsNegative() {
		t.Inflow = a.Abs()
		t.Amount = a.Abs()
	} else {
		t.Outflow = a
		t.Amount = a
	}
	return t
}
