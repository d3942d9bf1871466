package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/policy-intake/internal/common"
)

// BlobStore keeps upload bytes by document ID.
type BlobStore interface {
	Put(ctx context.Context, id uuid.UUID, content []byte) error
	Get(ctx context.Context, id uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemoryStore is a process-local BlobStore.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[uuid.UUID][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, id uuid.UUID, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = append([]byte(nil), content...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, fmt.Errorf("upload %s: %w", id, common.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

// DirStore writes uploads under a directory, one file per document.
type DirStore struct {
	Root string
}

func (d DirStore) path(id uuid.UUID) string {
	return filepath.Join(d.Root, id.String()+".pdf")
}

func (d DirStore) Put(_ context.Context, id uuid.UUID, content []byte) error {
	if err := os.MkdirAll(d.Root, 0o750); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	tmp := d.path(id) + ".tmp"
	if err := os.WriteFile(tmp, content, 0o640); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return os.Rename(tmp, d.path(id))
}

func (d DirStore) Get(_ context.Context, id uuid.UUID) ([]byte, error) {
	b, err := os.ReadFile(d.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("upload %s: %w", id, common.ErrNotFound)
	}
	return b, err
}

func (d DirStore) Delete(_ context.Context, id uuid.UUID) error {
	err := os.Remove(d.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
