package repository

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// MemoryStore keeps snapshots in process. Snapshots are stored encoded so
// callers cannot mutate what was saved.
type MemoryStore struct {
	mu      sync.Mutex
	current []byte
	version int64
	saves   int
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Load(ctx context.Context) (entity.Baseline, error) {
	if err := ctx.Err(); err != nil {
		return entity.Baseline{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return entity.EmptyBaseline(), nil
	}
	return decodeBaseline(m.current)
}

func (m *MemoryStore) Swap(ctx context.Context, expectedVersion int64, next entity.Baseline) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkNext(expectedVersion, next); err != nil {
		return err
	}
	raw, err := encodeBaseline(next)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.version != expectedVersion {
		return conflictError(expectedVersion, m.version)
	}
	m.current = raw
	m.version = next.Version
	m.saves++
	return nil
}

// Saves counts successful swaps.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (m *MemoryStore) Close() error { return nil }
