package pricecache

import (
	"context"
	"sync"

	"github.com/divemart/pricewatch/internal/model"
)

// MemoryBackend keeps price sets in process memory. Used by tests and by
// the "memory" store driver for throwaway runs; nothing survives a restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	sets map[string]model.PriceSet
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{sets: make(map[string]model.PriceSet)}
}

func (m *MemoryBackend) Get(_ context.Context, productID string) (model.PriceSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[productID]
	if !ok {
		return nil, nil
	}
	return set.Clone(), nil
}

func (m *MemoryBackend) Put(_ context.Context, productID string, set model.PriceSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[productID] = set.Clone()
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
