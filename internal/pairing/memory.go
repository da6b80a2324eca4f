package pairing

import (
	"context"
	"sync"

	"github.com/invigilo/proctor-backend/internal/model"
)

// MemoryStore is the in-process pairing store for tests and single-node
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.PairingRecord
}

// NewMemoryStore creates an empty in-memory pairing store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.PairingRecord)}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (model.PairingRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[sessionID]
	return rec, ok, nil
}

func (m *MemoryStore) Put(_ context.Context, rec model.PairingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.SessionID] = rec
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sessionID)
	return nil
}
