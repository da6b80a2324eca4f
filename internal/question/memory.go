package question

import (
	"context"
	"sync"

	"github.com/invigilo/proctor-backend/internal/model"
)

// MemoryStore is the in-process question bank, seeded with the default
// bank. Used in tests and single-node deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	questions []model.Question
	version   int64
}

// NewMemoryStore creates a bank holding the default questions.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{questions: DefaultBank(), version: 1}
}

func (m *MemoryStore) Questions(_ context.Context) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]model.Question(nil), m.questions...), nil
}

func (m *MemoryStore) Update(_ context.Context, questionID string, patch model.QuestionPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.questions {
		if m.questions[i].QuestionID == questionID {
			applyPatch(&m.questions[i], patch)
			m.version++
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Add(_ context.Context, q model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = append(m.questions, q)
	m.version++
	return nil
}

func (m *MemoryStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions = DefaultBank()
	m.version++
	return nil
}

func (m *MemoryStore) Version(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}
