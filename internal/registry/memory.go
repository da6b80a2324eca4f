package registry

import (
	"context"
	"sync"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
)

// MemoryRegistry is the in-process reference implementation. Used in tests
// and single-node deployments where Redis is not available.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]model.ActiveSessionRecord
	nowFn    func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]model.ActiveSessionRecord),
		nowFn:    time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (m *MemoryRegistry) SetNowFunc(fn func() time.Time) {
	m.nowFn = fn
}

func (m *MemoryRegistry) Register(_ context.Context, rec model.ActiveSessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.LastUpdate = m.nowFn()
	m.sessions[rec.SessionID] = rec
	return nil
}

func (m *MemoryRegistry) Update(_ context.Context, sessionID string, upd model.SessionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	applyUpdate(&rec, upd, m.nowFn())
	m.sessions[sessionID] = rec
	return nil
}

func (m *MemoryRegistry) LogActivity(_ context.Context, sessionID, action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	now := m.nowFn()
	rec.ActivityLog = append(rec.ActivityLog, model.ActivityEntry{Action: action, Timestamp: now})
	rec.LastUpdate = now
	m.sessions[sessionID] = rec
	return nil
}

func (m *MemoryRegistry) AddFlag(_ context.Context, sessionID string, flag model.BehaviorFlag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	rec.BehaviorFlags = append(rec.BehaviorFlags, flag)
	rec.LastUpdate = m.nowFn()
	m.sessions[sessionID] = rec
	return nil
}

func (m *MemoryRegistry) Complete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	rec.Completed = true
	rec.WebcamActive = false
	rec.ScreenShareActive = false
	rec.MobileConnected = false
	rec.LastUpdate = m.nowFn()
	m.sessions[sessionID] = rec
	return nil
}

func (m *MemoryRegistry) Remove(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryRegistry) Get(_ context.Context, sessionID string) (model.ActiveSessionRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	return rec, ok, nil
}

func (m *MemoryRegistry) List(_ context.Context) ([]model.ActiveSessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ActiveSessionRecord, 0, len(m.sessions))
	for _, rec := range m.sessions {
		out = append(out, rec)
	}
	return out, nil
}
