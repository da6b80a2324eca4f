package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// ControlSource is the out-of-band admin command channel for one session.
// Commands are queued by the dashboard and drained by the session runner
// on its poll cycle, so a command becomes observable within one interval.
type ControlSource interface {
	Push(ctx context.Context, sessionID string, cmd model.ControlCommand) error
	Poll(ctx context.Context, sessionID string) ([]model.ControlCommand, error)
}

// MemoryControl is the in-process control queue.
type MemoryControl struct {
	mu     sync.Mutex
	queues map[string][]model.ControlCommand
}

// NewMemoryControl creates an empty in-memory control channel.
func NewMemoryControl() *MemoryControl {
	return &MemoryControl{queues: make(map[string][]model.ControlCommand)}
}

func (m *MemoryControl) Push(_ context.Context, sessionID string, cmd model.ControlCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queues[sessionID] = append(m.queues[sessionID], cmd)
	return nil
}

func (m *MemoryControl) Poll(_ context.Context, sessionID string) ([]model.ControlCommand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmds := m.queues[sessionID]
	delete(m.queues, sessionID)
	return cmds, nil
}

// RedisControl queues control commands in a per-session Redis list so
// commands survive a dashboard/server split deployment.
type RedisControl struct {
	rdb *redis.Client
}

// NewRedisControl creates a Redis-backed control channel.
func NewRedisControl(rdb *redis.Client) *RedisControl {
	return &RedisControl{rdb: rdb}
}

func (r *RedisControl) Push(ctx context.Context, sessionID string, cmd model.ControlCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal control command: %w", err)
	}
	if err := r.rdb.RPush(ctx, config.CacheKey.ControlKey(sessionID), data).Err(); err != nil {
		return fmt.Errorf("push control command: %w", err)
	}
	return nil
}

func (r *RedisControl) Poll(ctx context.Context, sessionID string) ([]model.ControlCommand, error) {
	raw, err := r.rdb.LPopCount(ctx, config.CacheKey.ControlKey(sessionID), 32).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("poll control commands: %w", err)
	}

	cmds := make([]model.ControlCommand, 0, len(raw))
	for _, item := range raw {
		var cmd model.ControlCommand
		if err := json.Unmarshal([]byte(item), &cmd); err != nil {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
