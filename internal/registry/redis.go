package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// recordTTL bounds how long an abandoned record lingers in Redis. Refreshed
// on every write, so live sessions never expire; well past StaleAfter so
// stale records are still readable as terminated before they vanish.
const recordTTL = 24 * time.Hour

// RedisRegistry stores one JSON record per session plus an index set of
// session IDs. Every successful command publishes a change event on the
// monitor channel so SSE dashboards can react between polls.
type RedisRegistry struct {
	rdb   *redis.Client
	log   zerolog.Logger
	nowFn func() time.Time
}

// NewRedisRegistry creates a Redis-backed registry.
func NewRedisRegistry(rdb *redis.Client, log zerolog.Logger) *RedisRegistry {
	return &RedisRegistry{
		rdb:   rdb,
		log:   log.With().Str("component", "redis_registry").Logger(),
		nowFn: time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (r *RedisRegistry) SetNowFunc(fn func() time.Time) {
	r.nowFn = fn
}

func (r *RedisRegistry) Register(ctx context.Context, rec model.ActiveSessionRecord) error {
	rec.LastUpdate = r.nowFn()
	if err := r.store(ctx, rec); err != nil {
		return err
	}
	if err := r.rdb.SAdd(ctx, config.CacheKey.RegistryIndexKey(), rec.SessionID).Err(); err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	r.publish(ctx, "register", rec.SessionID)
	return nil
}

func (r *RedisRegistry) Update(ctx context.Context, sessionID string, upd model.SessionUpdate) error {
	rec, ok, err := r.Get(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	applyUpdate(&rec, upd, r.nowFn())
	if err := r.store(ctx, rec); err != nil {
		return err
	}
	r.publish(ctx, "update", sessionID)
	return nil
}

func (r *RedisRegistry) LogActivity(ctx context.Context, sessionID, action string) error {
	rec, ok, err := r.Get(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	now := r.nowFn()
	rec.ActivityLog = append(rec.ActivityLog, model.ActivityEntry{Action: action, Timestamp: now})
	rec.LastUpdate = now
	if err := r.store(ctx, rec); err != nil {
		return err
	}
	r.publish(ctx, "activity", sessionID)
	return nil
}

func (r *RedisRegistry) AddFlag(ctx context.Context, sessionID string, flag model.BehaviorFlag) error {
	rec, ok, err := r.Get(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	rec.BehaviorFlags = append(rec.BehaviorFlags, flag)
	rec.LastUpdate = r.nowFn()
	if err := r.store(ctx, rec); err != nil {
		return err
	}
	r.publish(ctx, "flag", sessionID)
	return nil
}

func (r *RedisRegistry) Complete(ctx context.Context, sessionID string) error {
	rec, ok, err := r.Get(ctx, sessionID)
	if err != nil || !ok {
		return err
	}
	rec.Completed = true
	rec.WebcamActive = false
	rec.ScreenShareActive = false
	rec.MobileConnected = false
	rec.LastUpdate = r.nowFn()
	if err := r.store(ctx, rec); err != nil {
		return err
	}
	r.publish(ctx, "complete", sessionID)
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, sessionID string) error {
	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.RegistrySessionKey(sessionID))
	pipe.SRem(ctx, config.CacheKey.RegistryIndexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	r.publish(ctx, "remove", sessionID)
	return nil
}

func (r *RedisRegistry) Get(ctx context.Context, sessionID string) (model.ActiveSessionRecord, bool, error) {
	var rec model.ActiveSessionRecord

	data, err := r.rdb.Get(ctx, config.CacheKey.RegistrySessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("get session: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return rec, true, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]model.ActiveSessionRecord, error) {
	ids, err := r.rdb.SMembers(ctx, config.CacheKey.RegistryIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}

	out := make([]model.ActiveSessionRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Record expired but index entry survived; self-heal.
			_ = r.rdb.SRem(ctx, config.CacheKey.RegistryIndexKey(), id).Err()
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisRegistry) store(ctx context.Context, rec model.ActiveSessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.rdb.Set(ctx, config.CacheKey.RegistrySessionKey(rec.SessionID), data, recordTTL).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// publish emits a monitor event. Best-effort: a lost event is superseded
// by the dashboard's next poll.
func (r *RedisRegistry) publish(ctx context.Context, event, sessionID string) {
	payload, _ := json.Marshal(map[string]string{"type": event, "session_id": sessionID})
	if err := r.rdb.Publish(ctx, config.CacheKey.MonitorChannel(), payload).Err(); err != nil {
		r.log.Debug().Err(err).Str("event", event).Msg("Monitor publish failed")
	}
}
