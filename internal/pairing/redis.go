package pairing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// pairingTTL bounds abandoned pairing records. Long enough to outlive any
// exam; refreshed on every write.
const pairingTTL = 12 * time.Hour

// RedisStore keeps one JSON pairing record per session.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed pairing store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (model.PairingRecord, bool, error) {
	var rec model.PairingRecord

	data, err := r.rdb.Get(ctx, config.CacheKey.PairingKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return rec, false, nil
		}
		return rec, false, fmt.Errorf("get pairing: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal pairing: %w", err)
	}
	return rec, true, nil
}

func (r *RedisStore) Put(ctx context.Context, rec model.PairingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pairing: %w", err)
	}
	if err := r.rdb.Set(ctx, config.CacheKey.PairingKey(rec.SessionID), data, pairingTTL).Err(); err != nil {
		return fmt.Errorf("store pairing: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, config.CacheKey.PairingKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete pairing: %w", err)
	}
	return nil
}
