// Package worker holds the background persistence pipeline: finished exam
// logs and mid-exam behavior flags are queued in Redis and drained by
// batch workers, so request paths never wait on Postgres.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// FlagJob is one queued flag batch for a session.
type FlagJob struct {
	SessionID string               `json:"session_id"`
	Flags     []model.BehaviorFlag `json:"flags"`
}

// Sink accepts persistence work from the live session path.
type Sink interface {
	EnqueueExamLog(ctx context.Context, examLog model.ExamLog) error
	EnqueueFlags(ctx context.Context, sessionID string, flags []model.BehaviorFlag) error
}

// RedisQueue pushes persistence jobs onto the worker queues.
type RedisQueue struct {
	rdb *redis.Client
}

// NewRedisQueue creates a Redis-backed sink.
func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) EnqueueExamLog(ctx context.Context, examLog model.ExamLog) error {
	payload, err := json.Marshal(examLog)
	if err != nil {
		return fmt.Errorf("encode exam log job: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistExamLogsQueue, payload).Err()
}

func (q *RedisQueue) EnqueueFlags(ctx context.Context, sessionID string, flags []model.BehaviorFlag) error {
	payload, err := json.Marshal(FlagJob{SessionID: sessionID, Flags: flags})
	if err != nil {
		return fmt.Errorf("encode flag job: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistFlagsQueue, payload).Err()
}
