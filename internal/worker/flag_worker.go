package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// FlagWorker drains mid-exam behavior flags from Redis into Postgres.
// Flags are append-only, so batches commute and retries are safe.
type FlagWorker struct {
	flags *repository.FlagRepository
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewFlagWorker(flags *repository.FlagRepository, rdb *redis.Client, log zerolog.Logger) *FlagWorker {
	return &FlagWorker{
		flags: flags,
		rdb:   rdb,
		log:   log.With().Str("component", "flag_worker").Logger(),
	}
}

func (w *FlagWorker) Start(ctx context.Context) {
	w.log.Info().Msg("FlagWorker started")

	buffer := make([]*FlagJob, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flush(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistFlagsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var job FlagJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		if len(job.Flags) == 0 {
			continue
		}

		buffer = append(buffer, &job)
	}
}

func (w *FlagWorker) flush(ctx context.Context, batch []*FlagJob) {
	requeueList := make([]*FlagJob, 0)

	for _, job := range batch {
		if err := w.flags.BatchInsert(ctx, job.SessionID, job.Flags); err != nil {
			w.log.Error().Err(err).Str("session_id", job.SessionID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, job)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *FlagWorker) requeue(ctx context.Context, items []*FlagJob) {
	pipe := w.rdb.Pipeline()
	for _, job := range items {
		data, _ := json.Marshal(job)
		pipe.RPush(ctx, config.WorkerKey.PersistFlagsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	time.Sleep(2 * time.Second)
}

func (w *FlagWorker) shutdown(buffer []*FlagJob) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flush(shutdownCtx, buffer)
	}
}
