package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/invigilo/proctor-backend/internal/config"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ExamLogWorker drains finished exam logs from Redis into Postgres.
// Upserts are idempotent on session_id, so a crash between pop and
// insert at worst re-applies the same log.
type ExamLogWorker struct {
	examLogs *repository.ExamLogRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

func NewExamLogWorker(examLogs *repository.ExamLogRepository, rdb *redis.Client, log zerolog.Logger) *ExamLogWorker {
	return &ExamLogWorker{
		examLogs: examLogs,
		rdb:      rdb,
		log:      log.With().Str("component", "examlog_worker").Logger(),
	}
}

func (w *ExamLogWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ExamLogWorker started")

	buffer := make([]*model.ExamLog, 0, BatchSize)
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

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistExamLogsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // queue empty, loop back to check the flush timer
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

		var examLog model.ExamLog
		if err := json.Unmarshal([]byte(result[1]), &examLog); err != nil {
			// Malformed JSON can never succeed on retry. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &examLog)
	}
}

// flush upserts the batch row by row, requeueing anything that fails.
func (w *ExamLogWorker) flush(ctx context.Context, batch []*model.ExamLog) {
	requeueList := make([]*model.ExamLog, 0)

	for _, examLog := range batch {
		if err := w.examLogs.Upsert(ctx, *examLog); err != nil {
			w.log.Error().Err(err).Str("session_id", examLog.SessionID).Msg("Upsert failed, requeueing")
			requeueList = append(requeueList, examLog)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ExamLogWorker) requeue(ctx context.Context, items []*model.ExamLog) {
	pipe := w.rdb.Pipeline()
	for _, examLog := range items {
		data, _ := json.Marshal(examLog)
		pipe.RPush(ctx, config.WorkerKey.PersistExamLogsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing while the DB is down.
	time.Sleep(2 * time.Second)
}

func (w *ExamLogWorker) shutdown(buffer []*model.ExamLog) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flush(shutdownCtx, buffer)
	}
}
