package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamLogRepository persists finished exam logs for integrity reporting.
// Question logs and behavior flags are stored as JSONB documents; they are
// only ever read back whole.
type ExamLogRepository struct {
	pool *pgxpool.Pool
}

// NewExamLogRepository creates a new ExamLogRepository.
func NewExamLogRepository(pool *pgxpool.Pool) *ExamLogRepository {
	return &ExamLogRepository{pool: pool}
}

// Upsert stores a finished exam log, replacing any previous write for the
// session. The persist worker may retry, so the write must be idempotent.
func (r *ExamLogRepository) Upsert(ctx context.Context, examLog model.ExamLog) error {
	questionLogs, err := json.Marshal(examLog.QuestionLogs)
	if err != nil {
		return fmt.Errorf("encode question logs: %w", err)
	}
	flags, err := json.Marshal(examLog.BehaviorFlags)
	if err != nil {
		return fmt.Errorf("encode behavior flags: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_logs (session_id, student_id, question_logs, behavior_flags,
		                        total_correct, total_questions, accuracy, integrity_score,
		                        recommendation, duration_seconds, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (session_id) DO UPDATE SET
		   question_logs = EXCLUDED.question_logs,
		   behavior_flags = EXCLUDED.behavior_flags,
		   total_correct = EXCLUDED.total_correct,
		   total_questions = EXCLUDED.total_questions,
		   accuracy = EXCLUDED.accuracy,
		   integrity_score = EXCLUDED.integrity_score,
		   recommendation = EXCLUDED.recommendation,
		   duration_seconds = EXCLUDED.duration_seconds,
		   end_time = EXCLUDED.end_time`,
		examLog.SessionID, examLog.StudentID, questionLogs, flags,
		examLog.TotalCorrect, examLog.TotalQuestions, examLog.Accuracy, examLog.IntegrityScore,
		examLog.Recommendation, examLog.ExamDurationSeconds, examLog.StartTime, examLog.EndTime,
	)
	return err
}

// GetBySessionID retrieves one finished exam log.
func (r *ExamLogRepository) GetBySessionID(ctx context.Context, sessionID string) (*model.ExamLog, error) {
	examLog := &model.ExamLog{}
	var questionLogs, flags []byte

	err := r.pool.QueryRow(ctx,
		`SELECT session_id, student_id, question_logs, behavior_flags,
		        total_correct, total_questions, accuracy, integrity_score,
		        recommendation, duration_seconds, start_time, end_time
		 FROM exam_logs WHERE session_id = $1`, sessionID,
	).Scan(&examLog.SessionID, &examLog.StudentID, &questionLogs, &flags,
		&examLog.TotalCorrect, &examLog.TotalQuestions, &examLog.Accuracy, &examLog.IntegrityScore,
		&examLog.Recommendation, &examLog.ExamDurationSeconds, &examLog.StartTime, &examLog.EndTime)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questionLogs, &examLog.QuestionLogs); err != nil {
		return nil, fmt.Errorf("decode question logs: %w", err)
	}
	if err := json.Unmarshal(flags, &examLog.BehaviorFlags); err != nil {
		return nil, fmt.Errorf("decode behavior flags: %w", err)
	}
	return examLog, nil
}

// ListRecent retrieves the newest finished exams for the review console.
func (r *ExamLogRepository) ListRecent(ctx context.Context, limit int) ([]model.ExamLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, student_id, question_logs, behavior_flags,
		        total_correct, total_questions, accuracy, integrity_score,
		        recommendation, duration_seconds, start_time, end_time
		 FROM exam_logs ORDER BY end_time DESC NULLS LAST LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []model.ExamLog
	for rows.Next() {
		var examLog model.ExamLog
		var questionLogs, flags []byte
		if err := rows.Scan(&examLog.SessionID, &examLog.StudentID, &questionLogs, &flags,
			&examLog.TotalCorrect, &examLog.TotalQuestions, &examLog.Accuracy, &examLog.IntegrityScore,
			&examLog.Recommendation, &examLog.ExamDurationSeconds, &examLog.StartTime, &examLog.EndTime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questionLogs, &examLog.QuestionLogs); err != nil {
			return nil, fmt.Errorf("decode question logs: %w", err)
		}
		if err := json.Unmarshal(flags, &examLog.BehaviorFlags); err != nil {
			return nil, fmt.Errorf("decode behavior flags: %w", err)
		}
		logs = append(logs, examLog)
	}
	return logs, rows.Err()
}
