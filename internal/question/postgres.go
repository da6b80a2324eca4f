package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the question bank. The version counter lives in
// its own single-row table and is bumped inside the same transaction as
// the mutation it describes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed question bank.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Questions(ctx context.Context) ([]model.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT question_id, text, options, correct_answer, difficulty, min_expected_seconds
		 FROM question_bank
		 ORDER BY question_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.QuestionID, &q.Text, &options, &q.CorrectAnswer, &q.Difficulty, &q.MinExpectedSeconds); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decode options for %s: %w", q.QuestionID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, questionID string, patch model.QuestionPatch) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var q model.Question
	var options []byte
	err = tx.QueryRow(ctx,
		`SELECT question_id, text, options, correct_answer, difficulty, min_expected_seconds
		 FROM question_bank WHERE question_id = $1 FOR UPDATE`, questionID,
	).Scan(&q.QuestionID, &q.Text, &options, &q.CorrectAnswer, &q.Difficulty, &q.MinExpectedSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return false, fmt.Errorf("decode options for %s: %w", questionID, err)
	}

	applyPatch(&q, patch)

	encoded, err := json.Marshal(q.Options)
	if err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE question_bank
		 SET text = $2, options = $3, correct_answer = $4, difficulty = $5, min_expected_seconds = $6
		 WHERE question_id = $1`,
		q.QuestionID, q.Text, encoded, q.CorrectAnswer, q.Difficulty, q.MinExpectedSeconds,
	); err != nil {
		return false, err
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *PostgresStore) Add(ctx context.Context, q model.Question) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertQuestion(ctx, tx, q); err != nil {
		return err
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM question_bank`); err != nil {
		return err
	}
	for _, q := range DefaultBank() {
		if err := insertQuestion(ctx, tx, q); err != nil {
			return err
		}
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureSeeded fills an empty bank with the default questions. An already
// populated bank is left untouched, including its version.
func (s *PostgresStore) EnsureSeeded(ctx context.Context) error {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM question_bank`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, q := range DefaultBank() {
		if err := insertQuestion(ctx, tx, q); err != nil {
			return err
		}
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Version(ctx context.Context) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, `SELECT version FROM question_bank_version WHERE id = 1`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func insertQuestion(ctx context.Context, tx pgx.Tx, q model.Question) error {
	encoded, err := json.Marshal(q.Options)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO question_bank (question_id, text, options, correct_answer, difficulty, min_expected_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		q.QuestionID, q.Text, encoded, q.CorrectAnswer, q.Difficulty, q.MinExpectedSeconds,
	)
	return err
}

func bumpVersion(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `UPDATE question_bank_version SET version = version + 1 WHERE id = 1`)
	return err
}
