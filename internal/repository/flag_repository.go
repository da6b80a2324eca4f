package repository

import (
	"context"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FlagRepository persists behavior flags raised while an exam is still
// running, so a crashed session leaves an audit trail even without a final
// exam log.
type FlagRepository struct {
	pool *pgxpool.Pool
}

// NewFlagRepository creates a new FlagRepository.
func NewFlagRepository(pool *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{pool: pool}
}

// BatchInsert stores a batch of flags for their sessions.
func (r *FlagRepository) BatchInsert(ctx context.Context, sessionID string, flags []model.BehaviorFlag) error {
	for _, f := range flags {
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO behavior_flags (session_id, flag_type, description, severity, flagged_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			sessionID, f.Type, f.Description, f.Severity, f.Timestamp,
		); err != nil {
			return err
		}
	}
	return nil
}

// ListBySession retrieves all persisted flags for a session in flag order.
func (r *FlagRepository) ListBySession(ctx context.Context, sessionID string) ([]model.BehaviorFlag, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT flag_type, description, severity, flagged_at
		 FROM behavior_flags WHERE session_id = $1 ORDER BY flagged_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []model.BehaviorFlag
	for rows.Next() {
		var f model.BehaviorFlag
		if err := rows.Scan(&f.Type, &f.Description, &f.Severity, &f.Timestamp); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}
