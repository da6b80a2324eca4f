// Package question owns the mutable question bank behind the exams.
// Every mutation bumps a monotonic version so running exams can poll for
// mid-exam edits.
package question

import (
	"context"

	"github.com/invigilo/proctor-backend/internal/model"
)

// Store is the question bank contract.
type Store interface {
	// Questions returns the current bank.
	Questions(ctx context.Context) ([]model.Question, error)
	// Update applies a partial edit. Returns false when the ID is unknown.
	Update(ctx context.Context, questionID string, patch model.QuestionPatch) (bool, error)
	// Add appends a question to the bank.
	Add(ctx context.Context, q model.Question) error
	// Reset restores the seeded default bank.
	Reset(ctx context.Context) error
	// Version returns the monotonic bank version, bumped on every mutation.
	Version(ctx context.Context) (int64, error)
}

// applyPatch merges the non-nil fields of patch into q.
func applyPatch(q *model.Question, patch model.QuestionPatch) {
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Options != nil {
		// Copy so the stored bank never aliases a caller's slice.
		q.Options = append([]string(nil), patch.Options...)
	}
	if patch.CorrectAnswer != nil {
		q.CorrectAnswer = *patch.CorrectAnswer
	}
	if patch.Difficulty != nil {
		q.Difficulty = *patch.Difficulty
	}
	if patch.MinExpectedSeconds != nil {
		q.MinExpectedSeconds = *patch.MinExpectedSeconds
	}
}
