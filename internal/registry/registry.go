// Package registry keeps the shared directory of active exam sessions that
// the admin dashboard monitors. Records are mutated through a narrow command
// set rather than whole-record overwrites so concurrent writers cannot
// clobber each other's fields; every command is safe to retry.
package registry

import (
	"context"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
)

// StaleAfter is the liveness window for registry records. A record whose
// lastUpdate is older than this is presented as terminated regardless of
// stored state. Deliberately longer than pairing.HeartbeatWindow (10s):
// full session pushes happen every 2s, so 30s of silence means the client
// is gone, not merely between heartbeats.
const StaleAfter = 30 * time.Second

// Registry is the session directory command protocol. All commands on an
// unknown sessionID are no-ops except Register. Implementations must be
// safe for concurrent use.
type Registry interface {
	// Register inserts or replaces the whole record and refreshes lastUpdate.
	Register(ctx context.Context, rec model.ActiveSessionRecord) error
	// Update shallow-merges only the provided fields. Identity fields
	// (sessionID, studentID, studentName) can never change.
	Update(ctx context.Context, sessionID string, upd model.SessionUpdate) error
	// LogActivity appends one entry to the activity log; old entries are
	// never removed (display truncation is the dashboard's concern).
	LogActivity(ctx context.Context, sessionID, action string) error
	// AddFlag appends a behavior flag to the record.
	AddFlag(ctx context.Context, sessionID string, flag model.BehaviorFlag) error
	// Complete turns off the three recording-active booleans.
	Complete(ctx context.Context, sessionID string) error
	// Remove deletes the record.
	Remove(ctx context.Context, sessionID string) error

	// Get returns one stored record, or false if absent.
	Get(ctx context.Context, sessionID string) (model.ActiveSessionRecord, bool, error)
	// List returns all stored records in unspecified order.
	List(ctx context.Context) ([]model.ActiveSessionRecord, error)
}

// Project derives the dashboard view of a stored record at the given time.
// Stale records report terminated and force the three activity booleans
// off even if stored true.
func Project(rec model.ActiveSessionRecord, now time.Time) model.SessionView {
	elapsed := int(now.Sub(rec.StartTime).Seconds())
	timeRemaining := rec.TotalDurationSeconds - elapsed
	if timeRemaining < 0 {
		timeRemaining = 0
	}

	isStale := now.Sub(rec.LastUpdate) > StaleAfter

	status := model.SessionStatusCompleted
	switch {
	case isStale:
		status = model.SessionStatusTerminated
	case rec.Completed:
		status = model.SessionStatusCompleted
		if hasHighFlag(rec.BehaviorFlags) {
			status = model.SessionStatusFlagged
		}
	case timeRemaining > 0:
		status = model.SessionStatusActive
	}

	return model.SessionView{
		SessionID:         rec.SessionID,
		ExamID:            rec.ExamID,
		StudentID:         rec.StudentID,
		StudentName:       rec.StudentName,
		Status:            status,
		StartTime:         rec.StartTime,
		TimeRemaining:     timeRemaining,
		CurrentQuestion:   rec.CurrentQuestion,
		AnsweredCount:     rec.AnsweredCount,
		TotalQuestions:    rec.TotalQuestions,
		WebcamActive:      !isStale && rec.WebcamActive,
		ScreenShareActive: !isStale && rec.ScreenShareActive,
		MobileConnected:   !isStale && rec.MobileConnected,
		BehaviorFlags:     rec.BehaviorFlags,
		ActivityLog:       rec.ActivityLog,
	}
}

func hasHighFlag(flags []model.BehaviorFlag) bool {
	for _, f := range flags {
		if f.Severity == model.SeverityHigh {
			return true
		}
	}
	return false
}

// applyUpdate merges the non-nil fields of upd into rec. Shared between
// backends so merge semantics cannot drift.
func applyUpdate(rec *model.ActiveSessionRecord, upd model.SessionUpdate, now time.Time) {
	if upd.CurrentQuestion != nil {
		rec.CurrentQuestion = *upd.CurrentQuestion
	}
	if upd.AnsweredCount != nil {
		rec.AnsweredCount = *upd.AnsweredCount
	}
	if upd.WebcamActive != nil {
		rec.WebcamActive = *upd.WebcamActive
	}
	if upd.ScreenShareActive != nil {
		rec.ScreenShareActive = *upd.ScreenShareActive
	}
	if upd.MobileConnected != nil {
		rec.MobileConnected = *upd.MobileConnected
	}
	if upd.BehaviorFlags != nil {
		rec.BehaviorFlags = upd.BehaviorFlags
	}
	rec.LastUpdate = now
}
