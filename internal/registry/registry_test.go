package registry

import (
	"context"
	"testing"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(sessionID string, start time.Time) model.ActiveSessionRecord {
	return model.ActiveSessionRecord{
		SessionID:            sessionID,
		StudentID:            "STU-001",
		StudentName:          "Ada Lovelace",
		ExamID:               "exam-1",
		StartTime:            start,
		TotalDurationSeconds: 1800,
		TotalQuestions:       10,
		WebcamActive:         true,
		ScreenShareActive:    true,
		MobileConnected:      true,
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestMemoryRegistryRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	reg := NewMemoryRegistry()
	reg.SetNowFunc(func() time.Time { return now })

	require.NoError(t, reg.Register(ctx, testRecord("sess-1", now)))

	recs, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	view := Project(recs[0], now)
	assert.Equal(t, model.SessionStatusActive, view.Status)
	assert.Equal(t, 1800, view.TimeRemaining)
	assert.True(t, view.WebcamActive)
	assert.True(t, view.MobileConnected)
}

func TestMemoryRegistryUpdateMergesPartialFields(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	reg := NewMemoryRegistry()
	reg.SetNowFunc(func() time.Time { return now })
	require.NoError(t, reg.Register(ctx, testRecord("sess-1", now)))

	require.NoError(t, reg.Update(ctx, "sess-1", model.SessionUpdate{
		CurrentQuestion: intPtr(4),
		AnsweredCount:   intPtr(3),
		WebcamActive:    boolPtr(false),
	}))

	rec, ok, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, rec.CurrentQuestion)
	assert.Equal(t, 3, rec.AnsweredCount)
	assert.False(t, rec.WebcamActive)
	// Fields not carried by the update are untouched.
	assert.True(t, rec.ScreenShareActive)
	assert.True(t, rec.MobileConnected)
	// Identity fields cannot be changed through updates at all.
	assert.Equal(t, "STU-001", rec.StudentID)
	assert.Equal(t, "Ada Lovelace", rec.StudentName)
}

func TestMemoryRegistryUnknownSessionCommandsAreNoOps(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	assert.NoError(t, reg.Update(ctx, "ghost", model.SessionUpdate{CurrentQuestion: intPtr(2)}))
	assert.NoError(t, reg.LogActivity(ctx, "ghost", "tab_switch"))
	assert.NoError(t, reg.AddFlag(ctx, "ghost", model.BehaviorFlag{Type: model.FlagFastCorrect}))
	assert.NoError(t, reg.Complete(ctx, "ghost"))
	assert.NoError(t, reg.Remove(ctx, "ghost"))

	recs, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMemoryRegistryActivityAndFlagsAppend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	reg := NewMemoryRegistry()
	reg.SetNowFunc(func() time.Time { return now })
	require.NoError(t, reg.Register(ctx, testRecord("sess-1", now)))

	require.NoError(t, reg.LogActivity(ctx, "sess-1", "answer_selected"))
	require.NoError(t, reg.LogActivity(ctx, "sess-1", "tab_switch"))
	require.NoError(t, reg.AddFlag(ctx, "sess-1", model.BehaviorFlag{
		Type:     model.FlagFastCorrect,
		Severity: model.SeverityMedium,
	}))

	rec, ok, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, rec.ActivityLog, 2)
	assert.Equal(t, "answer_selected", rec.ActivityLog[0].Action)
	assert.Equal(t, "tab_switch", rec.ActivityLog[1].Action)
	require.Len(t, rec.BehaviorFlags, 1)
	assert.Equal(t, model.FlagFastCorrect, rec.BehaviorFlags[0].Type)
}

func TestProjectStaleRecordIsTerminated(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := testRecord("sess-1", start)
	rec.LastUpdate = start

	// 31s of silence: just past the staleness window.
	now := start.Add(31 * time.Second)

	view := Project(rec, now)
	assert.Equal(t, model.SessionStatusTerminated, view.Status)
	assert.False(t, view.WebcamActive)
	assert.False(t, view.ScreenShareActive)
	assert.False(t, view.MobileConnected)
}

func TestProjectFreshRecordAtBoundaryStaysActive(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := testRecord("sess-1", start)
	rec.LastUpdate = start

	// Exactly at the window is still fresh; staleness requires strictly older.
	now := start.Add(StaleAfter)

	view := Project(rec, now)
	assert.Equal(t, model.SessionStatusActive, view.Status)
	assert.True(t, view.WebcamActive)
	assert.Equal(t, 1800-int(StaleAfter.Seconds()), view.TimeRemaining)
}

func TestProjectExpiredDurationIsCompleted(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := testRecord("sess-1", start)

	now := start.Add(1801 * time.Second)
	rec.LastUpdate = now

	view := Project(rec, now)
	assert.Equal(t, model.SessionStatusCompleted, view.Status)
	assert.Equal(t, 0, view.TimeRemaining)
}

func TestProjectCompletedBeforeTimeExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	reg := NewMemoryRegistry()
	reg.SetNowFunc(func() time.Time { return now })
	require.NoError(t, reg.Register(ctx, testRecord("sess-1", now)))

	// Early manual submit: plenty of time left, session still completed.
	require.NoError(t, reg.Complete(ctx, "sess-1"))

	rec, _, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	view := Project(rec, now.Add(5*time.Minute))
	assert.Equal(t, model.SessionStatusCompleted, view.Status)
}

func TestProjectCompletedWithHighFlagIsFlagged(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	reg := NewMemoryRegistry()
	reg.SetNowFunc(func() time.Time { return now })
	require.NoError(t, reg.Register(ctx, testRecord("sess-1", now)))
	require.NoError(t, reg.AddFlag(ctx, "sess-1", model.BehaviorFlag{
		Type:     model.FlagFastCorrect,
		Severity: model.SeverityHigh,
	}))
	require.NoError(t, reg.Complete(ctx, "sess-1"))

	rec, _, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	view := Project(rec, now)
	assert.Equal(t, model.SessionStatusFlagged, view.Status)
}

func TestMemoryRegistryCompleteClearsActivityBooleans(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	reg := NewMemoryRegistry()
	reg.SetNowFunc(func() time.Time { return now })
	require.NoError(t, reg.Register(ctx, testRecord("sess-1", now)))
	require.NoError(t, reg.Complete(ctx, "sess-1"))

	rec, ok, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, rec.WebcamActive)
	assert.False(t, rec.ScreenShareActive)
	assert.False(t, rec.MobileConnected)
}
