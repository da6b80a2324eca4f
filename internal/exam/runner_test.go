package exam

import (
	"context"
	"testing"
	"time"

	"github.com/invigilo/proctor-backend/internal/analyzer"
	"github.com/invigilo/proctor-backend/internal/logger"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/pairing"
	"github.com/invigilo/proctor-backend/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushProgressFollowsHeartbeatLiveness(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()

	now := time.Now()
	pairingSvc := pairing.NewService(pairing.NewMemoryStore(), logger.Nop())
	pairingSvc.SetNowFunc(func() time.Time { return now })

	code, err := pairingSvc.Init(ctx, "sess-1", "STU-001")
	require.NoError(t, err)
	_, err = pairingSvc.Pair(ctx, code, "device-001")
	require.NoError(t, err)
	require.NoError(t, pairingSvc.ConfirmCamera(ctx, "sess-1"))

	e := NewEngine("sess-1", "STU-001", "Ada Lovelace", "exam-1", logger.Nop())
	require.NoError(t, e.Initialize(sampleQuestions(), 30))

	r := NewRunner(e, reg, NewMemoryControl(), logger.Nop())
	r.MobileLiveness = func(ctx context.Context) *bool {
		status, err := pairingSvc.Status(ctx, "sess-1")
		if err != nil {
			return nil
		}
		return &status.Connected
	}

	rec, ok := e.RegistryRecord()
	require.True(t, ok)
	require.NoError(t, reg.Register(ctx, rec))

	r.pushProgress(ctx)
	stored, ok, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.MobileConnected)

	// The phone stops heartbeating; the next push must flip the record
	// even though the desktop client keeps the session fresh.
	now = now.Add(60 * time.Second)
	r.pushProgress(ctx)

	stored, _, err = reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, stored.MobileConnected)

	view := registry.Project(stored, time.Now())
	assert.Equal(t, model.SessionStatusActive, view.Status)
	assert.False(t, view.MobileConnected)
}

func TestRunnerHonorsTerminateWithinPollCycle(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	control := NewMemoryControl()

	e := NewEngine("sess-1", "STU-001", "Ada Lovelace", "exam-1", logger.Nop())
	require.NoError(t, e.Initialize(sampleQuestions(), 30))

	finished := make(chan model.ExamLog, 1)
	r := NewRunner(e, reg, control, logger.Nop())
	r.OnFinish = func(examLog model.ExamLog, _ analyzer.Result) {
		finished <- examLog
	}
	require.NoError(t, r.Start(ctx))

	rec, ok, err := reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, rec.Completed)

	require.NoError(t, control.Push(ctx, "sess-1", model.ControlCommand{
		Kind:     model.ControlTerminate,
		IssuedAt: time.Now(),
	}))

	select {
	case examLog := <-finished:
		assert.Equal(t, "sess-1", examLog.SessionID)
		assert.NotNil(t, examLog.EndTime)
	case <-time.After(2*ControlPollInterval + time.Second):
		t.Fatal("terminate not honored within the poll window")
	}

	assert.True(t, e.IsSubmitted())

	rec, _, err = reg.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, rec.Completed)
}

func TestRunnerDeliversWarning(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemoryRegistry()
	control := NewMemoryControl()

	e := NewEngine("sess-1", "STU-001", "Ada Lovelace", "exam-1", logger.Nop())
	require.NoError(t, e.Initialize(sampleQuestions(), 30))

	r := NewRunner(e, reg, control, logger.Nop())
	require.NoError(t, r.Start(ctx))
	defer r.Stop()

	require.NoError(t, control.Push(ctx, "sess-1", model.ControlCommand{
		Kind:     model.ControlWarn,
		Message:  "stay in frame",
		IssuedAt: time.Now(),
	}))

	require.Eventually(t, func() bool {
		warnings := e.PopWarnings()
		return len(warnings) == 1 && warnings[0] == "stay in frame"
	}, 2*ControlPollInterval+time.Second, 50*time.Millisecond)

	assert.False(t, e.IsSubmitted())
}
