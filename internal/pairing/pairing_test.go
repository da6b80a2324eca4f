package pairing

import (
	"context"
	"testing"
	"time"

	"github.com/invigilo/proctor-backend/internal/logger"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) *Service {
	svc := NewService(NewMemoryStore(), logger.Nop())
	svc.SetNowFunc(func() time.Time { return now })
	return svc
}

func TestPairHandshake(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)

	code, err := svc.Init(ctx, "sess-1", "STU-001")
	require.NoError(t, err)
	require.NotEmpty(t, code)

	sessionID, err := svc.Pair(ctx, code, "device-abc")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)

	// Paired but camera unconfirmed: not exposed as paired yet.
	status, err := svc.Status(ctx, "sess-1")
	require.NoError(t, err)
	assert.False(t, status.IsPaired)
	assert.False(t, status.Connected)

	require.NoError(t, svc.ConfirmCamera(ctx, "sess-1"))

	status, err = svc.Status(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, status.IsPaired)
	assert.True(t, status.Connected)
	require.NotNil(t, status.DeviceID)
	assert.Equal(t, "device-abc", *status.DeviceID)
}

func TestPairRejectsExpiredCode(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(issued)

	code, err := svc.Init(ctx, "sess-1", "STU-001")
	require.NoError(t, err)

	// Move past the code lifetime before the device scans it.
	svc.SetNowFunc(func() time.Time { return issued.Add(CodeLifetime + time.Second) })

	_, err = svc.Pair(ctx, code, "device-abc")
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestPairRejectsMalformedCode(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(time.Now())

	_, err := svc.Pair(ctx, "not-base64!!!", "device-abc")
	assert.ErrorIs(t, err, ErrCodeMalformed)

	_, err = svc.Pair(ctx, "e30=", "device-abc") // valid base64 of "{}"
	assert.ErrorIs(t, err, ErrCodeMalformed)
}

func TestPairUnknownSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)

	code, err := EncodeCode(model.PairingCode{
		SessionID: "never-initialized",
		StudentID: "STU-001",
		IssuedAt:  now,
		ExpiresAt: now.Add(CodeLifetime),
	})
	require.NoError(t, err)

	_, err = svc.Pair(ctx, code, "device-abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConnectedRequiresFreshHeartbeat(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)

	code, err := svc.Init(ctx, "sess-1", "STU-001")
	require.NoError(t, err)
	_, err = svc.Pair(ctx, code, "device-abc")
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmCamera(ctx, "sess-1"))

	// 11s of heartbeat silence drops connectivity but not the pairing.
	svc.SetNowFunc(func() time.Time { return now.Add(11 * time.Second) })

	status, err := svc.Status(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, status.IsPaired)
	assert.False(t, status.Connected)

	require.NoError(t, svc.Heartbeat(ctx, "sess-1"))

	status, err = svc.Status(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, status.Connected)
}

func TestResetClearsPairing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestService(now)

	code, err := svc.Init(ctx, "sess-1", "STU-001")
	require.NoError(t, err)
	_, err = svc.Pair(ctx, code, "device-abc")
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx, "sess-1"))

	_, err = svc.Status(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
