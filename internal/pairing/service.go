package pairing

import (
	"context"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/rs/zerolog"
)

// Service implements the pairing handshake over a Store.
type Service struct {
	store Store
	log   zerolog.Logger
	nowFn func() time.Time
}

// NewService creates a pairing service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "pairing_service").Logger(),
		nowFn: time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (s *Service) SetNowFunc(fn func() time.Time) {
	s.nowFn = fn
}

// Init creates an empty pairing record for the session and returns a
// freshly issued code for the QR handshake. Re-issuing replaces any
// previous pairing state for the session.
func (s *Service) Init(ctx context.Context, sessionID, studentID string) (string, error) {
	now := s.nowFn()

	rec := model.PairingRecord{
		SessionID: sessionID,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return "", err
	}

	code, err := EncodeCode(model.PairingCode{
		SessionID: sessionID,
		StudentID: studentID,
		IssuedAt:  now,
		ExpiresAt: now.Add(CodeLifetime),
	})
	if err != nil {
		return "", err
	}

	s.log.Debug().Str("session_id", sessionID).Msg("Pairing code issued")
	return code, nil
}

// Pair claims a pairing from the mobile side. The encoded code carries
// the session identity; an expired or malformed code is rejected.
func (s *Service) Pair(ctx context.Context, encoded, deviceID string) (string, error) {
	now := s.nowFn()

	code, err := DecodeCode(encoded, now)
	if err != nil {
		return "", err
	}

	rec, ok, err := s.store.Get(ctx, code.SessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrSessionNotFound
	}

	rec.IsPaired = true
	rec.DeviceID = &deviceID
	rec.LastHeartbeat = &now
	rec.UpdatedAt = now
	if err := s.store.Put(ctx, rec); err != nil {
		return "", err
	}

	s.log.Info().Str("session_id", code.SessionID).Msg("Device paired")
	return code.SessionID, nil
}

// Heartbeat refreshes the device liveness timestamp.
func (s *Service) Heartbeat(ctx context.Context, sessionID string) error {
	rec, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}

	now := s.nowFn()
	rec.LastHeartbeat = &now
	rec.UpdatedAt = now
	return s.store.Put(ctx, rec)
}

// ConfirmCamera records that the mobile camera is live. Until confirmed
// the session does not count as paired.
func (s *Service) ConfirmCamera(ctx context.Context, sessionID string) error {
	rec, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}

	rec.CameraConfirmed = true
	rec.UpdatedAt = s.nowFn()
	return s.store.Put(ctx, rec)
}

// Reset discards the session's pairing state entirely.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

// Status returns the derived pairing view for the session.
func (s *Service) Status(ctx context.Context, sessionID string) (Status, error) {
	rec, ok, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{}, ErrSessionNotFound
	}
	return ProjectStatus(rec, s.nowFn()), nil
}
