// Package pairing tracks the mobile companion device of an exam session:
// QR code issuance, the pair handshake, heartbeats, and camera
// confirmation. Liveness is derived on read, never stored.
package pairing

import (
	"context"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
)

// HeartbeatWindow is the liveness window for the mobile connection.
// Deliberately shorter than the registry staleness window (30s): the
// device heartbeats every 5s while full session pushes happen every 2s,
// and a dropped phone should surface on the dashboard quickly.
const HeartbeatWindow = 10 * time.Second

// Store persists pairing records, one per session.
type Store interface {
	Get(ctx context.Context, sessionID string) (model.PairingRecord, bool, error)
	Put(ctx context.Context, rec model.PairingRecord) error
	Delete(ctx context.Context, sessionID string) error
}

// Status is the derived pairing view. IsPaired requires both the raw
// paired flag and camera confirmation; Connected additionally requires
// a fresh heartbeat.
type Status struct {
	SessionID       string     `json:"session_id"`
	IsPaired        bool       `json:"is_paired"`
	Connected       bool       `json:"connected"`
	CameraConfirmed bool       `json:"camera_confirmed"`
	DeviceID        *string    `json:"device_id,omitempty"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
}

// ProjectStatus derives the exposed pairing status at the given time.
func ProjectStatus(rec model.PairingRecord, now time.Time) Status {
	paired := rec.IsPaired && rec.CameraConfirmed

	connected := false
	if paired && rec.LastHeartbeat != nil {
		connected = now.Sub(*rec.LastHeartbeat) < HeartbeatWindow
	}

	return Status{
		SessionID:       rec.SessionID,
		IsPaired:        paired,
		Connected:       connected,
		CameraConfirmed: rec.CameraConfirmed,
		DeviceID:        rec.DeviceID,
		LastHeartbeat:   rec.LastHeartbeat,
	}
}
