package model

import "time"

// PairingRecord is the server-side state of one session's mobile pairing.
type PairingRecord struct {
	SessionID       string     `json:"session_id"`
	IsPaired        bool       `json:"is_paired"`
	DeviceID        *string    `json:"device_id"`
	LastHeartbeat   *time.Time `json:"last_heartbeat"`
	CameraConfirmed bool       `json:"camera_confirmed"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PairingCode is the payload encoded into the QR pairing code. The
// receiving side rejects it once ExpiresAt has passed.
type PairingCode struct {
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PairRequest is the payload sent by the mobile device to claim a pairing.
type PairRequest struct {
	Code     string `json:"code" binding:"required"`
	DeviceID string `json:"device_id" binding:"required,min=4,max=64"`
}
