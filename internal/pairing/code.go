package pairing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
)

// CodeLifetime is how long a generated pairing code stays valid.
const CodeLifetime = 5 * time.Minute

var (
	ErrCodeMalformed   = errors.New("pairing code malformed")
	ErrCodeExpired     = errors.New("pairing code expired")
	ErrSessionNotFound = errors.New("pairing session not found")
)

// EncodeCode serializes a pairing code for embedding in a QR image.
func EncodeCode(code model.PairingCode) (string, error) {
	data, err := json.Marshal(code)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeCode parses an encoded pairing code and validates its lifetime.
// An expired code is rejected, never silently accepted.
func DecodeCode(encoded string, now time.Time) (model.PairingCode, error) {
	var code model.PairingCode

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return code, ErrCodeMalformed
	}
	if err := json.Unmarshal(data, &code); err != nil {
		return code, ErrCodeMalformed
	}
	if code.SessionID == "" || code.StudentID == "" {
		return code, ErrCodeMalformed
	}
	if now.After(code.ExpiresAt) {
		return code, ErrCodeExpired
	}
	return code, nil
}
