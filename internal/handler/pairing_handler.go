package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invigilo/proctor-backend/internal/middleware"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/pairing"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
	"github.com/invigilo/proctor-backend/internal/validator"
)

// PairingHandler covers both sides of the device handshake. The student
// side is JWT-authenticated; the mobile side authenticates with the
// pairing code itself, which carries the session identity.
type PairingHandler struct {
	pairing  *pairing.Service
	sessions *service.SessionManager
}

// NewPairingHandler creates a new PairingHandler.
func NewPairingHandler(p *pairing.Service, sessions *service.SessionManager) *PairingHandler {
	return &PairingHandler{pairing: p, sessions: sessions}
}

type initPairingRequest struct {
	SessionID string `json:"session_id" binding:"required,min=8,max=64"`
}

// pairingSessionRequest identifies an already-paired session. The mobile
// client uses the session ID returned by Pair; the short-lived code is
// only good for the initial claim.
type pairingSessionRequest struct {
	SessionID string `json:"session_id" binding:"required,min=8,max=64"`
}

// Init godoc
// POST /api/v1/student/pairing/init
// Issues a pairing code for the session, replacing any earlier pairing.
func (h *PairingHandler) Init(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req initPairingRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	code, err := h.pairing.Init(c.Request.Context(), req.SessionID, claims.StudentID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session_id": req.SessionID,
		"code":       code,
	})
}

// Status godoc
// GET /api/v1/student/pairing/:session_id/status
func (h *PairingHandler) Status(c *gin.Context) {
	status, err := h.pairing.Status(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		if errors.Is(err, pairing.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// Pair godoc
// POST /api/v1/mobile/pair
// Claims a pairing from the scanned code. No JWT: the code is the
// capability.
func (h *PairingHandler) Pair(c *gin.Context) {
	var req model.PairRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sessionID, err := h.pairing.Pair(c.Request.Context(), req.Code, req.DeviceID)
	if err != nil {
		h.failPairing(c, err)
		return
	}

	// Best effort: a paired device implies mobile connectivity on the
	// monitoring side. The session may not be registered yet.
	_ = h.sessions.SetMobileConnected(c.Request.Context(), sessionID, true)

	response.Success(c, http.StatusOK, gin.H{"session_id": sessionID})
}

// Heartbeat godoc
// POST /api/v1/mobile/heartbeat
func (h *PairingHandler) Heartbeat(c *gin.Context) {
	var req pairingSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.pairing.Heartbeat(c.Request.Context(), req.SessionID); err != nil {
		h.failPairing(c, err)
		return
	}
	_ = h.sessions.SetMobileConnected(c.Request.Context(), req.SessionID, true)
	response.Success(c, http.StatusOK, gin.H{})
}

// ConfirmCamera godoc
// POST /api/v1/mobile/confirm-camera
func (h *PairingHandler) ConfirmCamera(c *gin.Context) {
	var req pairingSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.pairing.ConfirmCamera(c.Request.Context(), req.SessionID); err != nil {
		h.failPairing(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

func (h *PairingHandler) failPairing(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pairing.ErrCodeExpired):
		response.Fail(c, http.StatusGone, response.ErrPairingCodeExpired)
	case errors.Is(err, pairing.ErrCodeMalformed):
		response.Fail(c, http.StatusBadRequest, response.ErrPairingCodeMalformed)
	case errors.Is(err, pairing.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
