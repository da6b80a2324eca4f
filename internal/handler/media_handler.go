package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invigilo/proctor-backend/internal/middleware"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
)

// MediaHandler receives recording artifacts from the proctoring clients.
type MediaHandler struct {
	media    *service.MediaService
	sessions *service.SessionManager
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(media *service.MediaService, sessions *service.SessionManager) *MediaHandler {
	return &MediaHandler{media: media, sessions: sessions}
}

// UploadRecording godoc
// POST /api/v1/student/sessions/:session_id/recordings
// Multipart upload, field name "file".
func (h *MediaHandler) UploadRecording(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID := c.Param("session_id")
	owner, err := h.sessions.Owner(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	if owner != claims.StudentID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	url, err := h.media.SaveRecording(sessionID, file, header)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"url": url})
}
