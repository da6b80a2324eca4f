package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/repository"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
	"github.com/invigilo/proctor-backend/internal/validator"
)

// AdminSessionHandler is the proctor console: live session views,
// control commands, and roster management.
type AdminSessionHandler struct {
	sessions *service.SessionManager
	students *service.StudentService
}

// NewAdminSessionHandler creates a new AdminSessionHandler.
func NewAdminSessionHandler(sessions *service.SessionManager, students *service.StudentService) *AdminSessionHandler {
	return &AdminSessionHandler{sessions: sessions, students: students}
}

type warnRequest struct {
	Message string `json:"message" binding:"required,min=1,max=500"`
}

// List godoc
// GET /api/v1/admin/sessions
func (h *AdminSessionHandler) List(c *gin.Context) {
	views, err := h.sessions.Views(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": views})
}

// Get godoc
// GET /api/v1/admin/sessions/:session_id
func (h *AdminSessionHandler) Get(c *gin.Context) {
	view, err := h.sessions.View(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Terminate godoc
// POST /api/v1/admin/sessions/:session_id/terminate
// Queues a terminate command; the session runner picks it up on its
// next control poll.
func (h *AdminSessionHandler) Terminate(c *gin.Context) {
	if err := h.sessions.Terminate(c.Request.Context(), c.Param("session_id")); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Warn godoc
// POST /api/v1/admin/sessions/:session_id/warn
func (h *AdminSessionHandler) Warn(c *gin.Context) {
	var req warnRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Warn(c.Request.Context(), c.Param("session_id"), req.Message); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Remove godoc
// DELETE /api/v1/admin/sessions/:session_id
// Tears the session down: stops the runner, clears pairing, and drops
// the registry record.
func (h *AdminSessionHandler) Remove(c *gin.Context) {
	if err := h.sessions.Remove(c.Request.Context(), c.Param("session_id")); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ListStudents godoc
// GET /api/v1/admin/students
func (h *AdminSessionHandler) ListStudents(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// AddStudent godoc
// POST /api/v1/admin/students
func (h *AdminSessionHandler) AddStudent(c *gin.Context) {
	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.students.Add(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateStudentID) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, student)
}

// RemoveStudent godoc
// DELETE /api/v1/admin/students/:student_id
func (h *AdminSessionHandler) RemoveStudent(c *gin.Context) {
	found, err := h.students.Remove(c.Request.Context(), c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ResetStudentLogin godoc
// POST /api/v1/admin/students/:student_id/reset-login
// Clears the single-device login lock so the student can sign in again.
func (h *AdminSessionHandler) ResetStudentLogin(c *gin.Context) {
	if err := h.students.Logout(c.Request.Context(), c.Param("student_id")); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
