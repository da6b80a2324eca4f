package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/proctor-backend/internal/analyzer"
	"github.com/invigilo/proctor-backend/internal/middleware"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/service"
	"github.com/invigilo/proctor-backend/internal/validator"
)

// ExamHandler exposes the student-side exam lifecycle.
type ExamHandler struct {
	sessions *service.SessionManager
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessions *service.SessionManager) *ExamHandler {
	return &ExamHandler{sessions: sessions}
}

type startExamRequest struct {
	SessionID       string `json:"session_id" binding:"required,min=8,max=64"`
	ExamID          string `json:"exam_id" binding:"required,min=1,max=64"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=480"`
}

type selectAnswerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	OptionIndex *int   `json:"option_index" binding:"required,min=0,max=3"`
}

type navigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

type activityRequest struct {
	Action string `json:"action" binding:"required,min=1,max=200"`
}

type mediaStatusRequest struct {
	WebcamActive      *bool `json:"webcam_active"`
	ScreenShareActive *bool `json:"screen_share_active"`
}

// questionView is the student-facing question shape. The correct answer
// index never leaves the server.
type questionView struct {
	QuestionID         string           `json:"question_id"`
	Text               string           `json:"text"`
	Options            []string         `json:"options"`
	Difficulty         model.Difficulty `json:"difficulty"`
	MinExpectedSeconds int              `json:"min_expected_seconds"`
}

func toStateView(s service.SessionState) gin.H {
	questions := make([]questionView, len(s.State.Questions))
	for i, q := range s.State.Questions {
		questions[i] = questionView{
			QuestionID:         q.QuestionID,
			Text:               q.Text,
			Options:            q.Options,
			Difficulty:         q.Difficulty,
			MinExpectedSeconds: q.MinExpectedSeconds,
		}
	}

	return gin.H{
		"questions":              questions,
		"answers":                s.State.Answers,
		"current_question_index": s.State.CurrentQuestionIndex,
		"start_time":             s.State.StartTime,
		"total_duration_seconds": s.State.TotalDurationSeconds,
		"remaining_time_seconds": s.State.RemainingTimeSeconds,
		"is_submitted":           s.State.IsSubmitted,
		"answered_count":         s.State.AnsweredCount(),
		"warnings":               s.Warnings,
	}
}

// NewSessionID godoc
// POST /api/v1/student/sessions
// Issues a fresh session ID for the pairing handshake and exam start.
func (h *ExamHandler) NewSessionID(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"session_id": uuid.New().String()})
}

// StartExam godoc
// POST /api/v1/student/exams/start
func (h *ExamHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req startExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student := &model.Student{
		ID:        claims.UserID,
		StudentID: claims.StudentID,
		Name:      claims.Name,
	}

	state, err := h.sessions.Start(c.Request.Context(), req.SessionID, student, req.ExamID, req.DurationMinutes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPairingRequired):
			response.Fail(c, http.StatusPreconditionFailed, response.ErrPairingRequired)
		case errors.Is(err, service.ErrSessionExists):
			response.Fail(c, http.StatusConflict, response.ErrSessionExists)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, toStateView(service.SessionState{State: state}))
}

// GetState godoc
// GET /api/v1/student/sessions/:session_id/state
// The student poll endpoint: exam state plus pending warnings.
func (h *ExamHandler) GetState(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	state, err := h.sessions.State(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, toStateView(state))
}

// SelectAnswer godoc
// POST /api/v1/student/sessions/:session_id/answers
func (h *ExamHandler) SelectAnswer(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req selectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.SelectAnswer(c.Request.Context(), sessionID, req.QuestionID, *req.OptionIndex); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Navigate godoc
// POST /api/v1/student/sessions/:session_id/navigate
func (h *ExamHandler) Navigate(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req navigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.Navigate(c.Request.Context(), sessionID, *req.Index); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Submit godoc
// POST /api/v1/student/sessions/:session_id/submit
// Idempotent: submitting twice is not an error.
func (h *ExamHandler) Submit(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	if err := h.sessions.Submit(c.Request.Context(), sessionID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// GetResult godoc
// GET /api/v1/student/sessions/:session_id/result
func (h *ExamHandler) GetResult(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	examLog, err := h.sessions.Result(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, service.ErrExamNotSubmitted) {
			response.Fail(c, http.StatusConflict, response.ErrExamNotSubmitted)
			return
		}
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"total_correct":    examLog.TotalCorrect,
		"total_questions":  examLog.TotalQuestions,
		"accuracy":         examLog.Accuracy,
		"duration_seconds": examLog.ExamDurationSeconds,
	})
}

// ReportActivity godoc
// POST /api/v1/student/sessions/:session_id/activity
// Client-observed events (tab switch, focus loss) for the audit trail.
func (h *ExamHandler) ReportActivity(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req activityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.LogActivity(c.Request.Context(), sessionID, req.Action); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// UpdateMedia godoc
// POST /api/v1/student/sessions/:session_id/media
// Recorder liveness booleans, mirrored into the session record.
func (h *ExamHandler) UpdateMedia(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	var req mediaStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.UpdateMedia(c.Request.Context(), sessionID, req.WebcamActive, req.ScreenShareActive); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ReportFaceEvent godoc
// POST /api/v1/student/sessions/:session_id/face-events
// HTTP fallback for clients without the WebSocket stream.
func (h *ExamHandler) ReportFaceEvent(c *gin.Context) {
	sessionID, ok := h.authorize(c)
	if !ok {
		return
	}

	var ev analyzer.FaceEvent
	if fields := validator.Bind(c, &ev); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessions.FaceEvent(c.Request.Context(), sessionID, ev); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// authorize extracts the session ID and verifies the caller owns it.
func (h *ExamHandler) authorize(c *gin.Context) (string, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return "", false
	}

	sessionID := c.Param("session_id")
	owner, err := h.sessions.Owner(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return "", false
	}
	if owner != claims.StudentID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return "", false
	}
	return sessionID, true
}
