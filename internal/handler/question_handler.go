package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/question"
	"github.com/invigilo/proctor-backend/internal/response"
	"github.com/invigilo/proctor-backend/internal/validator"
)

// QuestionHandler is the admin surface over the question bank.
type QuestionHandler struct {
	bank question.Store
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(bank question.Store) *QuestionHandler {
	return &QuestionHandler{bank: bank}
}

// List godoc
// GET /api/v1/admin/questions
func (h *QuestionHandler) List(c *gin.Context) {
	questions, err := h.bank.Questions(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	version, err := h.bank.Version(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions": questions,
		"version":   version,
	})
}

// Update godoc
// PATCH /api/v1/admin/questions/:question_id
// Edits reach running exams through the version poll; locked answers in
// already-submitted sessions are never touched.
func (h *QuestionHandler) Update(c *gin.Context) {
	var patch model.QuestionPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ok, err := h.bank.Update(c.Request.Context(), c.Param("question_id"), patch)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if !ok {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Add godoc
// POST /api/v1/admin/questions
func (h *QuestionHandler) Add(c *gin.Context) {
	var req model.AddQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q := model.Question{
		QuestionID:         uuid.New().String(),
		Text:               req.Text,
		Options:            req.Options,
		CorrectAnswer:      req.CorrectAnswer,
		Difficulty:         req.Difficulty,
		MinExpectedSeconds: req.MinExpectedSeconds,
	}
	if err := h.bank.Add(c.Request.Context(), q); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// Reset godoc
// POST /api/v1/admin/questions/reset
func (h *QuestionHandler) Reset(c *gin.Context) {
	if err := h.bank.Reset(c.Request.Context()); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// Version godoc
// GET /api/v1/admin/questions/version
func (h *QuestionHandler) Version(c *gin.Context) {
	version, err := h.bank.Version(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"version": version})
}
