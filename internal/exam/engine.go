// Package exam owns one student's in-progress exam: questions, answers,
// navigation, the countdown timer, and submission. The engine is the
// single writer of its state; periodic scheduling lives in the runner.
package exam

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/invigilo/proctor-backend/internal/analyzer"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyInitialized = errors.New("exam already initialized")
	ErrNotInitialized     = errors.New("exam not initialized")
)

// Engine is the per-session exam state machine. States: not-started,
// active, submitted (terminal). All methods are safe for concurrent use;
// benign races (select on a locked answer, navigate out of range) are
// silently ignored rather than surfaced as errors.
type Engine struct {
	mu sync.Mutex

	sessionID   string
	studentID   string
	studentName string
	examID      string

	state      *model.ExamState
	examLog    model.ExamLog
	result     *analyzer.Result
	dwellStart time.Time
	warnings   []string

	log   zerolog.Logger
	nowFn func() time.Time
}

// NewEngine creates an uninitialized engine bound to one session.
func NewEngine(sessionID, studentID, studentName, examID string, log zerolog.Logger) *Engine {
	return &Engine{
		sessionID:   sessionID,
		studentID:   studentID,
		studentName: studentName,
		examID:      examID,
		log:         log.With().Str("component", "exam_engine").Str("session_id", sessionID).Logger(),
		nowFn:       time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (e *Engine) SetNowFunc(fn func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nowFn = fn
}

// Initialize creates the exam state from a question snapshot. Fails if the
// engine was already initialized in this process lifetime.
func (e *Engine) Initialize(questions []model.Question, durationMinutes int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != nil {
		return ErrAlreadyInitialized
	}

	now := e.nowFn()

	answers := make([]model.Answer, len(questions))
	for i := range questions {
		answers[i] = model.Answer{QuestionID: questions[i].QuestionID}
	}

	e.state = &model.ExamState{
		Questions:            append([]model.Question(nil), questions...),
		Answers:              answers,
		CurrentQuestionIndex: 0,
		StartTime:            now,
		TotalDurationSeconds: durationMinutes * 60,
		RemainingTimeSeconds: durationMinutes * 60,
	}
	e.examLog = model.ExamLog{
		SessionID:      e.sessionID,
		StudentID:      e.studentID,
		TotalQuestions: len(questions),
		StartTime:      now,
	}
	e.dwellStart = now

	e.log.Info().Int("questions", len(questions)).Int("duration_minutes", durationMinutes).Msg("Exam initialized")
	return nil
}

// SelectAnswer records a choice for the given question. No-op if the exam
// is not active, the question is unknown, or its answer is locked. Returns
// the 1-based question number and whether the selection was applied.
func (e *Engine) SelectAnswer(questionID string, optionIndex int) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.IsSubmitted {
		return 0, false
	}

	idx := -1
	for i := range e.state.Questions {
		if e.state.Questions[i].QuestionID == questionID {
			idx = i
			break
		}
	}
	if idx < 0 || e.state.Answers[idx].IsLocked {
		return 0, false
	}
	if optionIndex < 0 || optionIndex >= len(e.state.Questions[idx].Options) {
		return 0, false
	}

	now := e.nowFn()
	ans := &e.state.Answers[idx]
	ans.SelectedOption = &optionIndex
	ans.AnsweredAt = &now
	if idx == e.state.CurrentQuestionIndex {
		ans.TimeSpent += e.foldDwell(now)
	}
	return idx + 1, true
}

// Navigate switches the active question. Out-of-range indexes are ignored.
// Dwell time on the outgoing question is folded into its answer unless
// locked; the dwell reference resets regardless of lock state.
func (e *Engine) Navigate(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.IsSubmitted {
		return
	}
	if index < 0 || index >= len(e.state.Questions) {
		return
	}

	now := e.nowFn()
	cur := &e.state.Answers[e.state.CurrentQuestionIndex]
	elapsed := e.foldDwell(now)
	if !cur.IsLocked {
		cur.TimeSpent += elapsed
	}
	e.state.CurrentQuestionIndex = index
}

// Tick advances the countdown by one second. At zero the exam submits
// itself. Returns true when this call performed the submission.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.IsSubmitted {
		return false
	}

	e.state.RemainingTimeSeconds--
	if e.state.RemainingTimeSeconds > 0 {
		return false
	}
	e.state.RemainingTimeSeconds = 0
	e.submitLocked()
	return true
}

// Submit freezes the exam, builds the question logs, and runs behavior
// analysis. Idempotent: a second call is a no-op and returns false.
func (e *Engine) Submit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.IsSubmitted {
		return false
	}
	e.submitLocked()
	return true
}

func (e *Engine) submitLocked() {
	now := e.nowFn()

	// Fold the dwell on the question open at submission time.
	cur := &e.state.Answers[e.state.CurrentQuestionIndex]
	elapsed := e.foldDwell(now)
	if !cur.IsLocked {
		cur.TimeSpent += elapsed
	}

	e.state.EndTime = &now
	e.state.RemainingTimeSeconds = 0

	logs := make([]model.QuestionLog, len(e.state.Questions))
	totalCorrect := 0
	for i := range e.state.Questions {
		q := e.state.Questions[i]
		a := &e.state.Answers[i]

		correct := a.SelectedOption != nil && *a.SelectedOption == q.CorrectAnswer
		if correct {
			totalCorrect++
		}
		logs[i] = model.QuestionLog{
			QuestionID:           q.QuestionID,
			Difficulty:           q.Difficulty,
			TimeSpent:            a.TimeSpent,
			IsCorrect:            correct,
			AnsweredBelowMinTime: a.TimeSpent < q.MinExpectedSeconds,
			Timestamp:            now,
		}
		a.IsLocked = true
	}

	result := analyzer.Analyze(e.state.Questions, e.state.Answers, logs, e.examLog.BehaviorFlags, now)
	e.result = &result

	e.examLog.QuestionLogs = logs
	e.examLog.BehaviorFlags = result.Flags
	e.examLog.TotalCorrect = totalCorrect
	e.examLog.Accuracy = 0
	if len(e.state.Questions) > 0 {
		e.examLog.Accuracy = float64(totalCorrect) / float64(len(e.state.Questions))
	}
	e.examLog.IntegrityScore = result.IntegrityScore
	e.examLog.Recommendation = result.Recommendation
	e.examLog.ExamDurationSeconds = int(now.Sub(e.state.StartTime).Seconds())
	e.examLog.EndTime = &now

	e.state.IsSubmitted = true

	e.log.Info().
		Int("total_correct", totalCorrect).
		Int("integrity_score", result.IntegrityScore).
		Str("recommendation", string(result.Recommendation)).
		Msg("Exam submitted")
}

// UpdateQuestions merges mid-exam question edits by ID. Questions whose
// answers are already locked are left untouched so students who committed
// are graded against what they saw.
func (e *Engine) UpdateQuestions(updated []model.Question) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.IsSubmitted {
		return
	}

	byID := make(map[string]model.Question, len(updated))
	for _, q := range updated {
		byID[q.QuestionID] = q
	}
	for i := range e.state.Questions {
		if e.state.Answers[i].IsLocked {
			continue
		}
		if q, ok := byID[e.state.Questions[i].QuestionID]; ok {
			e.state.Questions[i] = q
		}
	}
}

// AddBehaviorFlag appends a flag raised while the exam is running (face
// tracking events). Flags arriving after submission are dropped; the
// analysis is already frozen.
func (e *Engine) AddBehaviorFlag(flag model.BehaviorFlag) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil || e.state.IsSubmitted {
		return false
	}
	e.examLog.BehaviorFlags = append(e.examLog.BehaviorFlags, flag)
	return true
}

// Warn queues an advisory message for the student client. Exam state is
// unaffected.
func (e *Engine) Warn(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warnings = append(e.warnings, message)
}

// PopWarnings drains queued advisory messages.
func (e *Engine) PopWarnings() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.warnings
	e.warnings = nil
	return out
}

// State returns a copy of the current exam state, or false before
// initialization.
func (e *Engine) State() (model.ExamState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return model.ExamState{}, false
	}
	st := *e.state
	st.Questions = append([]model.Question(nil), e.state.Questions...)
	st.Answers = append([]model.Answer(nil), e.state.Answers...)
	return st, true
}

// Log returns a copy of the exam log. Complete only after submission.
func (e *Engine) Log() model.ExamLog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.examLog
}

// Result returns the analysis outcome, available after submission.
func (e *Engine) Result() (analyzer.Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return analyzer.Result{}, false
	}
	return *e.result, true
}

// IsSubmitted reports whether the exam has reached its terminal state.
func (e *Engine) IsSubmitted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state != nil && e.state.IsSubmitted
}

// RegistryRecord builds the initial registry entry for this session.
func (e *Engine) RegistryRecord() (model.ActiveSessionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return model.ActiveSessionRecord{}, false
	}
	return model.ActiveSessionRecord{
		SessionID:            e.sessionID,
		StudentID:            e.studentID,
		StudentName:          e.studentName,
		ExamID:               e.examID,
		StartTime:            e.state.StartTime,
		TotalDurationSeconds: e.state.TotalDurationSeconds,
		TotalQuestions:       len(e.state.Questions),
	}, true
}

// ProgressUpdate builds the periodic registry push for this session.
func (e *Engine) ProgressUpdate() (model.SessionUpdate, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return model.SessionUpdate{}, false
	}
	current := e.state.CurrentQuestionIndex
	answered := e.state.AnsweredCount()
	return model.SessionUpdate{
		CurrentQuestion: &current,
		AnsweredCount:   &answered,
		BehaviorFlags:   append([]model.BehaviorFlag(nil), e.examLog.BehaviorFlags...),
	}, true
}

// foldDwell returns the seconds since the dwell reference and resets the
// reference to now. Callers hold e.mu.
func (e *Engine) foldDwell(now time.Time) int {
	elapsed := int(now.Sub(e.dwellStart).Seconds())
	e.dwellStart = now
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// SessionID returns the session this engine is bound to.
func (e *Engine) SessionID() string { return e.sessionID }

// StudentID returns the owning student's code.
func (e *Engine) StudentID() string { return e.studentID }

// Describe returns a short human label for logs.
func (e *Engine) Describe() string {
	return fmt.Sprintf("%s/%s", e.examID, e.sessionID)
}
