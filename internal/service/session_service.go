package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/invigilo/proctor-backend/internal/analyzer"
	"github.com/invigilo/proctor-backend/internal/exam"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/invigilo/proctor-backend/internal/pairing"
	"github.com/invigilo/proctor-backend/internal/question"
	"github.com/invigilo/proctor-backend/internal/registry"
	"github.com/invigilo/proctor-backend/internal/worker"
	"github.com/rs/zerolog"
)

// Session lifecycle errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already started")
	ErrPairingRequired  = errors.New("mobile pairing with camera confirmation is required before starting")
	ErrExamNotSubmitted = errors.New("exam not submitted yet")
)

// SessionManager owns the live exam sessions of this process: one engine
// and one runner per session. It is the bridge between the HTTP layer and
// the state machines, and the only component allowed to start or stop
// runners.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*liveSession

	reg     registry.Registry
	control exam.ControlSource
	bank    question.Store
	pairing *pairing.Service
	sink    worker.Sink
	log     zerolog.Logger

	// baseCtx outlives any HTTP request; runner loops are bound to it so
	// a finished request does not tear down a running exam.
	baseCtx context.Context
}

type liveSession struct {
	engine      *exam.Engine
	runner      *exam.Runner
	bankVersion int64
}

// SessionState is the student-facing poll response: the exam state plus
// anything out-of-band the client must react to.
type SessionState struct {
	State    model.ExamState `json:"state"`
	Warnings []string        `json:"warnings,omitempty"`
}

// NewSessionManager creates the manager. baseCtx should be the process
// lifetime context; cancelling it stops every runner.
func NewSessionManager(
	baseCtx context.Context,
	reg registry.Registry,
	control exam.ControlSource,
	bank question.Store,
	pairingSvc *pairing.Service,
	sink worker.Sink,
	log zerolog.Logger,
) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*liveSession),
		reg:      reg,
		control:  control,
		bank:     bank,
		pairing:  pairingSvc,
		sink:     sink,
		log:      log.With().Str("component", "session_manager").Logger(),
		baseCtx:  baseCtx,
	}
}

// Start gates on pairing liveness, snapshots the question bank, and brings
// up the engine and its runner.
func (m *SessionManager) Start(ctx context.Context, sessionID string, student *model.Student, examID string, durationMinutes int) (model.ExamState, error) {
	status, err := m.pairing.Status(ctx, sessionID)
	if err != nil || !status.IsPaired {
		return model.ExamState{}, ErrPairingRequired
	}

	questions, err := m.bank.Questions(ctx)
	if err != nil {
		return model.ExamState{}, fmt.Errorf("load question bank: %w", err)
	}
	version, err := m.bank.Version(ctx)
	if err != nil {
		return model.ExamState{}, fmt.Errorf("load bank version: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sessionID]; exists {
		return model.ExamState{}, ErrSessionExists
	}

	engine := exam.NewEngine(sessionID, student.StudentID, student.Name, examID, m.log)
	if err := engine.Initialize(questions, durationMinutes); err != nil {
		return model.ExamState{}, err
	}

	runner := exam.NewRunner(engine, m.reg, m.control, m.log)
	runner.OnFinish = func(examLog model.ExamLog, _ analyzer.Result) {
		m.persistLog(examLog)
	}
	runner.MobileLiveness = func(ctx context.Context) *bool {
		status, err := m.pairing.Status(ctx, sessionID)
		if err != nil {
			return nil
		}
		return &status.Connected
	}
	if err := runner.Start(m.baseCtx); err != nil {
		return model.ExamState{}, err
	}

	m.sessions[sessionID] = &liveSession{engine: engine, runner: runner, bankVersion: version}

	state, _ := engine.State()
	return state, nil
}

// SelectAnswer applies a student's choice and records the activity.
func (m *SessionManager) SelectAnswer(ctx context.Context, sessionID, questionID string, optionIndex int) error {
	sess, err := m.get(sessionID)
	if err != nil {
		return err
	}

	num, ok := sess.engine.SelectAnswer(questionID, optionIndex)
	if !ok {
		// Benign race between client and state; nothing to report.
		return nil
	}
	if err := m.reg.LogActivity(ctx, sessionID, fmt.Sprintf("Answered Q%d", num)); err != nil {
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("Activity log failed")
	}
	return nil
}

// Navigate switches the active question.
func (m *SessionManager) Navigate(_ context.Context, sessionID string, index int) error {
	sess, err := m.get(sessionID)
	if err != nil {
		return err
	}
	sess.engine.Navigate(index)
	return nil
}

// Submit finishes the exam. The runner observes the submission within one
// tick and performs the registry side effects.
func (m *SessionManager) Submit(_ context.Context, sessionID string) error {
	sess, err := m.get(sessionID)
	if err != nil {
		return err
	}
	sess.engine.Submit()
	return nil
}

// State returns the student poll view, after refreshing the question
// snapshot if the bank changed mid-exam.
func (m *SessionManager) State(ctx context.Context, sessionID string) (SessionState, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return SessionState{}, err
	}

	m.refreshQuestions(ctx, sessionID, sess)

	state, ok := sess.engine.State()
	if !ok {
		return SessionState{}, ErrSessionNotFound
	}
	return SessionState{
		State:    state,
		Warnings: sess.engine.PopWarnings(),
	}, nil
}

// Result returns the frozen exam log after submission.
func (m *SessionManager) Result(_ context.Context, sessionID string) (model.ExamLog, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return model.ExamLog{}, err
	}
	if !sess.engine.IsSubmitted() {
		return model.ExamLog{}, ErrExamNotSubmitted
	}
	return sess.engine.Log(), nil
}

// FaceEvent folds a face-tracking event into the session's flags and the
// audit pipeline.
func (m *SessionManager) FaceEvent(ctx context.Context, sessionID string, ev analyzer.FaceEvent) error {
	sess, err := m.get(sessionID)
	if err != nil {
		return err
	}

	flag := analyzer.NewFaceFlag(ev, time.Now())
	if !sess.engine.AddBehaviorFlag(flag) {
		return nil
	}
	if err := m.reg.AddFlag(ctx, sessionID, flag); err != nil {
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("Registry flag push failed")
	}
	if m.sink != nil {
		if err := m.sink.EnqueueFlags(ctx, sessionID, []model.BehaviorFlag{flag}); err != nil {
			m.log.Warn().Err(err).Str("session_id", sessionID).Msg("Flag enqueue failed")
		}
	}
	return nil
}

// LogActivity appends a client-reported activity entry (tab switch, focus
// loss) to the session's registry record.
func (m *SessionManager) LogActivity(ctx context.Context, sessionID, action string) error {
	if _, err := m.get(sessionID); err != nil {
		return err
	}
	return m.reg.LogActivity(ctx, sessionID, action)
}

// UpdateMedia pushes the client's recorder booleans to the registry.
func (m *SessionManager) UpdateMedia(ctx context.Context, sessionID string, webcam, screenShare *bool) error {
	if _, err := m.get(sessionID); err != nil {
		return err
	}
	return m.reg.Update(ctx, sessionID, model.SessionUpdate{
		WebcamActive:      webcam,
		ScreenShareActive: screenShare,
	})
}

// SetMobileConnected mirrors pairing liveness into the registry record.
func (m *SessionManager) SetMobileConnected(ctx context.Context, sessionID string, connected bool) error {
	return m.reg.Update(ctx, sessionID, model.SessionUpdate{MobileConnected: &connected})
}

// Terminate queues an admin terminate command; the session runner honors
// it within one poll cycle.
func (m *SessionManager) Terminate(ctx context.Context, sessionID string) error {
	return m.control.Push(ctx, sessionID, model.ControlCommand{
		Kind:     model.ControlTerminate,
		IssuedAt: time.Now(),
	})
}

// Warn queues an admin warning message for the student client.
func (m *SessionManager) Warn(ctx context.Context, sessionID, message string) error {
	return m.control.Push(ctx, sessionID, model.ControlCommand{
		Kind:     model.ControlWarn,
		Message:  message,
		IssuedAt: time.Now(),
	})
}

// Views returns the dashboard projection of every registered session.
func (m *SessionManager) Views(ctx context.Context) ([]model.SessionView, error) {
	records, err := m.reg.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	views := make([]model.SessionView, 0, len(records))
	for _, rec := range records {
		views = append(views, registry.Project(rec, now))
	}
	return views, nil
}

// View returns the dashboard projection of one session.
func (m *SessionManager) View(ctx context.Context, sessionID string) (model.SessionView, error) {
	rec, ok, err := m.reg.Get(ctx, sessionID)
	if err != nil {
		return model.SessionView{}, err
	}
	if !ok {
		return model.SessionView{}, ErrSessionNotFound
	}
	return registry.Project(rec, time.Now()), nil
}

// Remove tears the session down: loops cancelled, registry record and
// pairing state removed.
func (m *SessionManager) Remove(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if exists {
		sess.runner.Stop()
	}
	if err := m.pairing.Reset(ctx, sessionID); err != nil {
		m.log.Warn().Err(err).Str("session_id", sessionID).Msg("Pairing reset failed")
	}
	return m.reg.Remove(ctx, sessionID)
}

// Shutdown stops every runner. Called on process teardown.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*liveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.runner.Stop()
	}
}

// Owner returns the student code bound to a live session. Used by the
// HTTP layer to reject cross-student access.
func (m *SessionManager) Owner(sessionID string) (string, error) {
	sess, err := m.get(sessionID)
	if err != nil {
		return "", err
	}
	return sess.engine.StudentID(), nil
}

func (m *SessionManager) get(sessionID string) (*liveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// refreshQuestions polls the bank version and merges edits into the
// running exam. Locked answers keep the question they were graded against.
func (m *SessionManager) refreshQuestions(ctx context.Context, sessionID string, sess *liveSession) {
	version, err := m.bank.Version(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Bank version check failed")
		return
	}

	m.mu.Lock()
	stale := version > sess.bankVersion
	if stale {
		sess.bankVersion = version
	}
	m.mu.Unlock()
	if !stale {
		return
	}

	questions, err := m.bank.Questions(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Bank reload failed")
		return
	}
	sess.engine.UpdateQuestions(questions)
	m.log.Info().Str("session_id", sessionID).Int64("version", version).Msg("Question edits merged into running exam")
}

// persistLog hands the finished exam log to the worker pipeline. Runs on
// the runner goroutine; uses the base context because the originating
// request is long gone.
func (m *SessionManager) persistLog(examLog model.ExamLog) {
	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.baseCtx, 5*time.Second)
	defer cancel()
	if err := m.sink.EnqueueExamLog(ctx, examLog); err != nil {
		m.log.Error().Err(err).Str("session_id", examLog.SessionID).Msg("Exam log enqueue failed")
	}
}
