package exam

import (
	"testing"
	"time"

	"github.com/invigilo/proctor-backend/internal/logger"
	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func sampleQuestions() []model.Question {
	return []model.Question{
		{QuestionID: "q1", Text: "2+2?", Options: []string{"3", "4", "5", "6"}, CorrectAnswer: 1, Difficulty: model.DifficultyEasy, MinExpectedSeconds: 10},
		{QuestionID: "q2", Text: "Capital of France?", Options: []string{"Lyon", "Nice", "Paris", "Lille"}, CorrectAnswer: 2, Difficulty: model.DifficultyMedium, MinExpectedSeconds: 20},
		{QuestionID: "q3", Text: "Integral of 1/x?", Options: []string{"x", "ln x", "1/x^2", "e^x"}, CorrectAnswer: 1, Difficulty: model.DifficultyHard, MinExpectedSeconds: 60},
	}
}

func newTestEngine(t *testing.T, clock *fakeClock) *Engine {
	t.Helper()
	e := NewEngine("sess-1", "STU-001", "Ada Lovelace", "exam-1", logger.Nop())
	e.SetNowFunc(clock.Now)
	require.NoError(t, e.Initialize(sampleQuestions(), 30))
	return e
}

func TestInitializeOnce(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	err := e.Initialize(sampleQuestions(), 30)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestSelectAnswerRecordsChoiceAndDwell(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	clock.Advance(12 * time.Second)
	num, ok := e.SelectAnswer("q1", 1)
	require.True(t, ok)
	assert.Equal(t, 1, num)

	st, ok := e.State()
	require.True(t, ok)
	require.NotNil(t, st.Answers[0].SelectedOption)
	assert.Equal(t, 1, *st.Answers[0].SelectedOption)
	assert.Equal(t, 12, st.Answers[0].TimeSpent)
	require.NotNil(t, st.Answers[0].AnsweredAt)
}

func TestSelectAnswerIgnoresUnknownQuestionAndBadOption(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	_, ok := e.SelectAnswer("nope", 0)
	assert.False(t, ok)
	_, ok = e.SelectAnswer("q1", 7)
	assert.False(t, ok)

	st, _ := e.State()
	assert.Nil(t, st.Answers[0].SelectedOption)
}

func TestNavigateFoldsDwellAcrossVisits(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	// 10s on q1, over to q2 for 5s, back to q1 for 7s.
	clock.Advance(10 * time.Second)
	e.Navigate(1)
	clock.Advance(5 * time.Second)
	e.Navigate(0)
	clock.Advance(7 * time.Second)
	e.Navigate(2)

	st, _ := e.State()
	assert.Equal(t, 17, st.Answers[0].TimeSpent)
	assert.Equal(t, 5, st.Answers[1].TimeSpent)
	assert.Equal(t, 2, st.CurrentQuestionIndex)
}

func TestNavigateOutOfRangeIsIgnored(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	e.Navigate(-1)
	e.Navigate(3)

	st, _ := e.State()
	assert.Equal(t, 0, st.CurrentQuestionIndex)
}

func TestTickCountsDownAndAutoSubmits(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := NewEngine("sess-1", "STU-001", "Ada Lovelace", "exam-1", logger.Nop())
	e.SetNowFunc(clock.Now)
	require.NoError(t, e.Initialize(sampleQuestions(), 1)) // 60 seconds

	prev := 60
	for i := 0; i < 59; i++ {
		submitted := e.Tick()
		assert.False(t, submitted)
		st, _ := e.State()
		assert.Less(t, st.RemainingTimeSeconds, prev)
		prev = st.RemainingTimeSeconds
	}

	submitted := e.Tick()
	assert.True(t, submitted)

	st, _ := e.State()
	assert.Equal(t, 0, st.RemainingTimeSeconds)
	assert.True(t, st.IsSubmitted)

	// Ticks after submission are no-ops.
	assert.False(t, e.Tick())
	st, _ = e.State()
	assert.Equal(t, 0, st.RemainingTimeSeconds)
}

func TestSubmitIsIdempotent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	e.SelectAnswer("q1", 1)
	clock.Advance(5 * time.Minute)

	require.True(t, e.Submit())
	first := e.Log()

	clock.Advance(time.Minute)
	assert.False(t, e.Submit())
	second := e.Log()

	assert.Equal(t, first, second)
}

func TestSubmitBuildsQuestionLogs(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	clock.Advance(15 * time.Second)
	e.SelectAnswer("q1", 1) // correct, above q1's 10s minimum
	e.Navigate(1)
	clock.Advance(3 * time.Second)
	e.SelectAnswer("q2", 0) // wrong, below q2's 20s minimum
	require.True(t, e.Submit())

	examLog := e.Log()
	require.Len(t, examLog.QuestionLogs, 3)

	assert.True(t, examLog.QuestionLogs[0].IsCorrect)
	assert.False(t, examLog.QuestionLogs[0].AnsweredBelowMinTime)
	assert.False(t, examLog.QuestionLogs[1].IsCorrect)
	assert.True(t, examLog.QuestionLogs[1].AnsweredBelowMinTime)
	assert.False(t, examLog.QuestionLogs[2].IsCorrect) // unanswered

	assert.Equal(t, 1, examLog.TotalCorrect)
	assert.InDelta(t, 1.0/3.0, examLog.Accuracy, 1e-9)
	assert.Equal(t, 18, examLog.ExamDurationSeconds)
}

func TestLockedAnswerIsFrozen(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	e.SelectAnswer("q1", 1)
	require.True(t, e.Submit())

	before, _ := e.State()
	_, ok := e.SelectAnswer("q1", 2)
	assert.False(t, ok)
	e.Navigate(1)

	after, _ := e.State()
	assert.Equal(t, before.Answers[0], after.Answers[0])
	assert.Equal(t, before.CurrentQuestionIndex, after.CurrentQuestionIndex)
}

func TestUpdateQuestionsSkipsLockedAnswers(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	// Lock q1 directly; locks otherwise only arise at submission, and a
	// submitted exam rejects updates wholesale.
	e.mu.Lock()
	e.state.Answers[0].IsLocked = true
	e.mu.Unlock()

	edited := sampleQuestions()
	edited[0].Text = "changed"
	edited[1].Text = "changed"
	e.UpdateQuestions(edited)

	st, _ := e.State()
	assert.Equal(t, "2+2?", st.Questions[0].Text)
	assert.Equal(t, "changed", st.Questions[1].Text)
}

func TestWarnQueuesAdvisoryWithoutTouchingState(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	before, _ := e.State()
	e.Warn("stay in frame")
	e.Warn("second warning")

	after, _ := e.State()
	assert.Equal(t, before.IsSubmitted, after.IsSubmitted)
	assert.Equal(t, before.RemainingTimeSeconds, after.RemainingTimeSeconds)

	assert.Equal(t, []string{"stay in frame", "second warning"}, e.PopWarnings())
	assert.Empty(t, e.PopWarnings())
}

func TestAddBehaviorFlagMergedIntoAnalysis(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	ok := e.AddBehaviorFlag(model.BehaviorFlag{
		Type:        model.FlagFaceAbsent,
		Description: "Face absent for 12s",
		Severity:    model.SeverityMedium,
		Timestamp:   clock.Now(),
	})
	require.True(t, ok)

	clock.Advance(20 * time.Minute)
	require.True(t, e.Submit())

	examLog := e.Log()
	found := false
	for _, f := range examLog.BehaviorFlags {
		if f.Type == model.FlagFaceAbsent {
			found = true
		}
	}
	assert.True(t, found)

	// Post-submission flags are dropped.
	assert.False(t, e.AddBehaviorFlag(model.BehaviorFlag{Type: model.FlagMultipleFaces}))
}

func TestProgressUpdateReflectsAnswers(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	e := newTestEngine(t, clock)

	e.SelectAnswer("q1", 0)
	e.Navigate(2)
	e.SelectAnswer("q3", 1)

	upd, ok := e.ProgressUpdate()
	require.True(t, ok)
	require.NotNil(t, upd.CurrentQuestion)
	require.NotNil(t, upd.AnsweredCount)
	assert.Equal(t, 2, *upd.CurrentQuestion)
	assert.Equal(t, 2, *upd.AnsweredCount)
}
