package analyzer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

func question(id string, difficulty model.Difficulty, minSeconds int) model.Question {
	return model.Question{
		QuestionID:         id,
		Text:               "placeholder",
		Options:            []string{"a", "b", "c", "d"},
		CorrectAnswer:      0,
		Difficulty:         difficulty,
		MinExpectedSeconds: minSeconds,
	}
}

func answered(option, timeSpent int) model.Answer {
	return model.Answer{SelectedOption: &option, TimeSpent: timeSpent}
}

func flagsOfType(flags []model.BehaviorFlag, t model.FlagType) []model.BehaviorFlag {
	var out []model.BehaviorFlag
	for _, f := range flags {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

func TestCleanExamScoresFull(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyEasy, 10),
		question("q2", model.DifficultyMedium, 20),
		question("q3", model.DifficultyHard, 60),
	}
	answers := []model.Answer{
		answered(0, 15),
		answered(1, 30), // wrong
		answered(0, 80),
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	assert.Empty(t, res.Flags)
	assert.Equal(t, 100, res.IntegrityScore)
	assert.Equal(t, model.RecommendationPass, res.Recommendation)
}

func TestVeryFastCorrectHardIsHighSeverity(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyEasy, 10),
	}
	answers := []model.Answer{
		answered(0, 20), // correct in a third of the minimum
		answered(1, 40), // slow wrong easy keeps the other passes quiet
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	fast := flagsOfType(res.Flags, model.FlagFastCorrect)
	require.Len(t, fast, 1)
	assert.Equal(t, model.SeverityHigh, fast[0].Severity)
	assert.Equal(t, 95, res.IntegrityScore)
	// A single high-severity flag escalates regardless of score.
	assert.Equal(t, model.RecommendationInvestigate, res.Recommendation)
}

func TestFastBelowMinButAboveHalfIsNotFlaggedIndividually(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyMedium, 20),
	}
	answers := []model.Answer{
		answered(0, 15), // below min, above half-min
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	assert.Empty(t, flagsOfType(res.Flags, model.FlagFastCorrect))
}

func TestTwoFastHardAnswersFormPattern(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyHard, 60),
		question("q3", model.DifficultyEasy, 10),
	}
	answers := []model.Answer{
		answered(0, 50), // correct, below min but not very fast
		answered(0, 55),
		answered(1, 15), // wrong easy, keeps accuracy passes quiet
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	patterns := flagsOfType(res.Flags, model.FlagSuspiciousPattern)
	require.Len(t, patterns, 1)
	assert.Equal(t, model.SeverityHigh, patterns[0].Severity)
	assert.Contains(t, patterns[0].Description, "2 hard questions")
}

func TestHardStreakCountsOnlyHardQuestions(t *testing.T) {
	// Hard correct, hard correct, easy wrong, hard correct: the easy
	// question neither breaks nor extends the streak, so it reaches 3.
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyHard, 60),
		question("q3", model.DifficultyEasy, 10),
		question("q4", model.DifficultyHard, 60),
		question("q5", model.DifficultyHard, 60), // wrong, resets
		question("q6", model.DifficultyHard, 60),
		question("q7", model.DifficultyHard, 60),
	}
	answers := []model.Answer{
		answered(0, 70),
		answered(0, 70),
		answered(1, 15),
		answered(0, 70),
		answered(1, 70),
		answered(0, 70),
		answered(0, 70),
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	var streaks []model.BehaviorFlag
	for _, f := range flagsOfType(res.Flags, model.FlagSuspiciousPattern) {
		if strings.Contains(f.Description, "consecutive") {
			streaks = append(streaks, f)
		}
	}
	require.Len(t, streaks, 1)
	assert.Equal(t, model.SeverityMedium, streaks[0].Severity)
	assert.Contains(t, streaks[0].Description, "3 consecutive hard questions")
}

func TestIncorrectHardResetsStreak(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyHard, 60),
		question("q3", model.DifficultyHard, 60), // wrong
		question("q4", model.DifficultyHard, 60),
		question("q5", model.DifficultyHard, 60), // wrong
	}
	answers := []model.Answer{
		answered(0, 70),
		answered(0, 70),
		answered(1, 70),
		answered(0, 70),
		answered(1, 70),
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	for _, f := range flagsOfType(res.Flags, model.FlagSuspiciousPattern) {
		assert.NotContains(t, f.Description, "consecutive")
	}
}

func TestPerfectHardAccuracyIsHighSeverity(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyHard, 60),
		question("q3", model.DifficultyHard, 60),
	}
	answers := []model.Answer{
		answered(0, 70),
		answered(0, 70),
		answered(0, 70),
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	acc := flagsOfType(res.Flags, model.FlagHighAccuracyHard)
	require.Len(t, acc, 1)
	assert.Equal(t, model.SeverityHigh, acc[0].Severity)
	assert.Equal(t, model.RecommendationInvestigate, res.Recommendation)
}

func TestInvertedDifficultyAccuracy(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyEasy, 10),
		question("q2", model.DifficultyEasy, 10),
		question("q3", model.DifficultyHard, 60),
		question("q4", model.DifficultyHard, 60),
	}
	answers := []model.Answer{
		answered(1, 15), // both easy wrong
		answered(1, 15),
		answered(0, 70), // one hard correct: 50% vs 0%
		answered(1, 70),
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	patterns := flagsOfType(res.Flags, model.FlagSuspiciousPattern)
	require.Len(t, patterns, 1)
	assert.Contains(t, patterns[0].Description, "Unusual pattern")
	assert.Equal(t, model.SeverityMedium, patterns[0].Severity)
	// One medium flag from the accuracy pass: 100 - 8 = 92.
	assert.Equal(t, 92, res.IntegrityScore)
	assert.Equal(t, model.RecommendationPass, res.Recommendation)
}

func TestImplausiblyLowTotalTime(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyEasy, 30),
		question("q2", model.DifficultyEasy, 30),
	}
	answers := []model.Answer{
		answered(1, 10), // wrong answers so only the time pass fires
		answered(1, 12),
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	patterns := flagsOfType(res.Flags, model.FlagSuspiciousPattern)
	require.Len(t, patterns, 1)
	assert.Contains(t, patterns[0].Description, "Total time")
	assert.Equal(t, model.SeverityHigh, patterns[0].Severity)
}

func TestUnansweredQuestionsAreSkipped(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyHard, 60),
		question("q3", model.DifficultyHard, 60),
	}
	// Nothing selected: no timing, accuracy, or streak flags. Dwell time
	// still accumulates, so the total-time check stays quiet.
	answers := []model.Answer{
		{TimeSpent: 70},
		{TimeSpent: 70},
		{TimeSpent: 70},
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	for _, f := range res.Flags {
		assert.NotEqual(t, model.FlagHighAccuracyHard, f.Type)
		assert.NotContains(t, f.Description, "consecutive")
	}
	assert.Equal(t, model.RecommendationPass, res.Recommendation)
}

func TestQuestionLogsOverrideCorrectness(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyHard, 60),
		question("q2", model.DifficultyHard, 60),
		question("q3", model.DifficultyHard, 60),
	}
	answers := []model.Answer{
		answered(0, 70),
		answered(0, 70),
		answered(0, 70),
	}
	// Logs mark everything incorrect; the accuracy pass must follow them.
	logs := []model.QuestionLog{
		{QuestionID: "q1", IsCorrect: false},
		{QuestionID: "q2", IsCorrect: false},
		{QuestionID: "q3", IsCorrect: false},
	}

	res := Analyze(questions, answers, logs, nil, testNow)

	assert.Empty(t, flagsOfType(res.Flags, model.FlagHighAccuracyHard))
}

func TestExistingFlagsCarryIntoRecommendation(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyEasy, 10),
	}
	answers := []model.Answer{
		answered(1, 15),
	}
	existing := []model.BehaviorFlag{
		{Type: model.FlagFaceAbsent, Description: "Face not detected for 45 seconds", Severity: model.SeverityHigh, Timestamp: testNow},
	}

	res := Analyze(questions, answers, nil, existing, testNow)

	require.Len(t, res.Flags, 1)
	assert.Equal(t, model.FlagFaceAbsent, res.Flags[0].Type)
	// Existing flags do not change the score, only the recommendation.
	assert.Equal(t, 100, res.IntegrityScore)
	assert.Equal(t, model.RecommendationInvestigate, res.Recommendation)
}

func TestManyFlagsTriggerReview(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyEasy, 10),
	}
	answers := []model.Answer{
		answered(1, 15),
	}
	existing := []model.BehaviorFlag{
		{Type: model.FlagFaceAbsent, Severity: model.SeverityLow, Timestamp: testNow},
		{Type: model.FlagFaceAbsent, Severity: model.SeverityLow, Timestamp: testNow},
		{Type: model.FlagFaceAbsent, Severity: model.SeverityLow, Timestamp: testNow},
		{Type: model.FlagFaceAbsent, Severity: model.SeverityLow, Timestamp: testNow},
	}

	res := Analyze(questions, answers, nil, existing, testNow)

	assert.Equal(t, model.RecommendationReview, res.Recommendation)
}

func TestScoreNeverGoesNegative(t *testing.T) {
	// Every pass fires on this input and the accumulated penalty
	// exceeds 100 points.
	var questions []model.Question
	var answers []model.Answer
	for i := 0; i < 15; i++ {
		questions = append(questions, question(fmt.Sprintf("q%d", i+1), model.DifficultyHard, 60))
		answers = append(answers, answered(0, 5))
	}

	res := Analyze(questions, answers, nil, nil, testNow)

	assert.Equal(t, 0, res.IntegrityScore)
	assert.Equal(t, model.RecommendationInvestigate, res.Recommendation)
}

func TestMismatchedAnswersPanics(t *testing.T) {
	questions := []model.Question{
		question("q1", model.DifficultyEasy, 10),
	}

	assert.Panics(t, func() {
		Analyze(questions, nil, nil, nil, testNow)
	})
}

func TestFaceFlagSeverityScaling(t *testing.T) {
	cases := []struct {
		name     string
		ev       FaceEvent
		severity model.Severity
		contains string
	}{
		{"short absence", FaceEvent{Kind: model.FlagFaceAbsent, DurationSeconds: 5}, model.SeverityLow, "5 seconds"},
		{"medium absence", FaceEvent{Kind: model.FlagFaceAbsent, DurationSeconds: 15}, model.SeverityMedium, "15 seconds"},
		{"long absence", FaceEvent{Kind: model.FlagFaceAbsent, DurationSeconds: 45}, model.SeverityHigh, "45 seconds"},
		{"few extra faces", FaceEvent{Kind: model.FlagMultipleFaces, Count: 2}, model.SeverityMedium, "2 times"},
		{"repeated extra faces", FaceEvent{Kind: model.FlagMultipleFaces, Count: 5}, model.SeverityHigh, "5 times"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			flag := NewFaceFlag(tc.ev, testNow)
			assert.Equal(t, tc.severity, flag.Severity)
			assert.Contains(t, flag.Description, tc.contains)
			assert.Equal(t, testNow, flag.Timestamp)
		})
	}
}
