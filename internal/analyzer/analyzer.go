// Package analyzer converts per-question timing and correctness data into
// severity-graded behavior flags, an aggregate integrity score, and a triage
// recommendation.
//
// This is flagging, NOT cheating detection. Flags indicate patterns that may
// warrant human review; the analyzer never blocks submission or alters
// correctness scoring.
package analyzer

import (
	"fmt"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
)

// Penalty points per flag, by origin pass and severity.
const (
	timingFlagPenalty   = 5
	sequenceFlagPenalty = 10

	accuracyHighPenalty   = 15
	accuracyMediumPenalty = 8
	accuracyLowPenalty    = 3
)

// Recommendation thresholds on the 0-100 integrity score.
const (
	investigateBelow = 50
	reviewBelow      = 75
	reviewFlagCount  = 3
)

// Result is the outcome of analyzing one finished exam.
type Result struct {
	Flags          []model.BehaviorFlag
	IntegrityScore int
	Recommendation model.Recommendation
}

// Analyze runs the three analysis passes over a finished exam and folds the
// resulting flags together with existing (e.g. face-tracking) flags into an
// integrity score and recommendation. Deterministic for identical inputs;
// now is used only for flag timestamps.
//
// Answers must be 1:1 with questions by index; a mismatch is a programmer
// error and panics. Unanswered questions are skipped from timing and
// accuracy counting.
func Analyze(
	questions []model.Question,
	answers []model.Answer,
	questionLogs []model.QuestionLog,
	existing []model.BehaviorFlag,
	now time.Time,
) Result {
	if len(answers) != len(questions) {
		panic(fmt.Sprintf("analyzer: %d answers for %d questions", len(answers), len(questions)))
	}
	if questionLogs != nil && len(questionLogs) != len(questions) {
		panic(fmt.Sprintf("analyzer: %d question logs for %d questions", len(questionLogs), len(questions)))
	}

	flags := make([]model.BehaviorFlag, 0, len(existing)+4)
	flags = append(flags, existing...)

	penalty := 0

	timingFlags := analyzeTimingPatterns(questions, answers, now)
	flags = append(flags, timingFlags...)
	penalty += len(timingFlags) * timingFlagPenalty

	accuracyFlags := analyzeAccuracyPatterns(questions, answers, questionLogs, now)
	flags = append(flags, accuracyFlags...)
	for _, f := range accuracyFlags {
		switch f.Severity {
		case model.SeverityHigh:
			penalty += accuracyHighPenalty
		case model.SeverityMedium:
			penalty += accuracyMediumPenalty
		case model.SeverityLow:
			penalty += accuracyLowPenalty
		}
	}

	sequenceFlags := analyzeAnswerSequence(questions, answers, now)
	flags = append(flags, sequenceFlags...)
	penalty += len(sequenceFlags) * sequenceFlagPenalty

	score := 100 - penalty
	if score < 0 {
		score = 0
	}

	return Result{
		Flags:          flags,
		IntegrityScore: score,
		Recommendation: recommend(score, flags),
	}
}

// recommend derives the triage bucket. Investigate is checked first so a
// single high-severity flag escalates even with an otherwise-high score.
func recommend(score int, flags []model.BehaviorFlag) model.Recommendation {
	anyHigh := false
	for _, f := range flags {
		if f.Severity == model.SeverityHigh {
			anyHigh = true
			break
		}
	}

	switch {
	case score < investigateBelow || anyHigh:
		return model.RecommendationInvestigate
	case score < reviewBelow || len(flags) > reviewFlagCount:
		return model.RecommendationReview
	default:
		return model.RecommendationPass
	}
}

// analyzeTimingPatterns flags individual very-fast correct answers and
// multi-question fast-answer patterns per difficulty bucket.
//
// Bucket counting uses the full minimum-time threshold; individual flag
// emission uses the stricter half-minimum threshold. The two are distinct
// on purpose.
func analyzeTimingPatterns(questions []model.Question, answers []model.Answer, now time.Time) []model.BehaviorFlag {
	var flags []model.BehaviorFlag

	fastMedium := 0
	fastHard := 0

	for i, q := range questions {
		ans := answers[i]
		if ans.SelectedOption == nil {
			continue
		}

		isCorrect := *ans.SelectedOption == q.CorrectAnswer
		isBelowMin := ans.TimeSpent < q.MinExpectedSeconds
		isVeryFast := float64(ans.TimeSpent) < float64(q.MinExpectedSeconds)*0.5

		if isCorrect && isBelowMin {
			switch q.Difficulty {
			case model.DifficultyMedium:
				fastMedium++
			case model.DifficultyHard:
				fastHard++
			}
		}

		if isCorrect && isVeryFast && q.Difficulty != model.DifficultyEasy {
			severity := model.SeverityMedium
			if q.Difficulty == model.DifficultyHard {
				severity = model.SeverityHigh
			}
			flags = append(flags, model.BehaviorFlag{
				Type: model.FlagFastCorrect,
				Description: fmt.Sprintf("Q%d (%s): answered correctly in %ds (expected min: %ds)",
					i+1, q.Difficulty, ans.TimeSpent, q.MinExpectedSeconds),
				Timestamp: now,
				Severity:  severity,
			})
		}
	}

	if fastHard >= 2 {
		flags = append(flags, model.BehaviorFlag{
			Type:        model.FlagSuspiciousPattern,
			Description: fmt.Sprintf("%d hard questions answered correctly below minimum expected time", fastHard),
			Timestamp:   now,
			Severity:    model.SeverityHigh,
		})
	}

	if fastMedium >= 3 {
		flags = append(flags, model.BehaviorFlag{
			Type:        model.FlagSuspiciousPattern,
			Description: fmt.Sprintf("%d medium questions answered correctly below minimum expected time", fastMedium),
			Timestamp:   now,
			Severity:    model.SeverityMedium,
		})
	}

	return flags
}

// analyzeAccuracyPatterns flags unusually high accuracy on hard questions
// and inverted difficulty patterns, over answered questions only.
func analyzeAccuracyPatterns(questions []model.Question, answers []model.Answer, questionLogs []model.QuestionLog, now time.Time) []model.BehaviorFlag {
	var flags []model.BehaviorFlag

	type bucket struct{ total, correct int }
	stats := map[model.Difficulty]*bucket{
		model.DifficultyEasy:   {},
		model.DifficultyMedium: {},
		model.DifficultyHard:   {},
	}

	for i, q := range questions {
		if answers[i].SelectedOption == nil {
			continue
		}

		isCorrect := *answers[i].SelectedOption == q.CorrectAnswer
		if questionLogs != nil {
			isCorrect = questionLogs[i].IsCorrect
		}

		stats[q.Difficulty].total++
		if isCorrect {
			stats[q.Difficulty].correct++
		}
	}

	hard := stats[model.DifficultyHard]
	if hard.total >= 3 {
		hardAccuracy := float64(hard.correct) / float64(hard.total)
		if hardAccuracy > 0.8 {
			severity := model.SeverityMedium
			if hardAccuracy == 1.0 {
				severity = model.SeverityHigh
			}
			flags = append(flags, model.BehaviorFlag{
				Type: model.FlagHighAccuracyHard,
				Description: fmt.Sprintf("%d/%d (%.0f%%) hard questions answered correctly",
					hard.correct, hard.total, hardAccuracy*100),
				Timestamp: now,
				Severity:  severity,
			})
		}
	}

	easy := stats[model.DifficultyEasy]
	if easy.total >= 2 && hard.total >= 2 {
		easyAccuracy := float64(easy.correct) / float64(easy.total)
		hardAccuracy := float64(hard.correct) / float64(hard.total)

		if hardAccuracy > easyAccuracy+0.2 {
			flags = append(flags, model.BehaviorFlag{
				Type: model.FlagSuspiciousPattern,
				Description: fmt.Sprintf("Unusual pattern: higher accuracy on hard (%.0f%%) than easy (%.0f%%) questions",
					hardAccuracy*100, easyAccuracy*100),
				Timestamp: now,
				Severity:  model.SeverityMedium,
			})
		}
	}

	return flags
}

// analyzeAnswerSequence flags streaks of consecutive correctly answered
// hard questions and implausibly low total time. Non-hard questions do not
// break or extend a streak; an incorrect or unanswered hard question resets it.
func analyzeAnswerSequence(questions []model.Question, answers []model.Answer, now time.Time) []model.BehaviorFlag {
	var flags []model.BehaviorFlag

	hardStreak := 0
	maxHardStreak := 0

	for i, q := range questions {
		if q.Difficulty != model.DifficultyHard {
			continue
		}
		ans := answers[i]
		if ans.SelectedOption != nil && *ans.SelectedOption == q.CorrectAnswer {
			hardStreak++
			if hardStreak > maxHardStreak {
				maxHardStreak = hardStreak
			}
		} else {
			hardStreak = 0
		}
	}

	if maxHardStreak >= 3 {
		flags = append(flags, model.BehaviorFlag{
			Type:        model.FlagSuspiciousPattern,
			Description: fmt.Sprintf("%d consecutive hard questions answered correctly", maxHardStreak),
			Timestamp:   now,
			Severity:    model.SeverityMedium,
		})
	}

	totalTime := 0
	for _, a := range answers {
		totalTime += a.TimeSpent
	}
	expectedMinTime := 0
	for _, q := range questions {
		expectedMinTime += q.MinExpectedSeconds
	}

	if float64(totalTime) < float64(expectedMinTime)*0.5 {
		flags = append(flags, model.BehaviorFlag{
			Type: model.FlagSuspiciousPattern,
			Description: fmt.Sprintf("Total time (%ds) is less than half the expected minimum (%ds)",
				totalTime, expectedMinTime),
			Timestamp: now,
			Severity:  model.SeverityHigh,
		})
	}

	return flags
}
