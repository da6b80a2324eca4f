package model

import "time"

// Answer tracks one question's response. timeSpent accumulates wall-clock
// seconds across every visit to the question, not just the final one.
// Once IsLocked, no field may change.
type Answer struct {
	QuestionID     string     `json:"question_id"`
	SelectedOption *int       `json:"selected_option"`
	TimeSpent      int        `json:"time_spent"`
	AnsweredAt     *time.Time `json:"answered_at"`
	IsLocked       bool       `json:"is_locked"`
}

// ExamState is one student's in-progress exam. Answers are 1:1 with
// Questions by index. Immutable once IsSubmitted.
type ExamState struct {
	Questions            []Question `json:"questions"`
	Answers              []Answer   `json:"answers"`
	CurrentQuestionIndex int        `json:"current_question_index"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time"`
	TotalDurationSeconds int        `json:"total_duration_seconds"`
	RemainingTimeSeconds int        `json:"remaining_time_seconds"`
	IsSubmitted          bool       `json:"is_submitted"`
}

// AnsweredCount returns the number of answers with a selection.
func (s *ExamState) AnsweredCount() int {
	n := 0
	for i := range s.Answers {
		if s.Answers[i].SelectedOption != nil {
			n++
		}
	}
	return n
}

// QuestionLog is the per-question record derived at submission time.
type QuestionLog struct {
	QuestionID           string     `json:"question_id"`
	Difficulty           Difficulty `json:"difficulty"`
	TimeSpent            int        `json:"time_spent"`
	IsCorrect            bool       `json:"is_correct"`
	AnsweredBelowMinTime bool       `json:"answered_below_min_time"`
	Timestamp            time.Time  `json:"timestamp"`
}

// ExamLog aggregates the finished exam for analysis and persistence.
type ExamLog struct {
	SessionID           string         `json:"session_id"`
	StudentID           string         `json:"student_id"`
	QuestionLogs        []QuestionLog  `json:"question_logs"`
	BehaviorFlags       []BehaviorFlag `json:"behavior_flags"`
	TotalCorrect        int            `json:"total_correct"`
	TotalQuestions      int            `json:"total_questions"`
	Accuracy            float64        `json:"accuracy"`
	IntegrityScore      int            `json:"integrity_score"`
	Recommendation      Recommendation `json:"recommendation"`
	ExamDurationSeconds int            `json:"exam_duration_seconds"`
	StartTime           time.Time      `json:"start_time"`
	EndTime             *time.Time     `json:"end_time"`
}
