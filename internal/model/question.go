package model

// Difficulty grades a question for behavior analysis.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is a single multiple-choice exam question. A snapshot is taken
// into the exam state at start; later edits reach the student only through
// the question-version poll and never touch locked answers.
type Question struct {
	QuestionID         string     `json:"question_id"`
	Text               string     `json:"text"`
	Options            []string   `json:"options"`
	CorrectAnswer      int        `json:"correct_answer"`
	Difficulty         Difficulty `json:"difficulty"`
	MinExpectedSeconds int        `json:"min_expected_seconds"`
}

// QuestionPatch carries a partial question edit. Nil fields are left as-is.
type QuestionPatch struct {
	Text               *string     `json:"text,omitempty" binding:"omitempty,min=1,max=2000"`
	Options            []string    `json:"options,omitempty" binding:"omitempty,len=4,dive,min=1"`
	CorrectAnswer      *int        `json:"correct_answer,omitempty" binding:"omitempty,min=0,max=3"`
	Difficulty         *Difficulty `json:"difficulty,omitempty" binding:"omitempty,oneof=easy medium hard"`
	MinExpectedSeconds *int        `json:"min_expected_seconds,omitempty" binding:"omitempty,min=1"`
}

// AddQuestionRequest is the payload for adding a question to the bank.
type AddQuestionRequest struct {
	Text               string     `json:"text" binding:"required,min=1,max=2000"`
	Options            []string   `json:"options" binding:"required,len=4,dive,min=1"`
	CorrectAnswer      int        `json:"correct_answer" binding:"min=0,max=3"`
	Difficulty         Difficulty `json:"difficulty" binding:"required,oneof=easy medium hard"`
	MinExpectedSeconds int        `json:"min_expected_seconds" binding:"required,min=1"`
}
