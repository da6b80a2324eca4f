package question

import "github.com/invigilo/proctor-backend/internal/model"

// DefaultBank returns the seeded demo question bank. Minimum expected
// times reflect how long an honest attempt at each difficulty takes.
func DefaultBank() []model.Question {
	return []model.Question{
		{
			QuestionID:         "q1",
			Text:               "What is 15 + 27?",
			Options:            []string{"40", "42", "44", "46"},
			CorrectAnswer:      1,
			Difficulty:         model.DifficultyEasy,
			MinExpectedSeconds: 10,
		},
		{
			QuestionID:         "q2",
			Text:               "Which planet is known as the Red Planet?",
			Options:            []string{"Venus", "Jupiter", "Mars", "Saturn"},
			CorrectAnswer:      2,
			Difficulty:         model.DifficultyEasy,
			MinExpectedSeconds: 8,
		},
		{
			QuestionID:         "q3",
			Text:               "What is the chemical symbol for gold?",
			Options:            []string{"Go", "Gd", "Au", "Ag"},
			CorrectAnswer:      2,
			Difficulty:         model.DifficultyEasy,
			MinExpectedSeconds: 8,
		},
		{
			QuestionID:         "q4",
			Text:               "Solve for x: 3x - 7 = 14",
			Options:            []string{"5", "6", "7", "8"},
			CorrectAnswer:      2,
			Difficulty:         model.DifficultyMedium,
			MinExpectedSeconds: 30,
		},
		{
			QuestionID:         "q5",
			Text:               "Which sorting algorithm has the best average-case time complexity?",
			Options:            []string{"Bubble sort", "Insertion sort", "Merge sort", "Selection sort"},
			CorrectAnswer:      2,
			Difficulty:         model.DifficultyMedium,
			MinExpectedSeconds: 25,
		},
		{
			QuestionID:         "q6",
			Text:               "In which year did the Berlin Wall fall?",
			Options:            []string{"1987", "1989", "1991", "1993"},
			CorrectAnswer:      1,
			Difficulty:         model.DifficultyMedium,
			MinExpectedSeconds: 15,
		},
		{
			QuestionID:         "q7",
			Text:               "What is the derivative of x^3 * ln(x)?",
			Options:            []string{"3x^2 * ln(x)", "x^2 (3 ln(x) + 1)", "3x^2 + 1/x", "x^3 / x"},
			CorrectAnswer:      1,
			Difficulty:         model.DifficultyHard,
			MinExpectedSeconds: 90,
		},
		{
			QuestionID:         "q8",
			Text:               "Which of these problems is NP-complete?",
			Options:            []string{"Shortest path", "Minimum spanning tree", "Travelling salesman (decision)", "Binary search"},
			CorrectAnswer:      2,
			Difficulty:         model.DifficultyHard,
			MinExpectedSeconds: 60,
		},
		{
			QuestionID:         "q9",
			Text:               "What is the integral of 1/(1+x^2) dx?",
			Options:            []string{"ln(1+x^2) + C", "arctan(x) + C", "arcsin(x) + C", "1/(2x) + C"},
			CorrectAnswer:      1,
			Difficulty:         model.DifficultyHard,
			MinExpectedSeconds: 75,
		},
		{
			QuestionID:         "q10",
			Text:               "Which amendment to the US Constitution abolished slavery?",
			Options:            []string{"11th", "13th", "15th", "19th"},
			CorrectAnswer:      1,
			Difficulty:         model.DifficultyHard,
			MinExpectedSeconds: 45,
		},
	}
}
