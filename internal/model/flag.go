package model

import "time"

// FlagType enumerates behavior flag categories.
type FlagType string

const (
	FlagFastCorrect       FlagType = "fast_correct"
	FlagHighAccuracyHard  FlagType = "high_accuracy_hard"
	FlagSuspiciousPattern FlagType = "suspicious_pattern"
	FlagFaceAbsent        FlagType = "face_absent"
	FlagMultipleFaces     FlagType = "multiple_faces"
)

// Severity grades a behavior flag.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// BehaviorFlag is an advisory record of a pattern meriting review.
// Append-only: never mutated or removed after creation.
type BehaviorFlag struct {
	Type        FlagType  `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Severity    Severity  `json:"severity"`
}

// Recommendation is the triage bucket derived from score and severities.
type Recommendation string

const (
	RecommendationPass        Recommendation = "pass"
	RecommendationReview      Recommendation = "review"
	RecommendationInvestigate Recommendation = "investigate"
)

// IntegrityReport is the on-demand read model built from a stored ExamLog.
type IntegrityReport struct {
	SessionID       string         `json:"session_id"`
	StudentID       string         `json:"student_id"`
	StudentName     string         `json:"student_name,omitempty"`
	ExamDate        time.Time      `json:"exam_date"`
	DurationSeconds int            `json:"duration_seconds"`
	Accuracy        float64        `json:"accuracy"`
	IntegrityScore  int            `json:"integrity_score"`
	Recommendation  Recommendation `json:"recommendation"`
	Flags           []BehaviorFlag `json:"flags"`
}
