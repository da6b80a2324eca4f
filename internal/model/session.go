package model

import "time"

// SessionStatus is the derived status exposed to the dashboard.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusPaused     SessionStatus = "paused"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusTerminated SessionStatus = "terminated"
	SessionStatusFlagged    SessionStatus = "flagged"
)

// ActivityEntry is one line of a session's append-only activity log.
type ActivityEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// ActiveSessionRecord is the stored registry entry for one live exam session.
// Written heartbeat-style by the student's exam client, read by the admin
// dashboard; no other writer.
type ActiveSessionRecord struct {
	SessionID            string          `json:"session_id"`
	StudentID            string          `json:"student_id"`
	StudentName          string          `json:"student_name"`
	ExamID               string          `json:"exam_id"`
	StartTime            time.Time       `json:"start_time"`
	TotalDurationSeconds int             `json:"total_duration_seconds"`
	TotalQuestions       int             `json:"total_questions"`
	CurrentQuestion      int             `json:"current_question"`
	AnsweredCount        int             `json:"answered_count"`
	WebcamActive         bool            `json:"webcam_active"`
	ScreenShareActive    bool            `json:"screen_share_active"`
	MobileConnected      bool            `json:"mobile_connected"`
	Completed            bool            `json:"completed"`
	BehaviorFlags        []BehaviorFlag  `json:"behavior_flags"`
	ActivityLog          []ActivityEntry `json:"activity_log"`
	LastUpdate           time.Time       `json:"last_update"`
}

// SessionUpdate carries the partial fields a registry update may change.
// Identity fields (session/student id, name) are deliberately absent.
type SessionUpdate struct {
	CurrentQuestion   *int           `json:"current_question,omitempty"`
	AnsweredCount     *int           `json:"answered_count,omitempty"`
	WebcamActive      *bool          `json:"webcam_active,omitempty"`
	ScreenShareActive *bool          `json:"screen_share_active,omitempty"`
	MobileConnected   *bool          `json:"mobile_connected,omitempty"`
	BehaviorFlags     []BehaviorFlag `json:"behavior_flags,omitempty"`
}

// SessionView is the dashboard read projection of a registry record,
// with derived status and staleness applied.
type SessionView struct {
	SessionID         string          `json:"session_id"`
	ExamID            string          `json:"exam_id"`
	StudentID         string          `json:"student_id"`
	StudentName       string          `json:"student_name"`
	Status            SessionStatus   `json:"status"`
	StartTime         time.Time       `json:"start_time"`
	TimeRemaining     int             `json:"time_remaining"`
	CurrentQuestion   int             `json:"current_question"`
	AnsweredCount     int             `json:"answered_count"`
	TotalQuestions    int             `json:"total_questions"`
	WebcamActive      bool            `json:"webcam_active"`
	ScreenShareActive bool            `json:"screen_share_active"`
	MobileConnected   bool            `json:"mobile_connected"`
	BehaviorFlags     []BehaviorFlag  `json:"behavior_flags"`
	ActivityLog       []ActivityEntry `json:"activity_log"`
}

// ControlCommand is an out-of-band admin command addressed to a student
// session, delivered within one poll cycle.
type ControlCommand struct {
	Kind     ControlKind `json:"kind"`
	Message  string      `json:"message,omitempty"`
	IssuedAt time.Time   `json:"issued_at"`
}

// ControlKind enumerates the admin commands a session must honor.
type ControlKind string

const (
	ControlTerminate ControlKind = "terminate"
	ControlWarn      ControlKind = "warn"
)
