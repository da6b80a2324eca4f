package analyzer

import (
	"fmt"
	"time"

	"github.com/invigilo/proctor-backend/internal/model"
)

// FaceEvent is the input from a face detector implementation. Detection
// itself is out of scope; any detector that can report absence duration and
// multi-face counts can feed the analyzer through this type.
type FaceEvent struct {
	Kind            model.FlagType `json:"kind" binding:"required,oneof=face_absent multiple_faces"`
	DurationSeconds int            `json:"duration_seconds,omitempty"`
	Count           int            `json:"count,omitempty"`
}

// NewFaceFlag grades a face-tracking event into a behavior flag.
// Absence severity scales with duration; multi-face severity with repetition.
func NewFaceFlag(ev FaceEvent, now time.Time) model.BehaviorFlag {
	if ev.Kind == model.FlagFaceAbsent {
		severity := model.SeverityLow
		switch {
		case ev.DurationSeconds > 30:
			severity = model.SeverityHigh
		case ev.DurationSeconds > 10:
			severity = model.SeverityMedium
		}
		return model.BehaviorFlag{
			Type:        model.FlagFaceAbsent,
			Description: fmt.Sprintf("Face not detected for %d seconds", ev.DurationSeconds),
			Timestamp:   now,
			Severity:    severity,
		}
	}

	count := ev.Count
	if count < 1 {
		count = 1
	}
	severity := model.SeverityMedium
	if count > 3 {
		severity = model.SeverityHigh
	}
	return model.BehaviorFlag{
		Type:        model.FlagMultipleFaces,
		Description: fmt.Sprintf("Multiple faces detected %d times", count),
		Timestamp:   now,
		Severity:    severity,
	}
}
