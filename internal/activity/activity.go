// Package activity defines the observed interaction event model and the
// newest-first event stream that the risk engine reads.
//
// An activity event is one classified, timestamped, scored observation of
// user interaction. Events carry no content: only the interaction type, an
// optional human-readable annotation, and the risk contribution assigned at
// classification time. Events are immutable once created.
package activity

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of observed interaction.
//
// The set below is closed for classification purposes, but the type is a
// plain string so that imported records with unknown labels are preserved
// verbatim rather than rejected.
type Type string

const (
	FocusChange          Type = "Focus Change"
	MouseMovement        Type = "Mouse Movement"
	KeyboardActivity     Type = "Keyboard Activity"
	TabSwitch            Type = "Tab Switch"
	CopyAttempt          Type = "Copy Attempt"
	PasteAttempt         Type = "Paste Attempt"
	ExternalCopyDetected Type = "External Copy Detected"
	SessionStarted       Type = "Session Started"
	SessionEnded         Type = "Session Ended"
)

// CopyFamily reports whether t belongs to the clipboard-related family that
// the pattern detector treats as a single streak.
func CopyFamily(t Type) bool {
	return t == CopyAttempt || t == PasteAttempt || t == ExternalCopyDetected
}

// Event is a single observed interaction.
//
// RiskScore is the contribution this event makes to the aggregate, assigned
// once at creation and in [0, 100]. It is not the running total.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      Type      `json:"type"`
	Details   string    `json:"details,omitempty"`
	RiskScore float64   `json:"risk_score"`
}

// NewEvent creates an event with a fresh ID stamped at the given time.
func NewEvent(t Type, details string, riskScore float64, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: at,
		Type:      t,
		Details:   details,
		RiskScore: riskScore,
	}
}
