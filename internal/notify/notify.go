// Package notify delivers high-risk event notifications to proctors.
//
// Two sinks are provided: a structured-log sink that always works, and a
// desktop sink that raises freedesktop notifications over the session bus
// where one is available. The risk engine only sees the small Notifier
// interface and does not care which sinks are behind it.
package notify

import (
	"fmt"

	"github.com/godbus/dbus/v5"

	"proctord/internal/activity"
	"proctord/internal/logging"
)

// LogNotifier writes high-risk notifications to the structured log.
type LogNotifier struct {
	log *logging.Logger
}

// NewLogNotifier creates a log-backed notification sink. A nil logger uses
// the default.
func NewLogNotifier(log *logging.Logger) *LogNotifier {
	if log == nil {
		log = logging.Default()
	}
	return &LogNotifier{log: log}
}

// HighRisk logs the event, at warn level for severe events.
func (n *LogNotifier) HighRisk(e activity.Event, severe bool) {
	args := []any{
		"type", string(e.Type),
		"risk_score", e.RiskScore,
		"details", e.Details,
	}
	if severe {
		n.log.Warn("high-risk activity", args...)
		return
	}
	n.log.Info("elevated-risk activity", args...)
}

// DesktopNotifier raises desktop notifications via
// org.freedesktop.Notifications on the D-Bus session bus.
type DesktopNotifier struct {
	conn *dbus.Conn
}

// NewDesktopNotifier connects to the session bus. It fails where no session
// bus is running; callers fall back to the log sink.
func NewDesktopNotifier() (*DesktopNotifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &DesktopNotifier{conn: conn}, nil
}

// Close releases the bus connection.
func (n *DesktopNotifier) Close() error {
	return n.conn.Close()
}

// Urgency levels per the freedesktop notification spec.
const (
	urgencyNormal   byte = 1
	urgencyCritical byte = 2
)

// HighRisk raises a desktop notification. Severe events use critical
// urgency so they stay on screen until dismissed.
func (n *DesktopNotifier) HighRisk(e activity.Event, severe bool) {
	urgency := urgencyNormal
	if severe {
		urgency = urgencyCritical
	}

	summary := fmt.Sprintf("%s detected", e.Type)
	body := fmt.Sprintf("Risk score: %.1f%%", e.RiskScore)
	if e.Details != "" {
		body += "\n" + e.Details
	}

	obj := n.conn.Object("org.freedesktop.Notifications", "/org/freedesktop/Notifications")
	call := obj.Call("org.freedesktop.Notifications.Notify", 0,
		"proctord",              // app name
		uint32(0),               // replaces id
		"dialog-warning",        // icon
		summary, body,
		[]string{},              // actions
		map[string]dbus.Variant{"urgency": dbus.MakeVariant(urgency)},
		int32(-1),               // default timeout
	)
	if call.Err != nil {
		logging.Warn("desktop notification failed", "error", call.Err)
	}
}

// Multi fans a notification out to several sinks.
type Multi []interface {
	HighRisk(e activity.Event, severe bool)
}

// HighRisk forwards to every sink.
func (m Multi) HighRisk(e activity.Event, severe bool) {
	for _, n := range m {
		n.HighRisk(e, severe)
	}
}
