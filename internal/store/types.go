// Package store persists session snapshots and event timelines to SQLite.
//
// The store is the persistence collaborator of the risk engine: it maps
// session and student identity to periodic snapshots of the derived risk
// state plus the full event sequence, for later reporting. It never feeds
// back into scoring.
package store

// Session is one monitored exam session.
type Session struct {
	ID        string
	StudentID string
	StartedNs int64
	EndedNs   int64 // zero while the session is open
}

// Snapshot is one persisted observation of the derived risk state.
type Snapshot struct {
	ID                      int64
	SessionID               string
	TakenNs                 int64
	TotalRiskScore          float64
	MaxRiskScore            float64
	Level                   string
	ConsecutiveCopyAttempts int
	ConsecutiveFocusChanges int
	EventCount              int
}

// Event is one persisted activity event.
type Event struct {
	ID          string
	SessionID   string
	TimestampNs int64
	Type        string
	Details     string
	RiskScore   float64
}
