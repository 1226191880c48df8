// Package monitor runs exam monitoring sessions.
//
// A Monitor owns the Idle/Monitoring state machine around a risk engine:
// starting a session emits exactly one SessionStarted event, stopping emits
// exactly one SessionEnded, and both operations are idempotent. While
// monitoring, the monitor periodically persists engine snapshots and the
// event timeline for the session's student.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"proctord/internal/activity"
	"proctord/internal/logging"
	"proctord/internal/risk"
	"proctord/internal/store"
)

// Config configures a monitor.
type Config struct {
	// StudentID identifies whose session this is.
	StudentID string

	// Store receives periodic snapshots and the event timeline. Nil
	// disables persistence.
	Store *store.Store

	// SnapshotInterval is how often state is persisted while monitoring.
	// Zero disables the periodic loop; a final snapshot is still written
	// on Stop when a store is configured.
	SnapshotInterval time.Duration

	// Logger for session lifecycle messages. Nil uses the default.
	Logger *logging.Logger
}

// Monitor drives one student's monitoring session.
type Monitor struct {
	mu     sync.Mutex
	engine *risk.Engine
	cfg    Config
	log    *logging.Logger

	sessionID string

	monitoring     bool
	sessionStarted bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor around the given engine.
func New(engine *risk.Engine, cfg Config) *Monitor {
	log := cfg.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Monitor{
		engine: engine,
		cfg:    cfg,
		log:    log.WithComponent("monitor"),
	}
}

// Engine returns the underlying risk engine.
func (m *Monitor) Engine() *risk.Engine {
	return m.engine
}

// SessionID returns the current (or most recent) session ID.
func (m *Monitor) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Monitoring reports whether a session is active.
func (m *Monitor) Monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitoring
}

// Start transitions Idle -> Monitoring. Calling Start while already
// monitoring is a no-op. The transition emits a single SessionStarted
// event, guarded by the session flag so repeated transitions cannot
// double-emit within one session.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.monitoring {
		m.mu.Unlock()
		return nil
	}
	m.monitoring = true
	m.sessionID = uuid.NewString()
	startEvent := !m.sessionStarted
	m.sessionStarted = true

	var ctx context.Context
	ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	if m.cfg.Store != nil {
		err := m.cfg.Store.InsertSession(&store.Session{
			ID:        m.sessionID,
			StudentID: m.cfg.StudentID,
			StartedNs: time.Now().UnixNano(),
		})
		if err != nil {
			m.log.Error("persist session", "error", err)
		}
	}

	if startEvent {
		m.engine.Record(activity.SessionStarted, "Monitoring begun")
	}

	if m.cfg.Store != nil && m.cfg.SnapshotInterval > 0 {
		m.wg.Add(1)
		go m.snapshotLoop(ctx)
	}

	m.log.Info("session started", "session_id", m.sessionID, "student_id", m.cfg.StudentID)
	return nil
}

// Stop transitions Monitoring -> Idle. Calling Stop while idle is a no-op.
// The transition emits a single SessionEnded event and writes a final
// snapshot when persistence is configured.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.monitoring {
		m.mu.Unlock()
		return nil
	}
	m.monitoring = false
	m.sessionStarted = false
	cancel := m.cancel
	m.cancel = nil
	sessionID := m.sessionID
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.engine.Record(activity.SessionEnded, "Monitoring stopped")

	if m.cfg.Store != nil {
		m.persistSnapshot(sessionID)
		if err := m.cfg.Store.EndSession(sessionID, time.Now().UnixNano()); err != nil {
			m.log.Error("end session", "error", err)
		}
	}

	m.log.Info("session ended", "session_id", sessionID)
	return nil
}

// RecordActivity is the ingress for raw sensor observations. Events
// recorded while idle still flow into the engine; the session state machine
// only governs the Session* markers and persistence.
func (m *Monitor) RecordActivity(t activity.Type, details string) activity.Event {
	return m.engine.Record(t, details)
}

// snapshotLoop persists the derived state at the configured cadence.
func (m *Monitor) snapshotLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			sessionID := m.sessionID
			m.mu.Unlock()
			m.persistSnapshot(sessionID)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) persistSnapshot(sessionID string) {
	snap := m.engine.Snapshot()

	_, err := m.cfg.Store.InsertSnapshot(&store.Snapshot{
		SessionID:               sessionID,
		TakenNs:                 time.Now().UnixNano(),
		TotalRiskScore:          snap.TotalRiskScore,
		MaxRiskScore:            snap.MaxRiskScore,
		Level:                   string(snap.Level),
		ConsecutiveCopyAttempts: snap.Streaks.ConsecutiveCopyAttempts,
		ConsecutiveFocusChanges: snap.Streaks.ConsecutiveFocusChanges,
		EventCount:              snap.EventCount,
	})
	if err != nil {
		m.log.Error("persist snapshot", "error", err)
		return
	}

	events := m.engine.Events()
	rows := make([]store.Event, 0, len(events))
	for _, e := range events {
		rows = append(rows, store.Event{
			ID:          e.ID,
			SessionID:   sessionID,
			TimestampNs: e.Timestamp.UnixNano(),
			Type:        string(e.Type),
			Details:     e.Details,
			RiskScore:   e.RiskScore,
		})
	}
	if err := m.cfg.Store.InsertEvents(rows); err != nil {
		m.log.Error("persist events", "error", err)
	}
}
