package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Schema for the proctord snapshot store.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id          TEXT PRIMARY KEY,
    student_id  TEXT NOT NULL,
    started_ns  INTEGER NOT NULL,
    ended_ns    INTEGER
);

CREATE TABLE IF NOT EXISTS snapshots (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id      TEXT NOT NULL REFERENCES sessions(id),
    taken_ns        INTEGER NOT NULL,
    total_risk      REAL NOT NULL,
    max_risk        REAL NOT NULL,
    level           TEXT NOT NULL,
    copy_streak     INTEGER NOT NULL,
    focus_streak    INTEGER NOT NULL,
    event_count     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id, taken_ns);

CREATE TABLE IF NOT EXISTS events (
    id              TEXT PRIMARY KEY,
    session_id      TEXT NOT NULL REFERENCES sessions(id),
    timestamp_ns    INTEGER NOT NULL,
    type            TEXT NOT NULL,
    details         TEXT,
    risk_score      REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, timestamp_ns);
`

// Store is the SQLite snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InsertSession records a new monitored session.
func (s *Store) InsertSession(sess *Session) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, student_id, started_ns, ended_ns)
		VALUES (?, ?, ?, NULLIF(?, 0))`,
		sess.ID, sess.StudentID, sess.StartedNs, sess.EndedNs,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// EndSession stamps the end time on a session.
func (s *Store) EndSession(id string, endedNs int64) error {
	result, err := s.db.Exec(`UPDATE sessions SET ended_ns = ? WHERE id = ?`, endedNs, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil when not found.
func (s *Store) GetSession(id string) (*Session, error) {
	var sess Session
	var endedNs sql.NullInt64

	err := s.db.QueryRow(`
		SELECT id, student_id, started_ns, ended_ns
		FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.StudentID, &sess.StartedNs, &endedNs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	sess.EndedNs = endedNs.Int64
	return &sess, nil
}

// ListSessions returns all sessions, most recent first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(`
		SELECT id, student_id, started_ns, ended_ns
		FROM sessions ORDER BY started_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var endedNs sql.NullInt64
		if err := rows.Scan(&sess.ID, &sess.StudentID, &sess.StartedNs, &endedNs); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.EndedNs = endedNs.Int64
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// InsertSnapshot persists one derived-state observation.
func (s *Store) InsertSnapshot(snap *Snapshot) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO snapshots (session_id, taken_ns, total_risk, max_risk, level, copy_streak, focus_streak, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.SessionID, snap.TakenNs, snap.TotalRiskScore, snap.MaxRiskScore,
		snap.Level, snap.ConsecutiveCopyAttempts, snap.ConsecutiveFocusChanges, snap.EventCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// GetSnapshots retrieves all snapshots for a session in time order.
func (s *Store) GetSnapshots(sessionID string) ([]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, taken_ns, total_risk, max_risk, level, copy_streak, focus_streak, event_count
		FROM snapshots
		WHERE session_id = ?
		ORDER BY taken_ns ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.SessionID, &snap.TakenNs, &snap.TotalRiskScore,
			&snap.MaxRiskScore, &snap.Level, &snap.ConsecutiveCopyAttempts,
			&snap.ConsecutiveFocusChanges, &snap.EventCount); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return snaps, nil
}

// LatestSnapshot retrieves the most recent snapshot for a session.
// Returns nil when the session has none.
func (s *Store) LatestSnapshot(sessionID string) (*Snapshot, error) {
	var snap Snapshot
	err := s.db.QueryRow(`
		SELECT id, session_id, taken_ns, total_risk, max_risk, level, copy_streak, focus_streak, event_count
		FROM snapshots
		WHERE session_id = ?
		ORDER BY taken_ns DESC
		LIMIT 1`, sessionID,
	).Scan(&snap.ID, &snap.SessionID, &snap.TakenNs, &snap.TotalRiskScore,
		&snap.MaxRiskScore, &snap.Level, &snap.ConsecutiveCopyAttempts,
		&snap.ConsecutiveFocusChanges, &snap.EventCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return &snap, nil
}

// InsertEvents persists a batch of events in one transaction. Events
// already present (by ID) are skipped, so re-persisting a timeline after
// new activity only adds the new rows.
func (s *Store) InsertEvents(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO events (id, session_id, timestamp_ns, type, details, risk_score)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(e.ID, e.SessionID, e.TimestampNs, e.Type, e.Details, e.RiskScore); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetEvents retrieves a session's events, newest first.
func (s *Store) GetEvents(sessionID string) ([]Event, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, timestamp_ns, type, details, risk_score
		FROM events
		WHERE session_id = ?
		ORDER BY timestamp_ns DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TimestampNs, &e.Type, &details, &e.RiskScore); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Details = details.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
