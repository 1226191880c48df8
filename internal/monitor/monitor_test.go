package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proctord/internal/activity"
	"proctord/internal/risk"
	"proctord/internal/store"
)

func newTestMonitor(t *testing.T, cfg Config) *Monitor {
	t.Helper()
	engine := risk.NewEngine(risk.NewClassifier(risk.ClassifierConfig{JitterRange: 0}))
	return New(engine, cfg)
}

func countByType(events []activity.Event) map[activity.Type]int {
	counts := make(map[activity.Type]int)
	for _, e := range events {
		counts[e.Type]++
	}
	return counts
}

func TestMonitor_StartStopEmitSessionMarkers(t *testing.T) {
	m := newTestMonitor(t, Config{StudentID: "alice"})

	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())

	counts := countByType(m.Engine().Events())
	assert.Equal(t, 1, counts[activity.SessionStarted])
	assert.Equal(t, 1, counts[activity.SessionEnded])
}

func TestMonitor_StartIsIdempotent(t *testing.T) {
	m := newTestMonitor(t, Config{StudentID: "alice"})

	require.NoError(t, m.Start())
	id := m.SessionID()

	// Re-entering Monitoring while already monitoring is a no-op: no new
	// session, no duplicate SessionStarted.
	require.NoError(t, m.Start())
	require.NoError(t, m.Start())

	assert.Equal(t, id, m.SessionID())
	counts := countByType(m.Engine().Events())
	assert.Equal(t, 1, counts[activity.SessionStarted])
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	m := newTestMonitor(t, Config{StudentID: "alice"})

	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	counts := countByType(m.Engine().Events())
	assert.Equal(t, 1, counts[activity.SessionEnded])
}

func TestMonitor_RestartEmitsFreshMarkers(t *testing.T) {
	m := newTestMonitor(t, Config{StudentID: "alice"})

	// Idle -> Monitoring -> Idle -> Monitoring: two SessionStarted, one
	// SessionEnded in between.
	require.NoError(t, m.Start())
	first := m.SessionID()
	require.NoError(t, m.Stop())
	require.NoError(t, m.Start())

	assert.NotEqual(t, first, m.SessionID())
	counts := countByType(m.Engine().Events())
	assert.Equal(t, 2, counts[activity.SessionStarted])
	assert.Equal(t, 1, counts[activity.SessionEnded])
}

func TestMonitor_RecordActivityFlowsToEngine(t *testing.T) {
	m := newTestMonitor(t, Config{StudentID: "alice"})
	require.NoError(t, m.Start())

	e := m.RecordActivity(activity.CopyAttempt, "Copy shortcut detected")
	assert.Equal(t, 12.5, e.RiskScore)

	// 12.5 event weight plus the length-1 copy streak penalty.
	snap := m.Engine().Snapshot()
	assert.Equal(t, 16.5, snap.TotalRiskScore)
	assert.Equal(t, 1, snap.Streaks.ConsecutiveCopyAttempts)
}

func TestMonitor_PersistsSessionAndSnapshot(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "proctord.db"))
	require.NoError(t, err)
	defer st.Close()

	m := newTestMonitor(t, Config{StudentID: "alice", Store: st})
	require.NoError(t, m.Start())
	m.RecordActivity(activity.ExternalCopyDetected, "")
	m.RecordActivity(activity.ExternalCopyDetected, "")
	sessionID := m.SessionID()
	require.NoError(t, m.Stop())

	sess, err := st.GetSession(sessionID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.StudentID)
	assert.NotZero(t, sess.EndedNs)

	snap, err := st.LatestSnapshot(sessionID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.ConsecutiveCopyAttempts)
	assert.Greater(t, snap.TotalRiskScore, 0.0)

	events, err := st.GetEvents(sessionID)
	require.NoError(t, err)
	// SessionStarted, two external copies, SessionEnded.
	assert.Len(t, events, 4)
}

func TestPlayer_StepLoops(t *testing.T) {
	engine := risk.NewEngine(risk.NewClassifier(risk.ClassifierConfig{JitterRange: 0}))
	events := []activity.Event{
		{ID: "a", Type: activity.CopyAttempt, RiskScore: 12.5},
		{ID: "b", Type: activity.TabSwitch, RiskScore: 7.5},
	}
	p := NewPlayer(engine, events, time.Second)

	first := p.Step()
	second := p.Step()
	third := p.Step()

	assert.Equal(t, activity.CopyAttempt, first.Type)
	assert.Equal(t, activity.TabSwitch, second.Type)
	assert.Equal(t, activity.CopyAttempt, third.Type, "playback loops to the first record")
	assert.Equal(t, 1, p.Position())
	assert.Equal(t, 3, engine.Snapshot().EventCount)
}

func TestPlayer_InjectionsGetFreshIDs(t *testing.T) {
	engine := risk.NewEngine(nil)
	src := []activity.Event{{ID: "dataset-id", Type: activity.PasteAttempt, RiskScore: 15}}
	p := NewPlayer(engine, src, time.Second)

	first := p.Step()
	second := p.Step()

	// Looping playback re-injects the same record, but identifiers are
	// never reused; the pre-assigned score is preserved.
	assert.NotEqual(t, "dataset-id", first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 15.0, first.RiskScore)
	assert.Equal(t, 15.0, second.RiskScore)
}

func TestPlayer_EmptyDataset(t *testing.T) {
	engine := risk.NewEngine(nil)
	p := NewPlayer(engine, nil, time.Second)

	e := p.Step()
	assert.Empty(t, e.ID)
	assert.Zero(t, engine.Snapshot().EventCount)
}

func TestPlayer_SetEventsRewinds(t *testing.T) {
	engine := risk.NewEngine(nil)
	p := NewPlayer(engine, []activity.Event{
		{ID: "a", Type: activity.FocusChange, RiskScore: 5},
		{ID: "b", Type: activity.FocusChange, RiskScore: 5},
	}, time.Second)

	p.Step()
	require.Equal(t, 1, p.Position())

	p.SetEvents([]activity.Event{{ID: "c", Type: activity.TabSwitch, RiskScore: 7.5}})
	assert.Zero(t, p.Position())
	assert.Equal(t, activity.TabSwitch, p.Step().Type)
}

func TestSimulator_EmitFeedsMonitor(t *testing.T) {
	m := newTestMonitor(t, Config{StudentID: "alice"})
	sim := NewSimulator(m, nil, time.Second)

	for i := 0; i < 20; i++ {
		e := sim.Emit()
		require.NotEmpty(t, e.ID)
	}

	assert.Equal(t, 20, m.Engine().Snapshot().EventCount)
}
