package risk

import (
	"math"
	"sync"

	"proctord/internal/activity"
)

// Snapshot is the externally visible risk state at a point in time.
// Consumers treat it as read-only; the engine owns the underlying state.
type Snapshot struct {
	TotalRiskScore float64 `json:"total_risk_score"`
	MaxRiskScore   float64 `json:"max_risk_score"`
	Level          Level   `json:"level"`
	Streaks        Streaks `json:"streaks"`
	EventCount     int     `json:"event_count"`
}

// Engine is the stateful risk accumulator for one exam session.
//
// It owns an event stream plus the derived risk state, and recomputes
// streaks and the aggregate score synchronously on every mutation. There is
// no background work; every call completes before returning. One engine per
// student session; engines share nothing.
type Engine struct {
	mu         sync.RWMutex
	stream     *activity.Stream
	classifier *Classifier

	total   float64
	maxRisk float64
	level   Level
	streaks Streaks

	subscribers    []func(Snapshot)
	eventObservers []func(activity.Event)
}

// NewEngine creates an engine with a fresh stream and the given classifier.
// A nil classifier gets the default configuration.
func NewEngine(classifier *Classifier) *Engine {
	if classifier == nil {
		classifier = NewClassifier(DefaultClassifierConfig())
	}
	return &Engine{
		stream:     activity.NewStream(),
		classifier: classifier,
		level:      LevelLow,
	}
}

// Subscribe registers a callback invoked synchronously with the new snapshot
// after every state change. Callbacks run on the mutating goroutine and must
// not call back into the engine.
func (g *Engine) Subscribe(fn func(Snapshot)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribers = append(g.subscribers, fn)
}

// OnEvent registers a callback invoked for every event entering the stream,
// recorded or imported. Like Subscribe callbacks, it runs synchronously on
// the mutating goroutine.
func (g *Engine) OnEvent(fn func(activity.Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.eventObservers = append(g.eventObservers, fn)
}

// Record classifies a raw observation, appends it to the stream, and
// recomputes the derived state. It returns the classified event.
func (g *Engine) Record(t activity.Type, details string) activity.Event {
	e := g.classifier.Classify(t, details)

	g.mu.Lock()
	g.stream.Append(e)
	snap := g.recomputeLocked()
	g.mu.Unlock()

	g.publishEvents(e)
	g.publish(snap)
	return e
}

// ImportEvents inserts pre-scored events into the stream (sorted
// newest-first by timestamp) and recomputes. Imported events are not
// reclassified; they already carry their own risk scores. An empty batch is
// a no-op that leaves all state untouched.
func (g *Engine) ImportEvents(batch []activity.Event) int {
	if len(batch) == 0 {
		return 0
	}

	g.mu.Lock()
	g.stream.ImportBatch(batch)
	snap := g.recomputeLocked()
	g.mu.Unlock()

	g.publishEvents(batch...)
	g.publish(snap)
	return len(batch)
}

// Reset clears the event stream and zeroes all derived state. It is the
// only operation that lowers the reported total.
func (g *Engine) Reset() {
	g.mu.Lock()
	g.stream.Clear()
	g.total = 0
	g.maxRisk = 0
	g.level = LevelLow
	g.streaks = Streaks{}
	snap := g.snapshotLocked()
	g.mu.Unlock()

	g.publish(snap)
}

// Snapshot returns the current derived risk state.
func (g *Engine) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

// Events returns the full newest-first event sequence.
func (g *Engine) Events() []activity.Event {
	return g.stream.All()
}

// recomputeLocked rederives streaks and the aggregate from the stream.
// Callers hold the write lock.
func (g *Engine) recomputeLocked() Snapshot {
	events := g.stream.All()
	g.streaks = DetectStreaks(events)

	a := Recompute(events, g.streaks, g.total)
	g.total = a.TotalRiskScore
	g.maxRisk = math.Max(g.maxRisk, a.InstantScore)
	g.level = a.Level

	return g.snapshotLocked()
}

func (g *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		TotalRiskScore: g.total,
		MaxRiskScore:   g.maxRisk,
		Level:          g.level,
		Streaks:        g.streaks,
		EventCount:     g.stream.Len(),
	}
}

func (g *Engine) publish(snap Snapshot) {
	g.mu.RLock()
	subs := g.subscribers
	g.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (g *Engine) publishEvents(events ...activity.Event) {
	g.mu.RLock()
	obs := g.eventObservers
	g.mu.RUnlock()
	for _, fn := range obs {
		for _, e := range events {
			fn(e)
		}
	}
}
