package monitor

import (
	"context"
	"sync"
	"time"

	"proctord/internal/activity"
	"proctord/internal/risk"
)

// DefaultPlaybackInterval is the cadence at which imported records are
// replayed into the engine.
const DefaultPlaybackInterval = 3 * time.Second

// Player replays an imported dataset into a risk engine as if the events
// arrived live, one record per tick, looping back to the first record after
// exhausting the set.
type Player struct {
	mu       sync.Mutex
	engine   *risk.Engine
	events   []activity.Event
	idx      int
	interval time.Duration

	wg sync.WaitGroup
}

// NewPlayer creates a player over a newest-first dataset. A non-positive
// interval falls back to the default.
func NewPlayer(engine *risk.Engine, events []activity.Event, interval time.Duration) *Player {
	if interval <= 0 {
		interval = DefaultPlaybackInterval
	}
	return &Player{
		engine:   engine,
		events:   events,
		interval: interval,
	}
}

// Step injects the next dataset record and advances the cursor, looping at
// the end. Each injection is a fresh event stamped at ingestion time: the
// record's type, details, and pre-assigned risk score are preserved, but
// identifiers are never reused across loop iterations.
//
// Step is exported so tests and interactive callers can drive playback
// without the timer.
func (p *Player) Step() activity.Event {
	p.mu.Lock()
	if len(p.events) == 0 {
		p.mu.Unlock()
		return activity.Event{}
	}
	src := p.events[p.idx]
	p.idx = (p.idx + 1) % len(p.events)
	p.mu.Unlock()

	e := activity.NewEvent(src.Type, src.Details, src.RiskScore, time.Now())
	p.engine.ImportEvents([]activity.Event{e})
	return e
}

// SetEvents swaps the dataset being replayed and rewinds to the first
// record. Used when a watched dataset file changes mid-session.
func (p *Player) SetEvents(events []activity.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = events
	p.idx = 0
}

// Position returns the cursor index of the next record to replay.
func (p *Player) Position() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Run replays records at the configured cadence until the context is
// cancelled.
func (p *Player) Run(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.Step()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the playback loop has exited.
func (p *Player) Wait() {
	p.wg.Wait()
}
