package monitor

import (
	"context"
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"proctord/internal/activity"
)

// Simulator generates plausible sensor observations at a fixed cadence,
// standing in for real browser-side listeners during demos and tests.
//
// The mix is weighted the way an actual exam session looks: mostly benign
// mouse and keyboard activity, occasional focus changes and tab switches,
// rare clipboard use. High-frequency cadences carry the "High frequency"
// annotation convention the classifier keys on.
type Simulator struct {
	monitor  *Monitor
	rng      *mathrand.Rand
	interval time.Duration

	wg sync.WaitGroup
}

// NewSimulator creates a simulator feeding the given monitor. A nil rng
// seeds from the clock.
func NewSimulator(m *Monitor, rng *mathrand.Rand, interval time.Duration) *Simulator {
	if rng == nil {
		rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Simulator{
		monitor:  m,
		rng:      rng,
		interval: interval,
	}
}

// Emit produces one simulated observation.
func (s *Simulator) Emit() activity.Event {
	t, details := s.next()
	return s.monitor.RecordActivity(t, details)
}

// Run emits observations at the configured cadence until the context is
// cancelled.
func (s *Simulator) Run(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Emit()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the simulation loop has exited.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

func (s *Simulator) next() (activity.Type, string) {
	roll := s.rng.Intn(100)
	switch {
	case roll < 35:
		n := s.rng.Intn(400) + 20
		if n > 300 {
			return activity.MouseMovement, fmt.Sprintf("High frequency movement detected: %d movements/sec", n)
		}
		return activity.MouseMovement, fmt.Sprintf("Normal movement detected: %d movements", n)
	case roll < 65:
		n := s.rng.Intn(60) + 5
		if n > 40 {
			return activity.KeyboardActivity, fmt.Sprintf("High frequency typing detected: %d keystrokes in 5 seconds", n)
		}
		return activity.KeyboardActivity, fmt.Sprintf("Normal typing detected: %d keystrokes", n)
	case roll < 80:
		if s.rng.Intn(2) == 0 {
			return activity.FocusChange, "Application lost focus"
		}
		return activity.FocusChange, "Application gained focus"
	case roll < 90:
		return activity.TabSwitch, "Switched away from exam tab"
	case roll < 94:
		return activity.CopyAttempt, "Copy shortcut detected"
	case roll < 97:
		return activity.PasteAttempt, "Paste shortcut detected"
	default:
		return activity.ExternalCopyDetected, "External clipboard content detected"
	}
}
