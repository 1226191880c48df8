package risk

import (
	"math"
	"testing"

	"proctord/internal/activity"
)

func scoredEvents(n int, score float64) []activity.Event {
	events := make([]activity.Event, n)
	for i := range events {
		events[i] = activity.Event{ID: "e", Type: activity.TabSwitch, RiskScore: score}
	}
	return events
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected Level
	}{
		{0, LevelLow},
		{24.9, LevelLow},
		{25.0, LevelMedium},
		{50, LevelMedium},
		{74.9, LevelMedium},
		{75.0, LevelHigh},
		{100, LevelHigh},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.expected {
			t.Errorf("LevelFor(%v) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestRecompute_EmptyStream(t *testing.T) {
	a := Recompute(nil, Streaks{}, 0)
	if a.TotalRiskScore != 0 || a.Level != LevelLow {
		t.Errorf("empty stream: got total=%v level=%q, want 0/low", a.TotalRiskScore, a.Level)
	}
}

func TestRecompute_CapsAtHundred(t *testing.T) {
	// Ten mid-weight events sum to 500 with no decay yet; the clamp holds
	// the score at 100.
	a := Recompute(scoredEvents(10, 50), Streaks{}, 0)
	if a.TotalRiskScore != 100 {
		t.Errorf("total = %v, want 100", a.TotalRiskScore)
	}
	if a.Level != LevelHigh {
		t.Errorf("level = %q, want high", a.Level)
	}

	// Twenty imported records at 50 each also land on the cap even after
	// decay, matching the import scenario.
	a = Recompute(scoredEvents(20, 50), Streaks{}, 0)
	if a.TotalRiskScore != 100 {
		t.Errorf("total for 20 records = %v, want 100", a.TotalRiskScore)
	}
}

func TestRecompute_WindowIsTwentyEvents(t *testing.T) {
	// 30 events of weight 1: only the newest 20 contribute to the sum,
	// while all 30 drive the decay exponent.
	events := scoredEvents(30, 1)
	a := Recompute(events, Streaks{}, 0)

	want := 20 * math.Pow(0.95, 20)
	if !approxEqual(a.TotalRiskScore, want) {
		t.Errorf("total = %v, want %v", a.TotalRiskScore, want)
	}
}

func TestRecompute_DecayUsesFullHistory(t *testing.T) {
	// The decay exponent counts every event ever recorded, not the
	// 20-event scoring window. Short sessions see no decay at all.
	short := Recompute(scoredEvents(10, 2), Streaks{}, 0)
	if !approxEqual(short.TotalRiskScore, 20) {
		t.Errorf("short session total = %v, want 20 (no decay)", short.TotalRiskScore)
	}

	long := Recompute(scoredEvents(12, 2), Streaks{}, 0)
	want := 24 * math.Pow(0.95, 2)
	if !approxEqual(long.TotalRiskScore, want) {
		t.Errorf("long session total = %v, want %v", long.TotalRiskScore, want)
	}
}

func TestRecompute_StreakPenalties(t *testing.T) {
	tests := []struct {
		name    string
		streaks Streaks
		want    float64
	}{
		{"no streaks", Streaks{}, 0},
		{"copy penalty scales", Streaks{ConsecutiveCopyAttempts: 3}, 12},
		{"copy penalty caps at 25", Streaks{ConsecutiveCopyAttempts: 10}, 25},
		{"focus penalty scales", Streaks{ConsecutiveFocusChanges: 4}, 8},
		{"focus penalty caps at 15", Streaks{ConsecutiveFocusChanges: 20}, 15},
		{"both penalties stack", Streaks{ConsecutiveCopyAttempts: 2, ConsecutiveFocusChanges: 2}, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Two zero-weight events so only the penalties contribute.
			a := Recompute(scoredEvents(2, 0), tt.streaks, 0)
			if !approxEqual(a.TotalRiskScore, tt.want) {
				t.Errorf("total = %v, want %v", a.TotalRiskScore, tt.want)
			}
		})
	}
}

func TestRecompute_Ratchet(t *testing.T) {
	// The reported total never drops below the previous total, even when
	// the instantaneous computation decays well under it.
	a := Recompute(scoredEvents(2, 1), Streaks{}, 80)
	if a.TotalRiskScore != 80 {
		t.Errorf("total = %v, want ratcheted 80", a.TotalRiskScore)
	}
	if !approxEqual(a.InstantScore, 2) {
		t.Errorf("instant = %v, want 2", a.InstantScore)
	}
	if a.Level != LevelHigh {
		t.Errorf("level = %q, want high (classifies the ratcheted total)", a.Level)
	}

	// A higher instantaneous score moves the ratchet up.
	a = Recompute(scoredEvents(5, 20), Streaks{}, 80)
	if a.TotalRiskScore != 100 {
		t.Errorf("total = %v, want 100", a.TotalRiskScore)
	}
}

func TestRecompute_ClampsHostileInputs(t *testing.T) {
	// Out-of-range inputs are clamped, never rejected: the aggregator is a
	// total function.
	events := []activity.Event{
		{ID: "a", Type: activity.TabSwitch, RiskScore: -50},
		{ID: "b", Type: activity.TabSwitch, RiskScore: 500},
	}

	a := Recompute(events, Streaks{}, -10)
	if a.TotalRiskScore != 100 {
		t.Errorf("total = %v, want 100 (negative clamped to 0, oversized to 100)", a.TotalRiskScore)
	}

	a = Recompute(scoredEvents(2, 0), Streaks{}, 250)
	if a.TotalRiskScore != 100 {
		t.Errorf("total with oversized previous = %v, want 100", a.TotalRiskScore)
	}
}
