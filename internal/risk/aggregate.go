package risk

import (
	"math"

	"proctord/internal/activity"
)

// Level is the discrete classification of an aggregate risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Classification thresholds and aggregation constants.
const (
	mediumThreshold = 25
	highThreshold   = 75

	// aggregateWindow is how many recent events contribute their weights.
	aggregateWindow = 20

	// decayFactor attenuates the cumulative score per event beyond the
	// grace count, discouraging unbounded growth over a long session.
	decayFactor = 0.95
	decayGrace  = 10

	// Streak penalties: per-event increments and their caps.
	copyPenaltyStep = 4
	copyPenaltyCap  = 25
	focusPenaltyStep = 2
	focusPenaltyCap  = 15
)

// LevelFor maps an aggregate score to its risk level.
func LevelFor(score float64) Level {
	switch {
	case score < mediumThreshold:
		return LevelLow
	case score < highThreshold:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Assessment is the aggregator's output for one recomputation.
type Assessment struct {
	// TotalRiskScore is the reported score in [0, 100]. It ratchets: it
	// never drops below the previous total within a session. Only an
	// explicit reset lowers it.
	TotalRiskScore float64 `json:"total_risk_score"`

	// InstantScore is the candidate score before the ratchet, after
	// penalties, decay, and clamping. Exposed so callers can see the
	// decayed instantaneous value behind a flat reported total.
	InstantScore float64 `json:"instant_score"`

	// Level classifies TotalRiskScore.
	Level Level `json:"level"`
}

// Recompute combines the recent-event window, streak penalties, and time
// decay into a single bounded score, then applies the ratchet against
// previousTotal.
//
// The decay exponent uses the total event count, not the 20-event window
// that contributes weights. A long session therefore decays harder even
// though old events have already left the scoring window. That asymmetry
// is intentional and load-bearing; do not "fix" it.
//
// Recompute is a total function: out-of-range inputs are clamped, never
// rejected.
func Recompute(events []activity.Event, streaks Streaks, previousTotal float64) Assessment {
	previousTotal = clamp(previousTotal, 0, 100)

	if len(events) == 0 {
		return Assessment{TotalRiskScore: 0, InstantScore: 0, Level: LevelLow}
	}

	recent := events
	if len(recent) > aggregateWindow {
		recent = recent[:aggregateWindow]
	}

	cumulative := 0.0
	for _, e := range recent {
		cumulative += clamp(e.RiskScore, 0, 100)
	}

	cumulative += math.Min(copyPenaltyCap, float64(streaks.ConsecutiveCopyAttempts)*copyPenaltyStep)
	cumulative += math.Min(focusPenaltyCap, float64(streaks.ConsecutiveFocusChanges)*focusPenaltyStep)

	decayed := cumulative * math.Pow(decayFactor, math.Max(0, float64(len(events)-decayGrace)))

	instant := clamp(decayed, 0, 100)
	total := math.Max(previousTotal, instant)

	return Assessment{
		TotalRiskScore: total,
		InstantScore:   instant,
		Level:          LevelFor(total),
	}
}
