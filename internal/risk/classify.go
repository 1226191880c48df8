// Package risk implements the exam-session risk scoring engine: event
// classification, consecutive-pattern detection, and the bounded, decayed,
// ratcheting aggregate score.
//
// The engine is deliberately content-blind. It sees only interaction types,
// optional free-text annotations, and timestamps; it never records what was
// typed, copied, or displayed.
package risk

import (
	mathrand "math/rand"
	"strings"
	"time"

	"proctord/internal/activity"
)

// highFrequencyMarker is the annotation convention used by sensors to flag
// cadence anomalies. It is the only detail substring the classifier inspects.
const highFrequencyMarker = "High frequency"

// Notification thresholds on an event's final (post-jitter) score.
const (
	notifyThreshold = 10
	severeThreshold = 15
)

// Notifier receives high-risk event notifications from the classifier.
// Severe is set for the most suspicious events.
type Notifier interface {
	HighRisk(e activity.Event, severe bool)
}

// ClassifierConfig controls event classification.
type ClassifierConfig struct {
	// JitterRange is the half-width of the uniform jitter added to base
	// weights. Zero disables jitter, which tests rely on for determinism.
	JitterRange float64

	// Rand is the random source for jitter. Nil seeds from the clock.
	Rand *mathrand.Rand

	// Now supplies event timestamps. Nil uses time.Now.
	Now func() time.Time

	// Notifier receives high-risk notifications. Nil disables them.
	Notifier Notifier
}

// DefaultClassifierConfig returns the production classification settings.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		JitterRange: 5,
	}
}

// Classifier assigns risk weights to observed interactions.
//
// It is memoryless: classification never inspects prior events. All
// history-dependent logic lives in the pattern detector and aggregator.
type Classifier struct {
	jitterRange float64
	rng         *mathrand.Rand
	now         func() time.Time
	notifier    Notifier
}

// NewClassifier creates a classifier from the given configuration.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{
		jitterRange: cfg.JitterRange,
		rng:         cfg.Rand,
		now:         cfg.Now,
		notifier:    cfg.Notifier,
	}
	if c.rng == nil {
		c.rng = mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// BaseWeight returns the pre-jitter risk weight for an interaction.
// Unknown types fall to the default weight; there are no error conditions.
func BaseWeight(t activity.Type, details string) float64 {
	switch t {
	case activity.FocusChange:
		return 5
	case activity.TabSwitch:
		return 7.5
	case activity.CopyAttempt:
		return 12.5
	case activity.PasteAttempt:
		return 15
	case activity.ExternalCopyDetected:
		return 17.5
	case activity.SessionStarted, activity.SessionEnded:
		return 0
	case activity.MouseMovement:
		if strings.Contains(details, highFrequencyMarker) {
			return 1.5
		}
		return 0
	case activity.KeyboardActivity:
		if strings.Contains(details, highFrequencyMarker) {
			return 1
		}
		return 0
	default:
		return 2.5
	}
}

// Classify turns a raw (type, details) observation into a scored event.
// The final score is base weight plus uniform jitter, clamped to [0, 100];
// it is assigned once and never mutated afterward.
func (c *Classifier) Classify(t activity.Type, details string) activity.Event {
	score := BaseWeight(t, details)
	if c.jitterRange > 0 {
		score += c.rng.Float64()*2*c.jitterRange - c.jitterRange
	}
	score = clamp(score, 0, 100)

	e := activity.NewEvent(t, details, score, c.now())

	if c.notifier != nil && score > notifyThreshold {
		c.notifier.HighRisk(e, score > severeThreshold)
	}

	return e
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
