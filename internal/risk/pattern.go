package risk

import "proctord/internal/activity"

// patternWindow bounds how far back the streak scan looks.
const patternWindow = 10

// Streaks holds head-aligned consecutive run lengths over the event stream.
type Streaks struct {
	// ConsecutiveCopyAttempts counts the unbroken newest-first prefix of
	// copy-family events (copy, paste, external copy).
	ConsecutiveCopyAttempts int `json:"consecutive_copy_attempts"`

	// ConsecutiveFocusChanges counts the unbroken newest-first prefix of
	// focus-change events.
	ConsecutiveFocusChanges int `json:"consecutive_focus_changes"`
}

// DetectStreaks scans the most recent events, newest first, and counts the
// prefix run for each tracked family. The count is the length of the
// unbroken run from the head, not a total occurrence count: a single
// non-matching newest event forces that family's count to zero.
//
// Only the most recent 10 events are considered. With fewer than 2 events
// in the stream there is no pattern to speak of and both counts are zero.
// Counts are recomputed from scratch on every store mutation; there is no
// incremental state to corrupt.
func DetectStreaks(events []activity.Event) Streaks {
	if len(events) < 2 {
		return Streaks{}
	}

	recent := events
	if len(recent) > patternWindow {
		recent = recent[:patternWindow]
	}

	var s Streaks
	for _, e := range recent {
		if !activity.CopyFamily(e.Type) {
			break
		}
		s.ConsecutiveCopyAttempts++
	}
	for _, e := range recent {
		if e.Type != activity.FocusChange {
			break
		}
		s.ConsecutiveFocusChanges++
	}
	return s
}
