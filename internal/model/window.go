package model

import "time"

// TimeWindow is a half-open [Start, End) interval in UTC.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports whether two windows overlap on an open interval.
// Touching endpoints do not overlap: a lesson may start exactly when
// another ends.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// UTC normalizes both bounds to UTC.
func (w TimeWindow) UTC() TimeWindow {
	return TimeWindow{Start: w.Start.UTC(), End: w.End.UTC()}
}

// IsValid reports whether the window has positive duration.
func (w TimeWindow) IsValid() bool {
	return w.End.After(w.Start)
}
