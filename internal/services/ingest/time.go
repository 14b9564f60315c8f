package ingest

import (
	"math"
	"time"
)

// localLayout is the wall-clock layout the AI scheduler emits for slot
// boundaries: no UTC offset, to be read in the deployment zone.
const localLayout = "2006-01-02T15:04:05"

// parseTimestamp accepts the two shapes producers actually send: RFC 3339
// with an offset (device firmware, AI nowcasts) or a bare local wall-clock
// string. The bare form is interpreted in loc, never as UTC.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(localLayout, s, loc)
}

// roundTwo normalizes a value to two decimals for display parity with the
// dashboard; rounding here is intentional, not an accident of storage.
func roundTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
