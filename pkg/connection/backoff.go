package connection

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is the list of waits before reconnect attempts.
// Attempts beyond the last entry repeat the last entry.
type Schedule []time.Duration

// DefaultSchedule retries at once, then after 2s, 10s and every 30s.
func DefaultSchedule() Schedule {
	return Schedule{0, 2 * time.Second, 10 * time.Second, 30 * time.Second}
}

// NextInterval returns the wait before attempt (0-based).
func (s Schedule) NextInterval(attempt int) time.Duration {
	if len(s) == 0 || attempt < 0 {
		return 0
	}
	if attempt >= len(s) {
		return s[len(s)-1]
	}
	return s[attempt]
}

// ParseSchedule reads a comma separated list of durations, e.g. "0s,2s,10s,30s".
func ParseSchedule(raw string) (Schedule, error) {
	var out Schedule
	for part := range strings.SplitSeq(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, fmt.Errorf("reconnect schedule entry %q: %w", part, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("reconnect schedule entry %q: negative duration", part)
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, ErrEmptySchedule
	}
	return out, nil
}
