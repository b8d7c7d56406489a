package donation

import "time"

// Default gate timings.
const (
	DefaultInterval = 60 * time.Second
	DefaultBackoff  = 120 * time.Second
)

// Gate is the self-scheduling guard in front of a polling node. It keeps the
// next eligible time in the cursor and pushes it further out after a failure.
type Gate struct {
	Interval time.Duration
	Backoff  time.Duration
}

// DefaultGate returns a gate with a 60s interval and a 120s failure backoff.
func DefaultGate() Gate {
	return Gate{Interval: DefaultInterval, Backoff: DefaultBackoff}
}

// Due reports whether a fetch is allowed at now.
func (g Gate) Due(cur Cursor, now time.Time) bool {
	return !now.Before(cur.NextPollAt)
}

// Succeeded schedules the next fetch one interval after now.
func (g Gate) Succeeded(cur Cursor, now time.Time) Cursor {
	cur.NextPollAt = now.Add(g.Interval)
	return cur
}

// Failed schedules the next fetch one backoff after now.
func (g Gate) Failed(cur Cursor, now time.Time) Cursor {
	cur.NextPollAt = now.Add(g.Backoff)
	return cur
}
