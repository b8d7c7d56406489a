package donation

import "time"

// SinceLayout matches the millisecond ISO-8601 form the list endpoint expects.
const SinceLayout = "2006-01-02T15:04:05.000Z"

// Epoch is the lower bound used before the first successful fetch.
var Epoch = time.Unix(0, 0).UTC()

// Cursor is the per-node-instance state carried between invocations.
//
// ProcessedIDs only ever grows; LastPollTime never moves backwards.
type Cursor struct {
	LastPollTime time.Time       `json:"lastPollTime"`
	NextPollAt   time.Time       `json:"nextPollAt"`
	ProcessedIDs map[string]bool `json:"processedIds"`
}

// Since returns the lower bound for the next fetch window.
func (c Cursor) Since() time.Time {
	if c.LastPollTime.IsZero() {
		return Epoch
	}
	return c.LastPollTime
}

// Seen reports whether id was already emitted.
func (c Cursor) Seen(id string) bool {
	return c.ProcessedIDs[id]
}

// Clone returns a deep copy so callers can mutate without touching c.
func (c Cursor) Clone() Cursor {
	out := Cursor{
		LastPollTime: c.LastPollTime,
		NextPollAt:   c.NextPollAt,
		ProcessedIDs: make(map[string]bool, len(c.ProcessedIDs)),
	}
	for id := range c.ProcessedIDs {
		out.ProcessedIDs[id] = true
	}
	return out
}

// FormatSince renders t in SinceLayout (UTC).
func FormatSince(t time.Time) string {
	return t.UTC().Format(SinceLayout)
}
