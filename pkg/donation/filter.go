package donation

import "time"

// Predicate decides whether a record is interesting to a node.
type Predicate func(Record) bool

// Initiated matches donations still processing, and confirmed donations that
// were edited after creation.
func Initiated(r Record) bool {
	switch r.Status() {
	case StatusProcessing:
		return true
	case StatusConfirmed:
		return r.Edited()
	default:
		return false
	}
}

// Confirmed matches confirmed donations.
func Confirmed(r Record) bool { return r.Status() == StatusConfirmed }

// Abandoned matches abandoned donations.
func Abandoned(r Record) bool { return r.Status() == StatusAbandoned }

// Filter selects the records that match and have not been emitted before, and
// returns the cursor to persist afterwards.
//
// Records without an id are dropped since they cannot be de-duplicated. The
// returned cursor has the matched ids added and LastPollTime advanced to now
// (never backwards). cur itself is left untouched.
func Filter(records []Record, cur Cursor, match Predicate, now time.Time) ([]Record, Cursor) {
	next := cur.Clone()
	matched := make([]Record, 0)

	for _, r := range records {
		id := r.ID()
		if id == "" || next.Seen(id) || !match(r) {
			continue
		}
		next.ProcessedIDs[id] = true
		matched = append(matched, r)
	}

	if now.After(next.LastPollTime) {
		next.LastPollTime = now
	}
	return matched, next
}
