package domain

// OnLeaveReason is the reason forced onto any response that falls inside
// a leave-of-absence range.
const OnLeaveReason = "On Leave of Absence"

// AvailabilityRecord is one user's answer for today. At most one per user
// per day lives in the response set; later submissions overwrite.
type AvailabilityRecord struct {
	Name   string `json:"name"`
	Status Status `json:"available"`
	Reason string `json:"reason"`
}

// LOAEntry is a declared leave-of-absence range, inclusive on both ends.
type LOAEntry struct {
	Start  Date   `json:"start"`
	End    Date   `json:"end"`
	Reason string `json:"reason"`
}

// Covers reports whether d falls inside the entry's range.
func (e LOAEntry) Covers(d Date) bool {
	return !d.Before(e.Start) && !d.After(e.End)
}

// HistoryEntry is one submission event. History is a log, not a per-day
// table: a change of mind the same day appends a second entry.
type HistoryEntry struct {
	Date   Date   `json:"date"`
	Status Status `json:"available"`
	Reason string `json:"reason"`
	Time   string `json:"time"` // HH:MM:SS, group-local wall clock
}
