// Package journal defines the per-session-per-day journal record and its
// plain-text file format.
package journal

import (
	"time"
)

// Status is the lifecycle marker of a record.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// CompactionNote is the default text of a compaction marker.
const CompactionNote = "Compaction occurred - context was summarized"

// CompactionEvent marks a point where the host compacted the conversation.
// At is zero for hand-written lines that carry no parseable timestamp.
type CompactionEvent struct {
	At   time.Time `json:"at"`
	Note string    `json:"note"`
}

// Section is a heading the format does not know about, kept verbatim so
// hand edits survive a rewrite.
type Section struct {
	Level   int    `json:"level"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Record is one journal file.
type Record struct {
	SessionID     string            `json:"session_id"`
	Date          string            `json:"date"`
	Started       time.Time         `json:"started"`
	LastUpdated   time.Time         `json:"last_updated"`
	Status        Status            `json:"status"`
	CurrentState  string            `json:"current_state,omitempty"`
	Completed     string            `json:"completed,omitempty"`
	InProgress    string            `json:"in_progress,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	ContextToLoad string            `json:"context_to_load,omitempty"`
	Compactions   []CompactionEvent `json:"compactions,omitempty"`
	Extra         []Section         `json:"extra,omitempty"`
}

// NewRecord creates an empty open record for sessionID on now's calendar day.
func NewRecord(sessionID string, now time.Time) *Record {
	now = now.Truncate(time.Second)
	return &Record{
		SessionID:   sessionID,
		Date:        DateKey(now),
		Started:     now,
		LastUpdated: now,
		Status:      StatusOpen,
	}
}

// Touch moves LastUpdated forward to now. It never moves it backwards.
func (r *Record) Touch(now time.Time) {
	now = now.Truncate(time.Second)
	if now.After(r.LastUpdated) {
		r.LastUpdated = now
	}
}

// MarkCompaction appends a compaction marker at now.
func (r *Record) MarkCompaction(now time.Time) CompactionEvent {
	ev := CompactionEvent{At: now.Truncate(time.Second), Note: CompactionNote}
	r.Compactions = append(r.Compactions, ev)
	r.Touch(now)
	return ev
}

// IsClosed reports whether the record carries the terminal closed marker.
func (r *Record) IsClosed() bool {
	return r.Status == StatusClosed
}
