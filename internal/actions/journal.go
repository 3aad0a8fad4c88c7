package actions

import (
	"errors"
	"fmt"
	"time"

	"github.com/dotcommander/cairn/internal/journal"
	"github.com/dotcommander/cairn/internal/store"
)

// JournalList is the management view of the journal directory.
type JournalList struct {
	Journals []JournalListItem      `json:"journals"`
	Skipped  []store.SkippedJournal `json:"skipped,omitempty"`
}

// JournalListItem summarizes one record.
type JournalListItem struct {
	SessionID   string         `json:"session_id"`
	Date        string         `json:"date"`
	Status      journal.Status `json:"status"`
	LastUpdated string         `json:"last_updated"`
	Age         string         `json:"age"`
	Compactions int            `json:"compactions"`
	Path        string         `json:"path"`
}

// ListJournals lists records newest first. Unless all is set, only the
// records session start would surface are returned.
func ListJournals(journals *store.JournalStore, all bool, now time.Time, retention time.Duration) (*JournalList, error) {
	var (
		entries []store.JournalEntry
		skipped []store.SkippedJournal
		err     error
	)
	if all {
		entries, skipped, err = journals.List()
	} else {
		entries, skipped, err = journals.Recent(now, retention)
	}
	if err != nil {
		return nil, err
	}

	out := &JournalList{Journals: make([]JournalListItem, 0, len(entries)), Skipped: skipped}
	for _, e := range entries {
		r := e.Record
		out.Journals = append(out.Journals, JournalListItem{
			SessionID:   r.SessionID,
			Date:        r.Date,
			Status:      r.Status,
			LastUpdated: journal.FormatTimestamp(r.LastUpdated),
			Age:         relativeDay(r.LastUpdated, now),
			Compactions: len(r.Compactions),
			Path:        e.Path,
		})
	}
	return out, nil
}

// ShowJournal loads the record for (sessionID, date).
func ShowJournal(journals *store.JournalStore, sessionID, date string) (*journal.Record, error) {
	r, err := journals.Load(sessionID, date)
	if err != nil {
		return nil, fmt.Errorf("load journal %s: %w", store.JournalFileName(sessionID, date), err)
	}
	return r, nil
}

// CloseJournal marks an existing record closed so session start stops
// surfacing it. Closing a missing record is an error; closing a closed one
// is a no-op apart from the timestamp.
func CloseJournal(journals *store.JournalStore, sessionID, date string, now time.Time) (*journal.Record, error) {
	if _, err := journals.Load(sessionID, date); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("close journal %s: %w", store.JournalFileName(sessionID, date), err)
		}
		return nil, err
	}
	return journals.Update(sessionID, date, now, func(r *journal.Record) error {
		r.Status = journal.StatusClosed
		return nil
	})
}
