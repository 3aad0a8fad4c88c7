package actions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotcommander/cairn/internal/journal"
	"github.com/dotcommander/cairn/internal/store"
)

// SessionStartResult is the read-only view handed to a new session.
type SessionStartResult struct {
	SessionID     string                 `json:"session_id"`
	Sessions      []SessionSummary       `json:"sessions"`
	Skipped       []store.SkippedJournal `json:"skipped,omitempty"`
	LearnedDir    string                 `json:"learned_dir,omitempty"`
	LearnedSkills int                    `json:"learned_skills"`
	Context       string                 `json:"context"`
}

// SessionSummary is one recent unfinished journal.
type SessionSummary struct {
	Path   string          `json:"path"`
	Age    string          `json:"age"`
	Record *journal.Record `json:"record"`
}

// OnSessionStart collects open journals updated within retention of now,
// newest first, and renders them as context within limits. It never writes, so two calls
// with no intervening mutation return the same context.
func OnSessionStart(journals *store.JournalStore, sessionID string, now time.Time, retention time.Duration, learnedDir string, limits ResumeLimits) (*SessionStartResult, error) {
	entries, skipped, err := journals.Recent(now, retention)
	if err != nil {
		return nil, fmt.Errorf("scan journals: %w", err)
	}

	res := &SessionStartResult{
		SessionID:  sessionID,
		Sessions:   make([]SessionSummary, 0, len(entries)),
		Skipped:    skipped,
		LearnedDir: learnedDir,
	}
	for _, e := range entries {
		res.Sessions = append(res.Sessions, SessionSummary{
			Path:   e.Path,
			Age:    relativeDay(e.Record.LastUpdated, now),
			Record: e.Record,
		})
	}
	res.LearnedSkills = countLearnedSkills(learnedDir)
	res.Context = buildResumeContext(res, limits)
	return res, nil
}

// PreCompactionResult describes the marker written before a compaction.
type PreCompactionResult struct {
	SessionID   string                  `json:"session_id"`
	Path        string                  `json:"path"`
	Marker      journal.CompactionEvent `json:"marker"`
	Compactions int                     `json:"compactions"`
}

// OnPreCompaction appends a compaction marker to today's record for
// sessionID, creating the record if needed, and appends a line to the global
// compaction log. A failure of the global log is returned after the journal
// has already been updated.
func OnPreCompaction(journals *store.JournalStore, compactionLog, sessionID string, now time.Time) (*PreCompactionResult, error) {
	date := journal.DateKey(now)

	var marker journal.CompactionEvent
	r, err := journals.Update(sessionID, date, now, func(r *journal.Record) error {
		marker = r.MarkCompaction(now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark compaction: %w", err)
	}

	res := &PreCompactionResult{
		SessionID:   sessionID,
		Path:        journals.Path(sessionID, date),
		Marker:      marker,
		Compactions: len(r.Compactions),
	}

	if compactionLog != "" {
		line := fmt.Sprintf("[%s] Context compaction triggered (session %s)", journal.FormatTimestamp(now), sessionID)
		if err := store.AppendLine(compactionLog, line); err != nil {
			return res, fmt.Errorf("append compaction log: %w", err)
		}
	}
	return res, nil
}

// SessionEndResult describes the record touched at session end.
type SessionEndResult struct {
	SessionID    string `json:"session_id"`
	Path         string `json:"path"`
	Created      bool   `json:"created"`
	NotesUpdated bool   `json:"notes_updated"`
}

// OnSessionEnd locates or creates today's record for sessionID, bumps its
// last-updated time and, when notes is non-blank, replaces the notes for the
// next session. It never closes or deletes a record.
func OnSessionEnd(journals *store.JournalStore, sessionID, notes string, now time.Time) (*SessionEndResult, error) {
	date := journal.DateKey(now)
	path := journals.Path(sessionID, date)

	_, statErr := os.Stat(path)
	res := &SessionEndResult{
		SessionID: sessionID,
		Path:      path,
		Created:   errors.Is(statErr, os.ErrNotExist),
	}

	notes = strings.TrimSpace(notes)
	if _, err := journals.Update(sessionID, date, now, func(r *journal.Record) error {
		if notes != "" {
			r.Notes = notes
			res.NotesUpdated = true
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update journal: %w", err)
	}
	return res, nil
}

// countLearnedSkills counts *.md files directly inside dir. A missing or
// unreadable directory counts as zero.
func countLearnedSkills(dir string) int {
	if dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			n++
		}
	}
	return n
}
