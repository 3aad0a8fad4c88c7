package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dotcommander/cairn/internal/journal"
)

const journalExt = ".md"

// JournalStore persists one journal record per (session, calendar day).
type JournalStore struct {
	dir string
}

// JournalEntry is a record together with where it was read from.
type JournalEntry struct {
	Path   string          `json:"path"`
	Record *journal.Record `json:"record"`
}

// SkippedJournal is a file in the journal directory that could not be read.
type SkippedJournal struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// NewJournalStore returns a store rooted at dir.
func NewJournalStore(dir string) *JournalStore {
	return &JournalStore{dir: dir}
}

// Dir returns the journal directory.
func (s *JournalStore) Dir() string { return s.dir }

// JournalFileName is the deterministic file name for (sessionID, date).
func JournalFileName(sessionID, date string) string {
	return sessionID + "-" + date + journalExt
}

// Path returns the record file for (sessionID, date).
func (s *JournalStore) Path(sessionID, date string) string {
	return filepath.Join(s.dir, JournalFileName(sessionID, date))
}

// Load reads the record for (sessionID, date). Returns ErrNotFound if absent.
func (s *JournalStore) Load(sessionID, date string) (*journal.Record, error) {
	r, err := readJournal(s.Path(sessionID, date))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return r, err
}

// Update locates or creates the record for (sessionID, date), applies fn
// under the record's exclusive lock, bumps LastUpdated to now and writes the
// result atomically. If fn returns an error nothing is written.
func (s *JournalStore) Update(sessionID, date string, now time.Time, fn func(r *journal.Record) error) (*journal.Record, error) {
	path := s.Path(sessionID, date)

	lock, err := lockFile(path)
	if err != nil {
		return nil, err
	}
	defer unlockFile(lock)

	r, err := readJournal(path)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		r = journal.NewRecord(sessionID, now)
		r.Date = date
	default:
		// Refuse to overwrite a file a human may have mangled; it stays on
		// disk for them to fix.
		return nil, err
	}
	if r.SessionID == "" {
		r.SessionID = sessionID
	}
	if r.Date == "" {
		r.Date = date
	}

	if fn != nil {
		if err := fn(r); err != nil {
			return nil, err
		}
	}
	r.Touch(now)

	if err := WriteFileAtomic(path, []byte(journal.Render(r)), 0o600); err != nil {
		return nil, fmt.Errorf("write journal: %w", err)
	}
	return r, nil
}

// List reads every record in the journal directory, newest LastUpdated
// first. Unreadable files are returned separately rather than failing the
// whole scan.
func (s *JournalStore) List() ([]JournalEntry, []SkippedJournal, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read journal dir: %w", err)
	}

	var (
		entries []JournalEntry
		skipped []SkippedJournal
	)
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, journalExt) || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(s.dir, name)
		r, err := readJournal(path)
		if err != nil {
			skipped = append(skipped, SkippedJournal{Path: path, Err: err})
			continue
		}
		if r.LastUpdated.IsZero() {
			if info, statErr := de.Info(); statErr == nil {
				r.LastUpdated = info.ModTime().Truncate(time.Second)
			}
		}
		entries = append(entries, JournalEntry{Path: path, Record: r})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Record.LastUpdated, entries[j].Record.LastUpdated
		if !a.Equal(b) {
			return a.After(b)
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, skipped, nil
}

// Recent returns open records updated within window of now, newest first.
func (s *JournalStore) Recent(now time.Time, window time.Duration) ([]JournalEntry, []SkippedJournal, error) {
	all, skipped, err := s.List()
	if err != nil {
		return nil, nil, err
	}
	cutoff := now.Add(-window)
	var recent []JournalEntry
	for _, e := range all {
		if e.Record.IsClosed() {
			continue
		}
		if e.Record.LastUpdated.Before(cutoff) {
			continue
		}
		recent = append(recent, e)
	}
	return recent, skipped, nil
}

func readJournal(path string) (*journal.Record, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path derived from the state dir
	if err != nil {
		return nil, err
	}
	r, err := journal.Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return r, nil
}
