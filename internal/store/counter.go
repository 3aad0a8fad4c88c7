package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const counterExt = ".count"

// CounterStore persists one integer per session, each in its own file.
type CounterStore struct {
	dir string
}

// CounterUpdate describes one read-modify-write of a counter.
// Recovered is set when the stored value was unreadable and counting
// restarted from zero.
type CounterUpdate struct {
	Previous  int
	Current   int
	Recovered bool
}

// NewCounterStore returns a store rooted at dir.
func NewCounterStore(dir string) *CounterStore {
	return &CounterStore{dir: dir}
}

// Path returns the counter file for sessionID.
func (s *CounterStore) Path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+counterExt)
}

// Load returns the current value, 0 if the counter does not exist yet.
func (s *CounterStore) Load(sessionID string) (int, error) {
	n, err := readCounter(s.Path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

// Increment adds one under the counter's exclusive lock. Concurrent callers
// never lose an update.
func (s *CounterStore) Increment(sessionID string) (CounterUpdate, error) {
	return s.Update(sessionID, func(n int) int { return n + 1 })
}

// Update applies fn to the stored value under the counter's exclusive lock
// and persists the result atomically.
func (s *CounterStore) Update(sessionID string, fn func(int) int) (CounterUpdate, error) {
	path := s.Path(sessionID)

	lock, err := lockFile(path)
	if err != nil {
		return CounterUpdate{}, err
	}
	defer unlockFile(lock)

	var upd CounterUpdate
	prev, err := readCounter(path)
	switch {
	case err == nil:
		upd.Previous = prev
	case errors.Is(err, os.ErrNotExist):
	case errors.Is(err, errCorruptCounter):
		upd.Recovered = true
	default:
		return CounterUpdate{}, err
	}

	upd.Current = fn(upd.Previous)
	if err := WriteFileAtomic(path, []byte(strconv.Itoa(upd.Current)), 0o600); err != nil {
		return CounterUpdate{}, fmt.Errorf("write counter: %w", err)
	}
	return upd, nil
}

// Sessions lists session ids that have a counter file.
func (s *CounterStore) Sessions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, counterExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, counterExt))
	}
	return ids, nil
}

var errCorruptCounter = errors.New("counter file is not an integer")

func readCounter(path string) (int, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: path derived from the state dir
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s", errCorruptCounter, path)
	}
	return n, nil
}
