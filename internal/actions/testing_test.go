package actions

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/cairn/internal/store"
)

// testState is a throwaway state directory laid out like the real one.
type testState struct {
	dir      string
	journals *store.JournalStore
	counters *store.CounterStore
}

func newTestState(t *testing.T) testState {
	t.Helper()
	dir := t.TempDir()
	return testState{
		dir:      dir,
		journals: store.NewJournalStore(filepath.Join(dir, "journals")),
		counters: store.NewCounterStore(filepath.Join(dir, "counters")),
	}
}

func (s testState) compactionLog() string {
	return filepath.Join(s.dir, "compaction-log.txt")
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.Local)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
