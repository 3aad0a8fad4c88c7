package actions

import (
	"fmt"

	"github.com/dotcommander/cairn/internal/compact"
	"github.com/dotcommander/cairn/internal/store"
)

// CompactionAdvice is the result of one advisor invocation.
type CompactionAdvice struct {
	SessionID  string              `json:"session_id"`
	Count      int                 `json:"count"`
	Threshold  int                 `json:"threshold"`
	Interval   int                 `json:"interval"`
	State      compact.State       `json:"state"`
	NextAt     int                 `json:"next_at"`
	Recovered  bool                `json:"recovered,omitempty"`
	Suggestion *compact.Suggestion `json:"suggestion,omitempty"`
}

// AdviseCompaction counts one tool use for sessionID and decides whether to
// suggest compaction. The counter is the only persisted state.
func AdviseCompaction(counters *store.CounterStore, sessionID string, threshold, interval int) (*CompactionAdvice, error) {
	upd, err := counters.Increment(sessionID)
	if err != nil {
		return nil, fmt.Errorf("increment counter: %w", err)
	}
	advice := describeCount(sessionID, upd.Current, threshold, interval)
	advice.Recovered = upd.Recovered
	if s, ok := compact.Advise(upd.Current, threshold, interval); ok {
		advice.Suggestion = &s
	}
	return advice, nil
}

// CounterStatus reports a session's counter without changing it.
func CounterStatus(counters *store.CounterStore, sessionID string, threshold, interval int) (*CompactionAdvice, error) {
	n, err := counters.Load(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load counter: %w", err)
	}
	return describeCount(sessionID, n, threshold, interval), nil
}

func describeCount(sessionID string, count, threshold, interval int) *CompactionAdvice {
	return &CompactionAdvice{
		SessionID: sessionID,
		Count:     count,
		Threshold: threshold,
		Interval:  interval,
		State:     compact.StateFor(count, threshold),
		NextAt:    compact.NextAt(count, threshold, interval),
	}
}
