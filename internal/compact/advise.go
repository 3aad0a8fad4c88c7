// Package compact decides when to suggest compacting the conversation.
//
// The decision is a pure function of the tool-use count, so no "already
// suggested" flag has to be kept in sync with the counter.
package compact

import "fmt"

// Defaults used when no threshold or interval is configured.
const (
	DefaultThreshold = 50
	DefaultInterval  = 25
)

// State is derived from the counter on every call; it is never stored.
type State string

const (
	StateBelowThreshold     State = "below_threshold"
	StateAtOrAboveThreshold State = "at_or_above_threshold"
)

// Kind distinguishes the first suggestion from the periodic ones.
type Kind string

const (
	KindInitial Kind = "initial"
	KindRepeat  Kind = "repeat"
)

// Suggestion is a compaction hint for the current tool-use count.
type Suggestion struct {
	Count   int    `json:"count"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// StateFor reports which side of threshold count is on.
func StateFor(count, threshold int) State {
	threshold, _ = normalize(threshold, DefaultInterval)
	if count >= threshold {
		return StateAtOrAboveThreshold
	}
	return StateBelowThreshold
}

// Advise returns a suggestion when count equals threshold, or when it is
// past threshold by a whole multiple of interval. Non-positive threshold or
// interval fall back to the defaults.
func Advise(count, threshold, interval int) (Suggestion, bool) {
	threshold, interval = normalize(threshold, interval)

	switch {
	case count == threshold:
		return Suggestion{
			Count:   count,
			Kind:    KindInitial,
			Message: fmt.Sprintf("%d tool calls reached - consider /compact if transitioning phases", threshold),
		}, true
	case count > threshold && (count-threshold)%interval == 0:
		return Suggestion{
			Count:   count,
			Kind:    KindRepeat,
			Message: fmt.Sprintf("%d tool calls - good checkpoint for /compact if context is stale", count),
		}, true
	default:
		return Suggestion{}, false
	}
}

// NextAt returns the smallest count greater than count that will produce a
// suggestion.
func NextAt(count, threshold, interval int) int {
	threshold, interval = normalize(threshold, interval)
	if count < threshold {
		return threshold
	}
	past := count - threshold
	return threshold + (past/interval+1)*interval
}

func normalize(threshold, interval int) (int, int) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return threshold, interval
}
