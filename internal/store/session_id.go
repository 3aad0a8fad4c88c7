package store

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

const (
	maxSessionIDLen = 64
	// sessionHashLen is the hex suffix appended to rewritten ids.
	sessionHashLen = 16
)

// SessionKey turns a host-supplied session id into the key that partitions
// every state file. An id that is already a safe file name of at most 64
// bytes ([A-Za-z0-9_-] only) is used as-is. Any other id keeps a sanitized,
// truncated stem followed by a hash of the raw id, so distinct ids never
// share a key. An empty id falls back to a per-day key derived from now.
func SessionKey(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "day-" + now.In(time.Local).Format("2006-01-02")
	}

	var b strings.Builder
	b.Grow(len(raw))
	safe := true
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
			safe = false
		}
	}
	stem := b.String()
	if safe && len(stem) <= maxSessionIDLen {
		return stem
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(raw))
	suffix := fmt.Sprintf("%0*x", sessionHashLen, h.Sum64())
	if limit := maxSessionIDLen - len(suffix) - 1; len(stem) > limit {
		stem = stem[:limit]
	}
	return stem + "-" + suffix
}
