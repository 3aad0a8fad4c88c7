package actions

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dotcommander/cairn/internal/journal"
)

// ResumeLimits bounds the session-start context. Zero means unlimited, so
// by default every open in-window journal is rendered in full.
type ResumeLimits struct {
	// MaxSessions caps how many journals are rendered in full; the rest are
	// listed by id.
	MaxSessions int
	// SectionRunes caps each rendered section.
	SectionRunes int
}

// buildResumeContext renders the session-start view. Returns "" when there
// is nothing to surface.
func buildResumeContext(res *SessionStartResult, limits ResumeLimits) string {
	if len(res.Sessions) == 0 && res.LearnedSkills == 0 {
		return ""
	}

	var b strings.Builder

	if len(res.Sessions) > 0 {
		b.WriteString("<previous-sessions>\n")
		fmt.Fprintf(&b, "%d unfinished session journal(s) from the last few days, newest first.\n", len(res.Sessions))
		b.WriteString("Pick up where they left off if the user's request relates to them.\n")

		limit := len(res.Sessions)
		if limits.MaxSessions > 0 {
			limit = min(limit, limits.MaxSessions)
		}
		for _, s := range res.Sessions[:limit] {
			writeSessionSummary(&b, s, limits.SectionRunes)
		}
		if rest := res.Sessions[limit:]; len(rest) > 0 {
			ids := make([]string, 0, len(rest))
			for _, s := range rest {
				ids = append(ids, s.Record.SessionID+" ("+s.Record.Date+")")
			}
			fmt.Fprintf(&b, "\nOlder journals not shown: %s\n", strings.Join(ids, ", "))
		}
		b.WriteString("</previous-sessions>\n")
	}

	if res.LearnedSkills > 0 {
		if len(res.Sessions) > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d learned skill(s) available in %s\n", res.LearnedSkills, res.LearnedDir)
	}
	return b.String()
}

func writeSessionSummary(b *strings.Builder, s SessionSummary, sectionRunes int) {
	r := s.Record
	fmt.Fprintf(b, "\n## Session %s (%s, last updated %s)\n", r.SessionID, r.Date, s.Age)
	fmt.Fprintf(b, "Journal: %s\n", s.Path)
	fmt.Fprintf(b, "Last updated: %s\n", journal.FormatTimestamp(r.LastUpdated))

	writeResumeSection(b, "Current State", r.CurrentState, sectionRunes)
	writeResumeSection(b, "In Progress", r.InProgress, sectionRunes)
	writeResumeSection(b, "Notes for Next Session", r.Notes, sectionRunes)
	writeResumeSection(b, "Context to Load", r.ContextToLoad, sectionRunes)

	if len(r.Compactions) > 0 {
		b.WriteString("\n### Compactions\n")
		for _, ev := range r.Compactions {
			if ev.At.IsZero() {
				fmt.Fprintf(b, "- %s\n", ev.Note)
				continue
			}
			fmt.Fprintf(b, "- [%s] %s\n", journal.FormatTimestamp(ev.At), ev.Note)
		}
	}
}

func writeResumeSection(b *strings.Builder, heading, body string, maxRunes int) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	if runes := []rune(body); maxRunes > 0 && len(runes) > maxRunes {
		body = string(runes[:maxRunes]) + "\n[truncated]"
	}
	fmt.Fprintf(b, "\n### %s\n%s\n", heading, body)
}

// relativeDay describes how many calendar days ago t was, relative to now.
// Day granularity keeps the text stable across calls within the same day.
func relativeDay(t, now time.Time) string {
	if t.IsZero() {
		return "at an unknown time"
	}
	then := startOfDay(t.In(now.Location()))
	today := startOfDay(now)
	days := int(today.Sub(then).Round(24*time.Hour) / (24 * time.Hour))
	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 0:
		return "in the future"
	default:
		// Normalise to whole days so DST shifts do not show up as hours.
		return humanize.RelTime(today.Add(-time.Duration(days)*24*time.Hour), today, "ago", "from now")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
