package journal

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ErrNotJournal is returned when content has no "# Session:" header.
var ErrNotJournal = errors.New("not a session journal")

const (
	headerPrefix = "# Session:"

	fieldDate        = "Date"
	fieldStarted     = "Started"
	fieldLastUpdated = "Last Updated"
	fieldStatus      = "Status"
)

// Known section headings, in file order.
const (
	headingCurrentState  = "Current State"
	headingCompleted     = "Completed"
	headingInProgress    = "In Progress"
	headingNotes         = "Notes for Next Session"
	headingContextToLoad = "Context to Load"
	headingCompactionLog = "Compaction Log"
)

// Render writes r in the fixed, human-editable layout.
func Render(r *Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", headerPrefix, r.SessionID)
	fmt.Fprintf(&b, "**%s:** %s\n", fieldDate, r.Date)
	fmt.Fprintf(&b, "**%s:** %s\n", fieldStarted, FormatTimestamp(r.Started))
	fmt.Fprintf(&b, "**%s:** %s\n", fieldLastUpdated, FormatTimestamp(r.LastUpdated))
	status := r.Status
	if status == "" {
		status = StatusOpen
	}
	fmt.Fprintf(&b, "**%s:** %s\n", fieldStatus, status)
	b.WriteString("\n---\n")

	writeSection(&b, 2, headingCurrentState, r.CurrentState)
	writeSection(&b, 3, headingCompleted, r.Completed)
	writeSection(&b, 3, headingInProgress, r.InProgress)
	writeSection(&b, 3, headingNotes, r.Notes)
	writeSection(&b, 3, headingContextToLoad, r.ContextToLoad)

	var log strings.Builder
	for i, ev := range r.Compactions {
		if i > 0 {
			log.WriteByte('\n')
		}
		if ev.At.IsZero() {
			fmt.Fprintf(&log, "- %s", ev.Note)
			continue
		}
		fmt.Fprintf(&log, "- [%s] %s", FormatTimestamp(ev.At), ev.Note)
	}
	writeSection(&b, 2, headingCompactionLog, log.String())

	for _, s := range r.Extra {
		writeSection(&b, s.Level, s.Heading, s.Body)
	}
	return b.String()
}

func writeSection(b *strings.Builder, level int, heading, body string) {
	fmt.Fprintf(b, "\n%s %s\n\n", strings.Repeat("#", level), heading)
	if body = strings.TrimSpace(body); body != "" {
		b.WriteString(escapeBody(body))
		b.WriteByte('\n')
	}
}

// escapeBody prefixes a backslash to every body line that would otherwise
// read back as a heading. Lines already starting with backslashes before a
// '#' get one more, so unescapeLine is an exact inverse.
func escapeBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		rest := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(strings.TrimLeft(rest, `\`), "#") {
			lines[i] = line[:len(line)-len(rest)] + `\` + rest
		}
	}
	return strings.Join(lines, "\n")
}

func unescapeLine(line string) string {
	rest := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(rest, `\`) && strings.HasPrefix(strings.TrimLeft(rest, `\`), "#") {
		return line[:len(line)-len(rest)] + rest[1:]
	}
	return line
}

// Parse reads a journal file. It is tolerant of hand edits: unknown header
// fields are ignored, unknown sections are kept in Extra, and unknown
// headings inside fenced code blocks are treated as body text. A known
// section heading always starts a new section, so an unclosed fence cannot
// swallow the rest of the file.
func Parse(content string) (*Record, error) {
	r := &Record{Status: StatusOpen}

	var (
		sawHeader bool
		current   *Section
		body      []string
		inFence   bool
		started   string
		updated   string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		r.assign(*current)
		current = nil
		body = nil
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if !sawHeader {
			if trimmed == "" {
				continue
			}
			if !strings.HasPrefix(trimmed, headerPrefix) {
				return nil, ErrNotJournal
			}
			r.SessionID = strings.TrimSpace(strings.TrimPrefix(trimmed, headerPrefix))
			sawHeader = true
			continue
		}

		if level, heading, ok := parseHeading(trimmed); ok && (!inFence || isKnownHeading(heading)) {
			flush()
			current = &Section{Level: level, Heading: heading}
			inFence = false
			continue
		}
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}

		if current == nil {
			if key, value, ok := parseField(trimmed); ok {
				switch key {
				case fieldDate:
					r.Date = value
				case fieldStarted:
					started = value
				case fieldLastUpdated:
					updated = value
				case fieldStatus:
					if strings.EqualFold(value, string(StatusClosed)) {
						r.Status = StatusClosed
					}
				}
			}
			continue
		}
		body = append(body, unescapeLine(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	if !sawHeader {
		return nil, ErrNotJournal
	}
	flush()

	r.Started, _ = ParseTimestamp(started, r.Date)
	r.LastUpdated, _ = ParseTimestamp(updated, r.Date)
	if r.LastUpdated.IsZero() {
		r.LastUpdated = r.Started
	}
	return r, nil
}

func (r *Record) assign(s Section) {
	switch {
	case strings.EqualFold(s.Heading, headingCurrentState):
		r.CurrentState = s.Body
	case strings.EqualFold(s.Heading, headingCompleted):
		r.Completed = s.Body
	case strings.EqualFold(s.Heading, headingInProgress):
		r.InProgress = s.Body
	case strings.EqualFold(s.Heading, headingNotes):
		r.Notes = s.Body
	case strings.EqualFold(s.Heading, headingContextToLoad):
		r.ContextToLoad = s.Body
	case strings.EqualFold(s.Heading, headingCompactionLog):
		r.Compactions = parseCompactionLog(s.Body, r.Date)
	default:
		r.Extra = append(r.Extra, s)
	}
}

func isKnownHeading(heading string) bool {
	for _, known := range []string{
		headingCurrentState, headingCompleted, headingInProgress,
		headingNotes, headingContextToLoad, headingCompactionLog,
	} {
		if strings.EqualFold(heading, known) {
			return true
		}
	}
	return false
}

func parseHeading(line string) (int, string, bool) {
	for _, prefix := range []string{"### ", "## "} {
		if strings.HasPrefix(line, prefix) {
			return len(prefix) - 1, strings.TrimSpace(line[len(prefix):]), true
		}
	}
	return 0, "", false
}

func parseField(line string) (string, string, bool) {
	if !strings.HasPrefix(line, "**") {
		return "", "", false
	}
	rest := line[2:]
	end := strings.Index(rest, ":**")
	if end < 0 {
		return "", "", false
	}
	return strings.TrimSpace(rest[:end]), strings.TrimSpace(rest[end+3:]), true
}

func parseCompactionLog(body, date string) []CompactionEvent {
	var events []CompactionEvent
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "- "))
		if strings.HasPrefix(line, "[") {
			if end := strings.Index(line, "]"); end > 0 {
				if at, ok := ParseTimestamp(line[1:end], date); ok {
					events = append(events, CompactionEvent{At: at, Note: strings.TrimSpace(line[end+1:])})
					continue
				}
			}
		}
		events = append(events, CompactionEvent{Note: line})
	}
	return events
}
