package guide

import (
	"strings"
	"unicode/utf8"
)

const (
	openTag  = "<injected-guide>"
	closeTag = "</injected-guide>"
	preamble = "You MUST follow these guide instructions:"
)

// Render formats hits as the context block handed to the host. Only the
// document's relative path and body are emitted. An empty hit list renders
// as "".
func Render(hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(openTag)
	b.WriteByte('\n')
	b.WriteString(preamble)
	b.WriteByte('\n')
	for _, h := range hits {
		b.WriteString("\n## ")
		b.WriteString(h.Doc.RelPath)
		b.WriteString("\n\n")
		if h.Doc.Body != "" {
			b.WriteString(h.Doc.Body)
			b.WriteByte('\n')
		}
	}
	b.WriteString(closeTag)
	b.WriteByte('\n')
	return b.String()
}

// Preview shortens a prompt for log lines.
func Preview(prompt string, maxRunes int) string {
	prompt = strings.Join(strings.Fields(prompt), " ")
	if utf8.RuneCountInString(prompt) <= maxRunes {
		return prompt
	}
	runes := []rune(prompt)
	return string(runes[:maxRunes]) + "..."
}
