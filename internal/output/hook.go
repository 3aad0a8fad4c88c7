package output

import (
	"encoding/json"
	"io"
	"strings"
)

// HookOutput is the JSON the host reads from a hook's stdout.
type HookOutput struct {
	HookSpecificOutput *HookSpecific `json:"hookSpecificOutput,omitempty"`
	SystemMessage      string        `json:"systemMessage,omitempty"`
}

// HookSpecific carries context the host splices into the conversation.
type HookSpecific struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

// HookWriter emits hook results. Text mode writes the bare text instead of
// the host JSON. Empty results write nothing, so "no action" is a silent exit.
type HookWriter struct {
	W    io.Writer
	Text bool
}

// Context emits text as additional context for eventName.
func (h HookWriter) Context(eventName, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if h.Text {
		return writeText(h.W, text)
	}
	return json.NewEncoder(h.W).Encode(HookOutput{
		HookSpecificOutput: &HookSpecific{
			HookEventName:     eventName,
			AdditionalContext: text,
		},
	})
}

// SystemMessage emits a one-line message shown to the user.
func (h HookWriter) SystemMessage(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if h.Text {
		return writeText(h.W, text)
	}
	return json.NewEncoder(h.W).Encode(HookOutput{SystemMessage: text})
}

func writeText(w io.Writer, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(w, text)
	return err
}
