package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHookWriter_ContextJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HookWriter{W: &buf}.Context("UserPromptSubmit", "guide text"))

	var got HookOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.NotNil(t, got.HookSpecificOutput)
	require.Equal(t, "UserPromptSubmit", got.HookSpecificOutput.HookEventName)
	require.Equal(t, "guide text", got.HookSpecificOutput.AdditionalContext)
	require.Empty(t, got.SystemMessage)
}

func TestHookWriter_SystemMessageJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HookWriter{W: &buf}.SystemMessage("50 tool calls reached"))
	require.Equal(t, "{\"systemMessage\":\"50 tool calls reached\"}\n", buf.String())
}

func TestHookWriter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	w := HookWriter{W: &buf, Text: true}
	require.NoError(t, w.Context("SessionStart", "line one"))
	require.NoError(t, w.SystemMessage("line two\n"))
	require.Equal(t, "line one\nline two\n", buf.String())
}

func TestHookWriter_EmptyIsSilent(t *testing.T) {
	var buf bytes.Buffer
	w := HookWriter{W: &buf}
	require.NoError(t, w.Context("SessionStart", "  \n"))
	require.NoError(t, w.SystemMessage(""))
	require.Empty(t, buf.String())
}
