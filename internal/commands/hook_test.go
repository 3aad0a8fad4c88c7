package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/cairn/internal/app"
)

// testEnv points every cairn setting at a throwaway directory.
type testEnv struct {
	home     string
	stateDir string
	guideDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	home := t.TempDir()
	env := testEnv{
		home:     home,
		stateDir: filepath.Join(home, "state"),
		guideDir: filepath.Join(home, "agents"),
	}

	t.Setenv("HOME", home)
	t.Setenv(app.EnvStateDir, env.stateDir)
	t.Setenv(app.EnvGuideDir, env.guideDir)
	t.Setenv(app.EnvLearnedDir, filepath.Join(home, "learned"))
	t.Setenv(app.EnvGuidePattern, "")
	t.Setenv(app.EnvCompactThreshold, "")
	t.Setenv(app.EnvCompactInterval, "")
	t.Setenv(app.EnvRetentionDays, "")
	t.Setenv(app.EnvResumeMaxSessions, "")
	t.Setenv(app.EnvResumeSectionRunes, "")
	t.Setenv(app.EnvOutput, "")
	t.Setenv(app.EnvLogLevel, "debug")
	t.Setenv("CAIRN_PRETTY_JSON", "")

	app.SetStateDirOverride("")
	t.Cleanup(func() { app.SetStateDirOverride("") })

	fixed := time.Date(2026, 10, 17, 10, 0, 0, 0, time.Local)
	prev := hookNow
	hookNow = func() time.Time { return fixed }
	t.Cleanup(func() { hookNow = prev })

	return env
}

func (e testEnv) setNow(t *testing.T, now time.Time) {
	t.Helper()
	hookNow = func() time.Time { return now }
}

func (e testEnv) writeGuide(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(e.guideDir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func (e testEnv) hookLog(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(e.stateDir, "hooks.log"))
	require.NoError(t, err)
	return string(b)
}

// runCLI executes the root command in-process and returns its stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func hookPayload(t *testing.T, fields map[string]string) string {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return string(b)
}

type hostOutput struct {
	HookSpecificOutput *struct {
		HookEventName     string `json:"hookEventName"`
		AdditionalContext string `json:"additionalContext"`
	} `json:"hookSpecificOutput"`
	SystemMessage string `json:"systemMessage"`
}

func decodeHost(t *testing.T, out string) hostOutput {
	t.Helper()
	var h hostOutput
	require.NoError(t, json.Unmarshal([]byte(out), &h), "stdout: %q", out)
	return h
}

func TestHookPrompt_InjectsMatchingGuide(t *testing.T) {
	env := newTestEnv(t)
	env.writeGuide(t, "testing.md", "---\nkeywords: [test, jest, unit test]\n---\nPrefer table-driven tests.\n")
	env.writeGuide(t, "containers.md", "---\nkeywords: [docker, kubernetes]\n---\nPin base images.\n")

	out, err := runCLI(t, hookPayload(t, map[string]string{
		"session_id":      "s1",
		"hook_event_name": "UserPromptSubmit",
		"prompt":          "help me write unit tests for this component",
	}), "hook", "prompt")
	require.NoError(t, err)

	h := decodeHost(t, out)
	require.NotNil(t, h.HookSpecificOutput)
	require.Equal(t, "UserPromptSubmit", h.HookSpecificOutput.HookEventName)
	require.Equal(t, 1, strings.Count(h.HookSpecificOutput.AdditionalContext, "Prefer table-driven tests."))
	require.NotContains(t, h.HookSpecificOutput.AdditionalContext, "Pin base images.")

	log := env.hookLog(t)
	require.Contains(t, log, "MATCHED")
	require.Contains(t, log, `"hook":"prompt"`)
}

func TestHookPrompt_NoMatchIsSilent(t *testing.T) {
	env := newTestEnv(t)
	env.writeGuide(t, "containers.md", "---\nkeywords: [docker]\n---\nPin base images.\n")

	out, err := runCLI(t, hookPayload(t, map[string]string{"prompt": "refactor the parser"}), "hook", "prompt")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Contains(t, env.hookLog(t), "NO MATCH")
}

func TestHookPrompt_MissingGuideDirIsSilent(t *testing.T) {
	newTestEnv(t)

	out, err := runCLI(t, hookPayload(t, map[string]string{"prompt": "unit tests please"}), "hook", "prompt")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestHookPrompt_InvalidPatternFailsSoft(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(app.EnvGuidePattern, "[")
	env.writeGuide(t, "testing.md", "---\nkeywords: [test]\n---\nbody\n")

	out, err := runCLI(t, hookPayload(t, map[string]string{"prompt": "test"}), "hook", "prompt")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Contains(t, env.hookLog(t), `"kind":"config"`)
}

func TestHookPrompt_TextOutput(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv(app.EnvOutput, "text")
	env.writeGuide(t, "testing.md", "---\nkeywords: [test]\n---\nPrefer table-driven tests.\n")

	out, err := runCLI(t, hookPayload(t, map[string]string{"prompt": "add a test"}), "hook", "prompt")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "<injected-guide>\n"))
	require.Contains(t, out, "Prefer table-driven tests.")
}

func TestHookPrompt_BrokenGuideLoggedAsCorpusError(t *testing.T) {
	env := newTestEnv(t)
	env.writeGuide(t, "testing.md", "---\nkeywords: [test]\n---\nPrefer table-driven tests.\n")
	env.writeGuide(t, "broken.md", "---\nkeywords: [oops\n---\nbody\n")

	out, err := runCLI(t, hookPayload(t, map[string]string{"prompt": "add a test"}), "hook", "prompt")
	require.NoError(t, err)
	require.Contains(t, decodeHost(t, out).HookSpecificOutput.AdditionalContext, "Prefer table-driven tests.")

	log := env.hookLog(t)
	require.Contains(t, log, "guide skipped")
	require.Contains(t, log, `"kind":"corpus"`)
	require.Contains(t, log, "broken.md")
}

func TestHook_OversizedStdinIsLoggedAndIgnored(t *testing.T) {
	env := newTestEnv(t)

	prompt := strings.Repeat("x", maxHookStdinBytes)
	payload := hookPayload(t, map[string]string{"session_id": "big", "prompt": prompt})
	require.Greater(t, len(payload), maxHookStdinBytes)

	out, err := runCLI(t, payload, "hook", "pre-tool")
	require.NoError(t, err)
	require.Empty(t, out)

	log := env.hookLog(t)
	require.Contains(t, log, "hook stdin payload truncated")
	require.NotContains(t, log, "hook stdin unmarshal failed")

	// The payload was dropped, so the per-day key was counted instead.
	_, err = os.Stat(filepath.Join(env.stateDir, "counters", "day-2026-10-17.count"))
	require.NoError(t, err)
}

func TestHook_MalformedStdinFallsBackToDefaults(t *testing.T) {
	env := newTestEnv(t)

	for _, sub := range []string{"prompt", "pre-tool", "session-start", "pre-compact", "session-end"} {
		out, err := runCLI(t, "{not json", "hook", sub)
		require.NoError(t, err, sub)
		require.Empty(t, out, sub)
	}

	// Empty session ids fall back to the per-day key.
	_, err := os.Stat(filepath.Join(env.stateDir, "counters", "day-2026-10-17.count"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.stateDir, "journals", "day-2026-10-17-2026-10-17.md"))
	require.NoError(t, err)
}

func TestHookPreTool_SuggestsAtThresholdThenEveryInterval(t *testing.T) {
	newTestEnv(t)
	t.Setenv(app.EnvCompactThreshold, "3")
	t.Setenv(app.EnvCompactInterval, "2")

	payload := hookPayload(t, map[string]string{"session_id": "s1", "tool_name": "Edit"})
	var messages []string
	for i := 1; i <= 7; i++ {
		out, err := runCLI(t, payload, "hook", "pre-tool")
		require.NoError(t, err)
		if out == "" {
			continue
		}
		messages = append(messages, decodeHost(t, out).SystemMessage)
	}

	require.Equal(t, []string{
		"3 tool calls reached - consider /compact if transitioning phases",
		"5 tool calls - good checkpoint for /compact if context is stale",
		"7 tool calls - good checkpoint for /compact if context is stale",
	}, messages)
}

func TestHookPreTool_SessionsCountIndependently(t *testing.T) {
	newTestEnv(t)
	t.Setenv(app.EnvCompactThreshold, "2")

	for i := 0; i < 2; i++ {
		_, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "a"}), "hook", "pre-tool")
		require.NoError(t, err)
	}
	out, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "b"}), "hook", "pre-tool")
	require.NoError(t, err)
	require.Empty(t, out)

	out, err = runCLI(t, "", "counter", "show", "a")
	require.NoError(t, err)
	data := successData(t, out)
	require.Equal(t, float64(2), data["count"])
	require.Equal(t, "at_or_above_threshold", data["state"])
}

func TestHookLifecycle_CompactionMarkerSurfacesNextSession(t *testing.T) {
	env := newTestEnv(t)
	env.setNow(t, time.Date(2026, 10, 16, 15, 30, 0, 0, time.Local))

	_, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "abc"}), "hook", "pre-compact")
	require.NoError(t, err)
	_, err = runCLI(t, hookPayload(t, map[string]string{"session_id": "abc", "notes": "wire the exporter"}), "hook", "session-end")
	require.NoError(t, err)

	logLine, err := os.ReadFile(filepath.Join(env.stateDir, "compaction-log.txt"))
	require.NoError(t, err)
	require.Equal(t, "[2026-10-16 15:30:00] Context compaction triggered (session abc)\n", string(logLine))

	env.setNow(t, time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local))
	payload := hookPayload(t, map[string]string{"session_id": "next", "source": "startup"})
	first, err := runCLI(t, payload, "hook", "session-start")
	require.NoError(t, err)

	h := decodeHost(t, first)
	require.NotNil(t, h.HookSpecificOutput)
	require.Equal(t, "SessionStart", h.HookSpecificOutput.HookEventName)
	ctx := h.HookSpecificOutput.AdditionalContext
	require.Contains(t, ctx, "## Session abc (2026-10-16, last updated yesterday)")
	require.Contains(t, ctx, "wire the exporter")
	require.Contains(t, ctx, "Compaction occurred - context was summarized")

	second, err := runCLI(t, payload, "hook", "session-start")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestHookSessionStart_ClosedJournalIsNotSurfaced(t *testing.T) {
	newTestEnv(t)

	_, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "done"}), "hook", "session-end")
	require.NoError(t, err)

	_, err = runCLI(t, "", "journal", "close", "done")
	require.NoError(t, err)

	out, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "new"}), "hook", "session-start")
	require.NoError(t, err)
	require.Empty(t, out)

	// A later hook run never reopens it.
	_, err = runCLI(t, hookPayload(t, map[string]string{"session_id": "done", "notes": "more"}), "hook", "session-end")
	require.NoError(t, err)
	out, err = runCLI(t, "", "journal", "show", "done")
	require.NoError(t, err)
	journal := successData(t, out)["journal"].(map[string]any)
	require.Equal(t, "closed", journal["status"])
	require.Equal(t, "more", journal["notes"])
}

func TestHookDispatch_RoutesByEventName(t *testing.T) {
	env := newTestEnv(t)

	_, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "d1", "hook_event_name": "PreCompact"}), "hook", "dispatch")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.stateDir, "compaction-log.txt"))
	require.NoError(t, err)

	out, err := runCLI(t, hookPayload(t, map[string]string{"hook_event_name": "Notification"}), "hook", "dispatch")
	require.NoError(t, err)
	require.Empty(t, out)
	require.Contains(t, env.hookLog(t), "unknown hook event")
}

func TestHook_UnresolvableStateDirFails(t *testing.T) {
	newTestEnv(t)
	t.Setenv(app.EnvStateDir, "")
	t.Setenv("HOME", "")

	out, err := runCLI(t, hookPayload(t, map[string]string{"prompt": "x"}), "hook", "prompt")
	require.Error(t, err)
	require.Empty(t, out)

	var pe printedError
	require.ErrorAs(t, err, &pe)
}

func TestHook_StateDirFlagOverridesEnv(t *testing.T) {
	env := newTestEnv(t)
	override := filepath.Join(env.home, "override")

	_, err := runCLI(t, hookPayload(t, map[string]string{"session_id": "f"}), "--state-dir", override, "hook", "pre-tool")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(override, "counters", "f.count"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.stateDir, "counters", "f.count"))
	require.True(t, os.IsNotExist(err))
}
