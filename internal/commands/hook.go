package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/actions"
	"github.com/dotcommander/cairn/internal/app"
	"github.com/dotcommander/cairn/internal/commands/hookcmd"
	"github.com/dotcommander/cairn/internal/guide"
	"github.com/dotcommander/cairn/internal/logging"
	"github.com/dotcommander/cairn/internal/models"
	"github.com/dotcommander/cairn/internal/output"
	"github.com/dotcommander/cairn/internal/store"
)

const (
	// maxHookStdinBytes caps stdin reads. Hook payloads are small JSON objects;
	// 1 MB is generous headroom that prevents unbounded allocation.
	maxHookStdinBytes = 1 << 20

	hookLogMaxBytes   = 10 << 20
	hookLogMaxBackups = 5

	promptPreviewRunes = 50
)

//nolint:gochecknoglobals // overridable clock for tests
var hookNow = time.Now

// NewHookCmd creates the hook parent command.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Hook handlers and installers for Claude Code",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(hookcmd.NewInstallCmd())
	cmd.AddCommand(hookcmd.NewUninstallCmd())

	// Handler subcommands are called by the host, not by people.
	for _, sub := range []*cobra.Command{
		newHookPromptCmd(),
		newHookPreToolCmd(),
		newHookSessionStartCmd(),
		newHookPreCompactCmd(),
		newHookSessionEndCmd(),
		newHookDispatchCmd(),
	} {
		sub.Hidden = true
		cmd.AddCommand(sub)
	}

	namespaceIndex(cmd)
	return cmd
}

// hookInput is the JSON Claude Code sends on stdin to hooks.
type hookInput struct {
	CWD           string `json:"cwd"`
	SessionID     string `json:"session_id"`
	HookEventName string `json:"hook_event_name"`
	Prompt        string `json:"prompt"`
	ToolName      string `json:"tool_name"`
	Source        string `json:"source"`
	Reason        string `json:"reason"`
	Notes         string `json:"notes"`
}

// hookEnv holds resolved state shared by all hook handlers.
type hookEnv struct {
	cfg       app.HookSettings
	log       *slog.Logger
	now       time.Time
	input     hookInput
	sessionID string
	out       output.HookWriter
}

func (e *hookEnv) journals() *store.JournalStore {
	return store.NewJournalStore(e.cfg.JournalDir())
}

func (e *hookEnv) counters() *store.CounterStore {
	return store.NewCounterStore(e.cfg.CounterDir())
}

type hookHandlerFunc func(env *hookEnv) error

// hookHandlers maps host event names to handlers for the dispatch entry point.
func hookHandlers() map[string]hookHandlerFunc {
	return map[string]hookHandlerFunc{
		models.HookEventUserPromptSubmit: handlePrompt,
		models.HookEventPreToolUse:       handlePreTool,
		models.HookEventSessionStart:     handleSessionStart,
		models.HookEventPreCompact:       handlePreCompact,
		models.HookEventSessionEnd:       handleSessionEnd,
	}
}

// runHook resolves settings, opens the side log, reads the payload and runs
// fn. Every handler failure is logged and swallowed so the host never sees a
// non-zero exit; only an unresolvable configuration fails the command.
func runHook(cmd *cobra.Command, name string, fn hookHandlerFunc) (retErr error) {
	cfg, err := app.EffectiveHookSettings()
	if err != nil {
		slog.Default().Error("hook configuration failed", logging.KeyHook, name, "error", err)
		return printedError{err: models.NewHookError(models.KindConfig, "resolve settings", "", err)}
	}

	prev := slog.Default()
	_, closeLog := logging.Setup(logging.Options{
		Level:      cfg.SlogLevel(),
		Path:       cfg.LogPath(),
		MaxBytes:   hookLogMaxBytes,
		MaxBackups: hookLogMaxBackups,
		Fallback:   cmd.ErrOrStderr(),
	})
	defer func() {
		closeLog()
		slog.SetDefault(prev)
	}()

	log := logging.ForHook(name)
	now := hookNow()
	input := readHookStdin(cmd.InOrStdin(), log)
	env := &hookEnv{
		cfg:       cfg,
		log:       log,
		now:       now,
		input:     input,
		sessionID: store.SessionKey(input.SessionID, now),
		out:       output.HookWriter{W: cmd.OutOrStdout(), Text: cfg.TextOutput},
	}
	env.log = env.log.With(logging.KeySession, env.sessionID)

	defer func() {
		if r := recover(); r != nil {
			env.log.Error("hook panicked", "panic", fmt.Sprint(r))
			retErr = nil
		}
	}()

	if err := fn(env); err != nil {
		logHookError(env.log, err)
	}
	return nil
}

func logHookError(log *slog.Logger, err error) {
	attrs := []any{"error", err.Error()}
	var he *models.HookError
	if errors.As(err, &he) {
		attrs = append(attrs, he.SlogAttrs()...)
	}
	log.Error("hook failed", attrs...)
}

// logGuideSkipped records a passed-over knowledge document as a corpus
// failure. A skip without an underlying error uses its reason as the cause.
func logGuideSkipped(log *slog.Logger, s guide.Skipped) {
	cause := s.Err
	if cause == nil {
		cause = errors.New(s.Reason)
	}
	he := &models.HookError{Kind: models.KindCorpus, Op: s.Reason, Path: s.Path, Err: cause}
	log.Warn("guide skipped", append([]any{"error", he.Error()}, he.SlogAttrs()...)...)
}

// readHookStdin decodes the payload. Unreadable or malformed input yields an
// empty payload so every handler falls back to its defaults.
func readHookStdin(r io.Reader, log *slog.Logger) hookInput {
	if r == nil {
		return hookInput{}
	}
	data, err := io.ReadAll(io.LimitReader(r, maxHookStdinBytes+1))
	if err != nil {
		log.Warn("hook stdin read failed", "error", err)
		return hookInput{}
	}
	if len(data) > maxHookStdinBytes {
		log.Warn("hook stdin payload truncated", "limit_bytes", maxHookStdinBytes)
		return hookInput{}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return hookInput{}
	}
	var input hookInput
	if err := json.Unmarshal(data, &input); err != nil {
		log.Warn("hook stdin unmarshal failed", "error", err, "bytes", len(data))
		return hookInput{}
	}
	return input
}

func hookSubcommand(use, short string, fn hookHandlerFunc) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, use, fn)
		},
	}
}

func newHookPromptCmd() *cobra.Command {
	return hookSubcommand("prompt", "UserPromptSubmit hook: injects matching guide documents", handlePrompt)
}

func newHookPreToolCmd() *cobra.Command {
	return hookSubcommand("pre-tool", "PreToolUse hook: counts tool calls and suggests /compact", handlePreTool)
}

func newHookSessionStartCmd() *cobra.Command {
	return hookSubcommand("session-start", "SessionStart hook: surfaces recent session journals", handleSessionStart)
}

func newHookPreCompactCmd() *cobra.Command {
	return hookSubcommand("pre-compact", "PreCompact hook: records a compaction marker", handlePreCompact)
}

func newHookSessionEndCmd() *cobra.Command {
	return hookSubcommand("session-end", "SessionEnd hook: touches the session journal", handleSessionEnd)
}

// newHookDispatchCmd routes on the payload's hook_event_name.
func newHookDispatchCmd() *cobra.Command {
	return hookSubcommand("dispatch", "Route a hook payload by its hook_event_name", func(env *hookEnv) error {
		h, ok := hookHandlers()[env.input.HookEventName]
		if !ok {
			env.log.Warn("unknown hook event", "hook_event", env.input.HookEventName)
			return nil
		}
		return h(env)
	})
}

func handlePrompt(env *hookEnv) error {
	res, err := actions.InjectGuide(env.input.Prompt, env.cfg.GuideDirs, env.cfg.GuidePattern)
	if err != nil {
		return models.NewHookError(models.KindConfig, "compile guide pattern", env.cfg.GuidePattern, err)
	}
	for _, s := range res.Skipped {
		logGuideSkipped(env.log, s)
	}

	preview := guide.Preview(env.input.Prompt, promptPreviewRunes)
	if len(res.Matched) == 0 {
		env.log.Info("NO MATCH", "prompt", preview, "scanned", res.Scanned)
		return nil
	}
	for _, m := range res.Matched {
		env.log.Info("MATCHED", "prompt", preview, logging.KeyPath, m.RelPath, "keyword", m.Keyword)
	}
	if err := env.out.Context(models.HookEventUserPromptSubmit, res.Context); err != nil {
		return models.NewHookError(models.KindInput, "write hook output", "", err)
	}
	return nil
}

func handlePreTool(env *hookEnv) error {
	counters := env.counters()
	advice, err := actions.AdviseCompaction(counters, env.sessionID, env.cfg.CompactThreshold, env.cfg.CompactInterval)
	if err != nil {
		return models.NewHookError(models.KindStorage, "increment counter", counters.Path(env.sessionID), err)
	}
	if advice.Recovered {
		env.log.Warn("counter unreadable, restarted", logging.KeyPath, counters.Path(env.sessionID))
	}
	env.log.Debug("tool call counted", "count", advice.Count, "tool_name", env.input.ToolName, "next_at", advice.NextAt)

	if advice.Suggestion == nil {
		return nil
	}
	env.log.Info("compaction suggested", "count", advice.Count, logging.KeyKind, string(advice.Suggestion.Kind))
	if err := env.out.SystemMessage(advice.Suggestion.Message); err != nil {
		return models.NewHookError(models.KindInput, "write hook output", "", err)
	}
	return nil
}

func handleSessionStart(env *hookEnv) error {
	journals := env.journals()
	retention := time.Duration(env.cfg.RetentionDays) * 24 * time.Hour
	res, err := actions.OnSessionStart(journals, env.sessionID, env.now, retention, env.cfg.LearnedDir, actions.ResumeLimits{
		MaxSessions:  env.cfg.ResumeMaxSessions,
		SectionRunes: env.cfg.ResumeSectionRunes,
	})
	if err != nil {
		return models.NewHookError(models.KindStorage, "scan journals", journals.Dir(), err)
	}
	for _, s := range res.Skipped {
		env.log.Warn("journal skipped", logging.KeyPath, s.Path, "error", errString(s.Err))
	}
	env.log.Info("session start", "source", env.input.Source, "sessions", len(res.Sessions), "learned_skills", res.LearnedSkills)

	if err := env.out.Context(models.HookEventSessionStart, res.Context); err != nil {
		return models.NewHookError(models.KindInput, "write hook output", "", err)
	}
	return nil
}

func handlePreCompact(env *hookEnv) error {
	journals := env.journals()
	res, err := actions.OnPreCompaction(journals, env.cfg.CompactionLogPath(), env.sessionID, env.now)
	if res == nil {
		return models.NewHookError(models.KindStorage, "mark compaction", journals.Dir(), err)
	}
	env.log.Info("compaction marked", logging.KeyPath, res.Path, "compactions", res.Compactions)
	if err != nil {
		return models.NewHookError(models.KindStorage, "append compaction log", env.cfg.CompactionLogPath(), err)
	}
	return nil
}

func handleSessionEnd(env *hookEnv) error {
	res, err := actions.OnSessionEnd(env.journals(), env.sessionID, env.input.Notes, env.now)
	if err != nil {
		return models.NewHookError(models.KindStorage, "update journal", env.cfg.JournalDir(), err)
	}
	env.log.Info("session end", logging.KeyPath, res.Path, "reason", env.input.Reason,
		"created", res.Created, "notes_updated", res.NotesUpdated)
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// RunHook runs one hook handler as `cairn hook <sub>` would, reading the
// payload from stdin. It returns the process exit code. The standalone hook
// executables are thin wrappers around it.
func RunHook(version, sub string) int {
	root := newRootCmd(version)
	root.SetArgs([]string{"hook", sub})
	if err := root.Execute(); err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}
