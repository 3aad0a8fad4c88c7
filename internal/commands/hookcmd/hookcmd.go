// Package hookcmd provides hook installation and uninstallation commands.
// This package is separate from the main commands package to allow independent
// evolution of hook lifecycle management.
package hookcmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/app"
	"github.com/dotcommander/cairn/internal/output"
	"github.com/dotcommander/cairn/internal/store"
)

const cairnCommandFallback = "cairn"

//nolint:gochecknoglobals // sync.Once singleton cache for hook definitions; required by the sync.Once pattern
var (
	cairnHooksOnce  sync.Once
	cairnHooksCache map[string]hookEntry
)

// hookHandler timeouts are in seconds, as settings.json expects.
type hookHandler struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout"`
}

type hookEntry struct {
	Matcher string        `json:"matcher"`
	Hooks   []hookHandler `json:"hooks"`
}

// hookSubcommands are the `cairn hook <sub>` handlers settings.json may reference.
var hookSubcommands = map[string]bool{ //nolint:gochecknoglobals // read-only lookup table
	"prompt":        true,
	"pre-tool":      true,
	"session-start": true,
	"pre-compact":   true,
	"session-end":   true,
}

// standaloneExecutables are the single-purpose binaries built from cmd/.
var standaloneExecutables = map[string]bool{ //nolint:gochecknoglobals // read-only lookup table
	"inject-guide":       true,
	"strategic-compact":  true,
	"memory-persistence": true,
}

func claudeSettingsPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude", "settings.json")
}

func projectClaudeSettingsPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".", ".claude", "settings.json")
	}
	return filepath.Join(wd, ".claude", "settings.json")
}

func resolveClaudeSettingsPath(projectScoped bool) string {
	if projectScoped {
		return projectClaudeSettingsPath()
	}
	return claudeSettingsPath()
}

// ensureStateDirBestEffort writes the default config.yaml and creates the
// state layout so the first hook run does not have to. Failures are logged;
// hooks create directories lazily anyway.
func ensureStateDirBestEffort() {
	if err := app.EnsureConfigDir(); err != nil {
		slog.Default().Warn("hook install: create config dir failed", "error", err)
	}
	cfg, err := app.EffectiveHookSettings()
	if err != nil {
		slog.Default().Warn("hook install: resolve state dir failed", "error", err)
		return
	}
	for _, dir := range []string{cfg.JournalDir(), cfg.CounterDir()} {
		if err := app.EnsureDir(dir); err != nil {
			slog.Default().Warn("hook install: create state dir failed", "path", dir, "error", err)
		}
	}
}

func cairnExecutable() string {
	exe, err := os.Executable()
	if err != nil || strings.TrimSpace(exe) == "" {
		return cairnCommandFallback
	}
	return exe
}

func buildCairnHookCommand(subcommand string) string {
	exe := cairnExecutable()
	if exe == cairnCommandFallback {
		return fmt.Sprintf("cairn hook %s", subcommand)
	}
	// Quote the executable path so hook commands are robust with spaces.
	return fmt.Sprintf("%q hook %s", exe, subcommand)
}

func cairnHooks() map[string]hookEntry {
	cairnHooksOnce.Do(func() {
		cairnHooksCache = buildCairnHooks()
	})
	return cairnHooksCache
}

func buildCairnHooks() map[string]hookEntry {
	return map[string]hookEntry{
		"SessionStart": {
			Matcher: "startup|resume|clear|compact",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildCairnHookCommand("session-start"),
				Timeout: 10,
			}},
		},
		"UserPromptSubmit": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildCairnHookCommand("prompt"),
				Timeout: 5,
			}},
		},
		"PreToolUse": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildCairnHookCommand("pre-tool"),
				Timeout: 5,
			}},
		},
		"PreCompact": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildCairnHookCommand("pre-compact"),
				Timeout: 10,
			}},
		},
		"SessionEnd": {
			Matcher: "",
			Hooks: []hookHandler{{
				Type:    "command",
				Command: buildCairnHookCommand("session-end"),
				Timeout: 10,
			}},
		},
	}
}

// EventNames lists the host events cairn registers for, sorted.
func EventNames() []string {
	events := make([]string, 0, len(cairnHooks()))
	for name := range cairnHooks() {
		events = append(events, name)
	}
	sort.Strings(events)
	return events
}

func readSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: settings path is fixed or cwd-scoped
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	// The host reads settings.json concurrently; never expose a half-written file.
	return store.WriteFileAtomic(path, data, 0o600)
}

// HasCairnHook checks if a hooks array already contains a cairn hook command.
func HasCairnHook(entries []any) bool {
	for _, entry := range entries {
		if entryHasCairnCommand(entry) {
			return true
		}
	}
	return false
}

func entryHasCairnCommand(entry any) bool {
	entryMap, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	hooks, ok := entryMap["hooks"].([]any)
	if !ok {
		return false
	}
	for _, h := range hooks {
		hMap, ok := h.(map[string]any)
		if !ok {
			continue
		}
		cmd, _ := hMap["command"].(string)
		if IsCairnHookCommand(cmd) {
			return true
		}
	}
	return false
}

// IsCairnHookCommand checks if a command string runs one of cairn's hooks,
// either as `cairn hook <sub>` or as one of the standalone executables.
func IsCairnHookCommand(command string) bool {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return false
	}
	parts := strings.Fields(cmd)

	execToken := filepath.Base(strings.Trim(parts[0], "\"'"))
	if standaloneExecutables[execToken] {
		return true
	}
	if execToken != "cairn" || len(parts) < 3 {
		return false
	}
	if parts[1] != "hook" {
		return false
	}
	return hookSubcommands[parts[2]]
}

func hookEntryEqual(a, b map[string]any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

type installOutcome int

const (
	hookInstalled installOutcome = iota
	hookUpdated
	hookSkipped
)

// upsertCairnHookEntry replaces any existing cairn entry or appends a new one.
// Foreign entries are preserved in order.
func upsertCairnHookEntry(existing []any, newEntry map[string]any) ([]any, installOutcome) {
	var kept []any
	hadCairn := false
	matchingCairn := false

	for _, currentEntry := range existing {
		if !entryHasCairnCommand(currentEntry) {
			kept = append(kept, currentEntry)
			continue
		}
		hadCairn = true
		if entryObj, ok := currentEntry.(map[string]any); ok && hookEntryEqual(entryObj, newEntry) {
			matchingCairn = true
		}
	}

	kept = append(kept, newEntry)
	entries := kept
	if matchingCairn {
		return entries, hookSkipped
	}
	if hadCairn {
		return entries, hookUpdated
	}
	return entries, hookInstalled
}

// removeCairnHookEntries drops every cairn entry and reports whether any were found.
func removeCairnHookEntries(entries []any) ([]any, bool) {
	var kept []any
	for _, entry := range entries {
		if !entryHasCairnCommand(entry) {
			kept = append(kept, entry)
		}
	}
	return kept, len(kept) != len(entries)
}

// InstallResult reports what install changed in settings.json.
type InstallResult struct {
	Path      string   `json:"path"`
	Installed []string `json:"installed"`
	Updated   []string `json:"updated,omitempty"`
	Skipped   []string `json:"skipped"`
	Message   string   `json:"message"`
}

// Install upserts cairn's hook entries into the settings file at path.
func Install(path string) (*InstallResult, error) {
	settings, err := readSettings(path)
	if err != nil {
		return nil, err
	}

	hooksObj, _ := settings["hooks"].(map[string]any)
	if hooksObj == nil {
		hooksObj = map[string]any{}
	}

	res := &InstallResult{Path: path, Installed: []string{}, Skipped: []string{}}
	for eventName, entry := range cairnHooks() {
		existing, _ := hooksObj[eventName].([]any)

		entryJSON, _ := json.Marshal(entry)
		var entryMap map[string]any
		_ = json.Unmarshal(entryJSON, &entryMap)

		entries, outcome := upsertCairnHookEntry(existing, entryMap)
		hooksObj[eventName] = entries

		switch outcome {
		case hookInstalled:
			res.Installed = append(res.Installed, eventName)
		case hookUpdated:
			res.Updated = append(res.Updated, eventName)
		case hookSkipped:
			res.Skipped = append(res.Skipped, eventName)
		}
	}

	settings["hooks"] = hooksObj
	if err := writeSettings(path, settings); err != nil {
		return nil, err
	}

	sort.Strings(res.Installed)
	sort.Strings(res.Updated)
	sort.Strings(res.Skipped)

	var parts []string
	if len(res.Installed) > 0 {
		parts = append(parts, fmt.Sprintf("Claude Code hooks installed (%s)", strings.Join(res.Installed, ", ")))
	}
	if len(res.Updated) > 0 {
		parts = append(parts, fmt.Sprintf("Claude Code hooks updated (%s)", strings.Join(res.Updated, ", ")))
	}
	if len(parts) == 0 {
		parts = append(parts, "Claude Code hooks already installed")
	}
	res.Message = strings.Join(parts, "; ") + ". Run 'cairn doctor' to verify."
	return res, nil
}

// UninstallResult reports which events lost their cairn entries.
type UninstallResult struct {
	Path    string   `json:"path"`
	Removed []string `json:"removed"`
}

// Uninstall removes cairn's hook entries from the settings file at path.
// Foreign entries stay; events left empty are deleted.
func Uninstall(path string) (*UninstallResult, error) {
	settings, err := readSettings(path)
	if err != nil {
		return nil, err
	}

	res := &UninstallResult{Path: path, Removed: []string{}}
	hooksObj, _ := settings["hooks"].(map[string]any)
	if hooksObj == nil {
		return res, nil
	}

	eventNames := make([]string, 0, len(hooksObj))
	for name := range hooksObj {
		eventNames = append(eventNames, name)
	}
	sort.Strings(eventNames)

	for _, eventName := range eventNames {
		entries, ok := hooksObj[eventName].([]any)
		if !ok {
			continue
		}
		kept, removed := removeCairnHookEntries(entries)
		if !removed {
			continue
		}
		res.Removed = append(res.Removed, eventName)
		if len(kept) == 0 {
			delete(hooksObj, eventName)
		} else {
			hooksObj[eventName] = kept
		}
	}
	if len(res.Removed) == 0 {
		return res, nil
	}

	settings["hooks"] = hooksObj
	if err := writeSettings(path, settings); err != nil {
		return nil, err
	}
	return res, nil
}

// SettingsPath returns the user or project settings.json path.
func SettingsPath(projectScoped bool) string {
	return resolveClaudeSettingsPath(projectScoped)
}

// InstalledEvents reports which of cairn's events have a cairn entry in the
// settings file at path. A missing file reports none.
func InstalledEvents(path string) ([]string, error) {
	settings, err := readSettings(path)
	if err != nil {
		return nil, err
	}
	hooksObj, _ := settings["hooks"].(map[string]any)

	installed := []string{}
	for _, eventName := range EventNames() {
		entries, _ := hooksObj[eventName].([]any)
		if HasCairnHook(entries) {
			installed = append(installed, eventName)
		}
	}
	return installed, nil
}

// NewInstallCmd creates the hook install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install cairn hooks into Claude Code settings",
		Long: `Registers cairn for SessionStart, UserPromptSubmit, PreToolUse, PreCompact
and SessionEnd. Idempotent; entries belonging to other tools are preserved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			projectScoped, _ := cmd.Flags().GetBool("project")

			res, err := Install(resolveClaudeSettingsPath(projectScoped))
			if err != nil {
				return err
			}
			ensureStateDirBestEffort()
			return printSuccess(cmd, res)
		},
	}

	cmd.Flags().Bool("project", false, "Install hooks in ./.claude/settings.json instead of ~/.claude/settings.json")

	return cmd
}

// NewUninstallCmd creates the hook uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove cairn hooks from Claude Code settings",
		Long:  "Removes cairn's hook entries. State under the state directory is left untouched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			projectScoped, _ := cmd.Flags().GetBool("project")

			res, err := Uninstall(resolveClaudeSettingsPath(projectScoped))
			if err != nil {
				return err
			}
			return printSuccess(cmd, res)
		},
	}

	cmd.Flags().Bool("project", false, "Uninstall hooks from ./.claude/settings.json instead of ~/.claude/settings.json")

	return cmd
}

func printSuccess(cmd *cobra.Command, data any) error {
	return output.WriteSuccess(cmd.OutOrStdout(), data)
}
