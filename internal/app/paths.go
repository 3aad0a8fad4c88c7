package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoStateDir is returned when neither an override nor a home directory is available.
var ErrNoStateDir = errors.New("cannot resolve state directory")

// ResolveStateDir resolves the state root along with the source of that decision.
// Order of precedence:
// 1) CLI override (e.g. --state-dir)
// 2) Environment variable: CAIRN_STATE_DIR
// 3) config.yaml: state_dir
// 4) Default: ~/.claude/sessions
func ResolveStateDir() (path string, source string, err error) {
	if override := getStateDirOverride(); override != "" {
		return ExpandHome(override), "cli(--state-dir)", nil
	}

	if envPath := strings.TrimSpace(os.Getenv(EnvStateDir)); envPath != "" {
		return ExpandHome(envPath), "env(" + EnvStateDir + ")", nil
	}

	if s, loadErr := LoadSettings(); loadErr == nil && s.StateDir != "" {
		return ExpandHome(s.StateDir), "config(state_dir)", nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", "", fmt.Errorf("%w: %v", ErrNoStateDir, err)
	}
	return filepath.Join(home, ".claude", "sessions"), "default(~/.claude/sessions)", nil
}

func resolveGuideDirs(s Settings) []string {
	var dirs []string
	if raw := strings.TrimSpace(os.Getenv(EnvGuideDir)); raw != "" {
		dirs = filepath.SplitList(raw)
	} else if len(s.GuideDirs) > 0 {
		dirs = s.GuideDirs
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = []string{filepath.Join(home, ".claude", "agents")}
	}

	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		out = append(out, ExpandHome(d))
	}
	return out
}

func resolveLearnedDir(s Settings) string {
	if v := strings.TrimSpace(os.Getenv(EnvLearnedDir)); v != "" {
		return ExpandHome(v)
	}
	if s.LearnedDir != "" {
		return ExpandHome(s.LearnedDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "skills", "learned")
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}

// JournalDir is where per-session-per-day journal records live.
func (h HookSettings) JournalDir() string {
	return filepath.Join(h.StateDir, "journals")
}

// CounterDir is where per-session tool-use counters live.
func (h HookSettings) CounterDir() string {
	return filepath.Join(h.StateDir, "counters")
}

// LogPath is the diagnostic side log shared by all hooks.
func (h HookSettings) LogPath() string {
	return filepath.Join(h.StateDir, "hooks.log")
}

// CompactionLogPath is the global, append-only compaction history.
func (h HookSettings) CompactionLogPath() string {
	return filepath.Join(h.StateDir, "compaction-log.txt")
}

// EnsureDir creates dir (and parents) if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}
