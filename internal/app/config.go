package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/cairn/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cairn"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# cairn configuration
# Run: cairn doctor

# Where journals, counters and hooks.log live.
# Can also be set via CAIRN_STATE_DIR or --state-dir.
# state_dir: ~/.claude/sessions

# Knowledge document roots scanned on every prompt (CAIRN_GUIDE_DIR).
# guide_dirs:
#   - ~/.claude/agents

# Glob selecting guide documents, relative to each root (CAIRN_GUIDE_PATTERN).
# guide_pattern: "**.md"

# Learned skills counted at session start (CAIRN_LEARNED_DIR).
# learned_dir: ~/.claude/skills/learned

# Compaction advisor (COMPACT_THRESHOLD / COMPACT_INTERVAL).
# compact_threshold: 50
# compact_interval: 25

# Session journals older than this are not surfaced at session start.
# retention_days: 7

# Bounds on the session-start context. 0 surfaces every open journal in full.
# resume_max_sessions: 0
# resume_section_runes: 0

# hooks.log verbosity: debug, info, warn, error (CAIRN_LOG_LEVEL).
# log_level: info

# Hook stdout format: json or text (CAIRN_OUTPUT).
# output: json
`
