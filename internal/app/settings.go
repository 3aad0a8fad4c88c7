package app

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys.
type Settings struct {
	StateDir           string   `yaml:"state_dir"`
	GuideDirs          []string `yaml:"guide_dirs"`
	GuidePattern       string   `yaml:"guide_pattern"`
	LearnedDir         string   `yaml:"learned_dir"`
	CompactThreshold   int      `yaml:"compact_threshold"`
	CompactInterval    int      `yaml:"compact_interval"`
	RetentionDays      int      `yaml:"retention_days"`
	ResumeMaxSessions  int      `yaml:"resume_max_sessions"`
	ResumeSectionRunes int      `yaml:"resume_section_runes"`
	LogLevel           string   `yaml:"log_level"`
	Output             string   `yaml:"output"`
}

// HookSettings are the effective runtime values every hook resolves before it runs.
type HookSettings struct {
	StateDir         string   `json:"state_dir"`
	StateDirSource   string   `json:"state_dir_source"`
	GuideDirs        []string `json:"guide_dirs"`
	GuidePattern     string   `json:"guide_pattern"`
	LearnedDir       string   `json:"learned_dir"`
	CompactThreshold int      `json:"compact_threshold"`
	CompactInterval  int      `json:"compact_interval"`
	RetentionDays    int      `json:"retention_days"`
	// ResumeMaxSessions and ResumeSectionRunes bound the session-start
	// context. Zero means unlimited.
	ResumeMaxSessions  int    `json:"resume_max_sessions"`
	ResumeSectionRunes int    `json:"resume_section_runes"`
	LogLevel           string `json:"log_level"`
	TextOutput         bool   `json:"text_output"`
}

const (
	defaultCompactThreshold = 50
	defaultCompactInterval  = 25
	defaultRetentionDays    = 7
	defaultGuidePattern     = "**.md"
	defaultLogLevel         = "info"
)

// Environment overrides. COMPACT_THRESHOLD keeps the name existing installs already export.
const (
	EnvStateDir           = "CAIRN_STATE_DIR"
	EnvGuideDir           = "CAIRN_GUIDE_DIR"
	EnvGuidePattern       = "CAIRN_GUIDE_PATTERN"
	EnvLearnedDir         = "CAIRN_LEARNED_DIR"
	EnvCompactThreshold   = "COMPACT_THRESHOLD"
	EnvCompactInterval    = "COMPACT_INTERVAL"
	EnvRetentionDays      = "CAIRN_RETENTION_DAYS"
	EnvResumeMaxSessions  = "CAIRN_RESUME_MAX_SESSIONS"
	EnvResumeSectionRunes = "CAIRN_RESUME_SECTION_RUNES"
	EnvLogLevel           = "CAIRN_LOG_LEVEL"
	EnvOutput             = "CAIRN_OUTPUT"
)

// EffectiveHookSettings returns validated hook settings with defaults.
// Invalid or missing config values fall back to safe defaults; the only
// error is an unresolvable state directory.
func EffectiveHookSettings() (HookSettings, error) {
	cfg := HookSettings{
		GuidePattern:     defaultGuidePattern,
		CompactThreshold: defaultCompactThreshold,
		CompactInterval:  defaultCompactInterval,
		RetentionDays:    defaultRetentionDays,
		LogLevel:         defaultLogLevel,
	}

	stateDir, source, err := ResolveStateDir()
	if err != nil {
		return cfg, err
	}
	cfg.StateDir = stateDir
	cfg.StateDirSource = source

	// A broken config.yaml must not take the hooks down with it.
	s, loadErr := LoadSettings()
	if loadErr != nil {
		s = Settings{}
	}

	cfg.GuideDirs = resolveGuideDirs(s)
	cfg.LearnedDir = resolveLearnedDir(s)

	if v := strings.TrimSpace(os.Getenv(EnvGuidePattern)); v != "" {
		cfg.GuidePattern = v
	} else if s.GuidePattern != "" {
		cfg.GuidePattern = s.GuidePattern
	}

	cfg.CompactThreshold = positiveInt(EnvCompactThreshold, s.CompactThreshold, defaultCompactThreshold)
	cfg.CompactInterval = positiveInt(EnvCompactInterval, s.CompactInterval, defaultCompactInterval)
	cfg.RetentionDays = positiveInt(EnvRetentionDays, s.RetentionDays, defaultRetentionDays)
	if cfg.RetentionDays > 3650 {
		cfg.RetentionDays = 3650
	}

	cfg.ResumeMaxSessions = positiveInt(EnvResumeMaxSessions, s.ResumeMaxSessions, 0)
	cfg.ResumeSectionRunes = positiveInt(EnvResumeSectionRunes, s.ResumeSectionRunes, 0)

	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	} else if s.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(s.LogLevel)
	}

	output := strings.TrimSpace(os.Getenv(EnvOutput))
	if output == "" {
		output = s.Output
	}
	cfg.TextOutput = strings.EqualFold(output, "text")

	return cfg, nil
}

// SlogLevel maps the configured log level name onto slog.
func (h HookSettings) SlogLevel() slog.Level {
	switch h.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// positiveInt picks env, then config, then fallback. Non-positive or
// unparsable values are ignored.
func positiveInt(envName string, configured, fallback int) int {
	if raw := strings.TrimSpace(os.Getenv(envName)); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	if configured > 0 {
		return configured
	}
	return fallback
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// stateDirOverrideMu and stateDirOverride implement a mutex-protected process-wide override for CLI --state-dir.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	stateDirOverrideMu sync.RWMutex
	stateDirOverride   string
)

// SetStateDirOverride sets a process-wide state directory override.
// Intended for CLI flag support (e.g. --state-dir).
func SetStateDirOverride(path string) {
	stateDirOverrideMu.Lock()
	stateDirOverride = path
	stateDirOverrideMu.Unlock()
}

func getStateDirOverride() string {
	stateDirOverrideMu.RLock()
	v := stateDirOverride
	stateDirOverrideMu.RUnlock()
	return v
}

// LoadSettings loads configuration once using the documented lookup order.
// Lookup order (first found wins):
// 1) ~/.config/cairn/config.yaml
// 2) /etc/cairn/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		paths, err := settingsPaths()
		if err != nil {
			settingsErr = err
			return
		}
		for _, p := range paths {
			s, err := loadSettingsFile(p)
			if err == nil {
				settings = s
				return
			}
			if !errors.Is(err, os.ErrNotExist) {
				settingsErr = err
				return
			}
		}
	})

	return settings, settingsErr
}

func settingsPaths() ([]string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "cairn", "config.yaml"),
		"config.yaml",
	}, nil
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path) //nolint:gosec // G304: fixed lookup paths
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
