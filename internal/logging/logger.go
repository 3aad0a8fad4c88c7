// Package logging wires slog to the hooks' diagnostic side log.
//
// Hook stdout is spliced into the conversation by the host, so diagnostics
// must never go there. Everything is written as JSON lines to hooks.log
// under the state directory, falling back to stderr when that file cannot
// be opened.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Common attribute keys for consistent logging across hooks.
const (
	KeyHook      = "hook"
	KeySession   = "session_id"
	KeyPath      = "path"
	KeyOperation = "operation"
	KeyKind      = "kind"
)

// Options configures the logger behavior.
type Options struct {
	// Level sets the minimum log level. Defaults to LevelInfo.
	Level slog.Level
	// Path is the side log file. Empty means stderr.
	Path string
	// MaxBytes and MaxBackups control rotation of Path.
	MaxBytes   int64
	MaxBackups int
	// Fallback receives logs when Path cannot be opened. Defaults to os.Stderr.
	Fallback io.Writer
}

// Setup installs a JSON slog logger as the process default and returns it
// together with a close function. It never fails: if the side log cannot be
// opened, the logger writes to the fallback and reports why.
func Setup(opts Options) (*slog.Logger, func()) {
	fallback := opts.Fallback
	if fallback == nil {
		fallback = os.Stderr
	}

	var (
		out     io.Writer = fallback
		closeFn           = func() {}
		openErr error
	)
	if opts.Path != "" {
		rf, err := OpenRotating(opts.Path, opts.MaxBytes, opts.MaxBackups)
		if err == nil {
			out = rf
			closeFn = func() { _ = rf.Close() }
		} else {
			openErr = err
		}
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: opts.Level}))
	slog.SetDefault(logger)

	if openErr != nil {
		logger.Warn("side log unavailable, logging to fallback", KeyPath, opts.Path, "error", openErr)
	}
	return logger, closeFn
}

// ForHook returns the default logger tagged with the hook name.
func ForHook(name string) *slog.Logger {
	return slog.Default().With(KeyHook, name)
}
