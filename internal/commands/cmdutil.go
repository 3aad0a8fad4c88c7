package commands

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/app"
	"github.com/dotcommander/cairn/internal/output"
	"github.com/dotcommander/cairn/internal/store"
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// Intentionally hide the original error: the JSON error response is the output.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

// loadSettings resolves hook settings for management commands.
func loadSettings(cmd *cobra.Command) (app.HookSettings, error) {
	cfg, err := app.EffectiveHookSettings()
	if err != nil {
		return cfg, cmdErr(cmd, err)
	}
	return cfg, nil
}

func journalStore(cfg app.HookSettings) *store.JournalStore {
	return store.NewJournalStore(cfg.JournalDir())
}

func counterStore(cfg app.HookSettings) *store.CounterStore {
	return store.NewCounterStore(cfg.CounterDir())
}

func printSuccess(cmd *cobra.Command, data any) error {
	return output.WriteSuccess(cmd.OutOrStdout(), data)
}

// cmdErr logs err, prints the error envelope on the command's stdout and
// returns a printedError so Execute does not report it twice.
func cmdErr(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err.Error()}
	type slogAttrError interface {
		SlogAttrs() []any
	}
	var detailed slogAttrError
	if errors.As(err, &detailed) {
		attrs = append(attrs, detailed.SlogAttrs()...)
	}
	slog.Error("command error", attrs...)
	_ = output.WriteError(cmd.OutOrStdout(), err)
	return printedError{err: err}
}
