package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/actions"
	"github.com/dotcommander/cairn/internal/store"
)

// NewCounterCmd creates the counter command group.
func NewCounterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Inspect per-session tool-call counters",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newCounterListCmd())
	cmd.AddCommand(newCounterShowCmd())

	namespaceIndex(cmd)
	return cmd
}

func newCounterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions that have a tool-call counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			counters := counterStore(cfg)
			ids, err := counters.Sessions()
			if err != nil {
				return cmdErr(cmd, err)
			}

			out := make([]*actions.CompactionAdvice, 0, len(ids))
			for _, id := range ids {
				advice, err := actions.CounterStatus(counters, id, cfg.CompactThreshold, cfg.CompactInterval)
				if err != nil {
					// A corrupt counter restarts on the next tool call.
					slog.Default().Warn("counter unreadable", "session_id", id, "error", err)
					continue
				}
				out = append(out, advice)
			}

			type resp struct {
				Counters []*actions.CompactionAdvice `json:"counters"`
			}
			return printSuccess(cmd, resp{Counters: out})
		},
	}
}

func newCounterShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's tool-call count and next suggestion point",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			sessionID := store.SessionKey(args[0], hookNow())
			advice, err := actions.CounterStatus(counterStore(cfg), sessionID, cfg.CompactThreshold, cfg.CompactInterval)
			if err != nil {
				return cmdErr(cmd, err)
			}
			return printSuccess(cmd, advice)
		},
	}
}
