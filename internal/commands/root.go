package commands

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/app"
)

// Execute runs the CLI application.
func Execute(version string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	err := newRootCmd(version).Execute()
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "cairn",
		Short:         "Session memory hooks for Claude Code (guides, compaction advice, journals)",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return printSuccess(cmd, resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Wire --state-dir into app-level resolver.
			if stateDir, err := cmd.Flags().GetString("state-dir"); err == nil && stateDir != "" {
				app.SetStateDirOverride(stateDir)
			}
			return nil
		},
	}

	root.PersistentFlags().String("state-dir", "", "Override state directory (default: $CAIRN_STATE_DIR or ~/.claude/sessions)")
	root.Flags().BoolP("version", "v", false, "version for cairn")

	root.AddCommand(NewHookCmd())
	root.AddCommand(NewJournalCmd())
	root.AddCommand(NewGuideCmd())
	root.AddCommand(NewCounterCmd())
	root.AddCommand(NewDoctorCmd())

	return root
}
