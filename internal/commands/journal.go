package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/actions"
	"github.com/dotcommander/cairn/internal/journal"
	"github.com/dotcommander/cairn/internal/store"
)

// NewJournalCmd creates the journal command group.
func NewJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and close session journals",
		Long: `Session journals are written by the session-start, pre-compact and
session-end hooks. Hooks never close a journal; use 'cairn journal close'
once a session's work is done so it stops being surfaced.`,
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(newJournalListCmd())
	cmd.AddCommand(newJournalShowCmd())
	cmd.AddCommand(newJournalCloseCmd())

	namespaceIndex(cmd)
	return cmd
}

func newJournalListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journals session start would surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
			res, err := actions.ListJournals(journalStore(cfg), all, hookNow(), retention)
			if err != nil {
				return cmdErr(cmd, err)
			}
			return printSuccess(cmd, res)
		},
	}

	cmd.Flags().Bool("all", false, "Include closed journals and journals outside the retention window")

	return cmd
}

func newJournalShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			sessionID, date, err := journalKey(cmd, args[0])
			if err != nil {
				return cmdErr(cmd, err)
			}

			journals := journalStore(cfg)
			r, err := actions.ShowJournal(journals, sessionID, date)
			if err != nil {
				return cmdErr(cmd, err)
			}

			type resp struct {
				Path    string          `json:"path"`
				Journal *journal.Record `json:"journal"`
			}
			return printSuccess(cmd, resp{Path: journals.Path(sessionID, date), Journal: r})
		},
	}

	cmd.Flags().String("date", "", "Journal day as YYYY-MM-DD (default: today)")

	return cmd
}

func newJournalCloseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <session-id>",
		Short: "Mark a journal closed so session start stops surfacing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			sessionID, date, err := journalKey(cmd, args[0])
			if err != nil {
				return cmdErr(cmd, err)
			}

			journals := journalStore(cfg)
			r, err := actions.CloseJournal(journals, sessionID, date, hookNow())
			if err != nil {
				return cmdErr(cmd, err)
			}

			type resp struct {
				Path    string          `json:"path"`
				Journal *journal.Record `json:"journal"`
			}
			return printSuccess(cmd, resp{Path: journals.Path(sessionID, date), Journal: r})
		},
	}

	cmd.Flags().String("date", "", "Journal day as YYYY-MM-DD (default: today)")

	return cmd
}

// journalKey normalizes the session argument the same way hooks do and
// validates --date.
func journalKey(cmd *cobra.Command, rawSession string) (string, string, error) {
	now := hookNow()
	if strings.TrimSpace(rawSession) == "" {
		return "", "", fmt.Errorf("session id is required")
	}
	sessionID := store.SessionKey(rawSession, now)

	date, _ := cmd.Flags().GetString("date")
	date = strings.TrimSpace(date)
	if date == "" {
		return sessionID, journal.DateKey(now), nil
	}
	if _, err := time.ParseInLocation(journal.DateLayout, date, time.Local); err != nil {
		return "", "", fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
	}
	return sessionID, date, nil
}
