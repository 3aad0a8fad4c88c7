package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/actions"
	"github.com/dotcommander/cairn/internal/app"
	"github.com/dotcommander/cairn/internal/commands/hookcmd"
	"github.com/dotcommander/cairn/internal/store"
)

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
	Hint   string `json:"hint,omitempty"`
}

type doctorReport struct {
	Settings app.HookSettings `json:"settings"`
	Checks   []doctorCheck    `json:"checks"`
	OK       bool             `json:"ok"`
}

func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, state directory, guides and hook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			human, _ := cmd.Flags().GetBool("human")
			project, _ := cmd.Flags().GetBool("project")

			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			report := runDoctor(cfg, hookcmd.SettingsPath(project))
			if human {
				printDoctorHuman(cmd.OutOrStdout(), report)
				return nil
			}
			return printSuccess(cmd, report)
		},
	}

	cmd.Flags().Bool("human", false, "Print a colored checklist instead of JSON")
	cmd.Flags().Bool("project", false, "Check ./.claude/settings.json instead of ~/.claude/settings.json")

	return cmd
}

func runDoctor(cfg app.HookSettings, settingsPath string) doctorReport {
	report := doctorReport{Settings: cfg, OK: true}
	add := func(c doctorCheck) {
		report.Checks = append(report.Checks, c)
		report.OK = report.OK && c.OK
	}

	add(checkStateDir(cfg))
	add(checkJournals(cfg))
	add(checkCounters(cfg))
	add(checkLog(cfg))
	add(checkGuides(cfg))
	add(checkHooks(settingsPath))
	return report
}

func checkStateDir(cfg app.HookSettings) doctorCheck {
	c := doctorCheck{Name: "state_dir", Detail: fmt.Sprintf("%s (%s)", cfg.StateDir, cfg.StateDirSource)}
	if err := app.EnsureDir(cfg.StateDir); err != nil {
		c.Hint = "set CAIRN_STATE_DIR or --state-dir to a writable directory"
		c.Detail = err.Error()
		return c
	}
	marker := filepath.Join(cfg.StateDir, ".doctor-write-check")
	if err := store.WriteFileAtomic(marker, []byte("ok"), 0o600); err != nil {
		c.Hint = "set CAIRN_STATE_DIR or --state-dir to a writable directory"
		c.Detail = err.Error()
		return c
	}
	_ = os.Remove(marker)
	c.OK = true
	return c
}

func checkJournals(cfg app.HookSettings) doctorCheck {
	c := doctorCheck{Name: "journals"}
	entries, skipped, err := journalStore(cfg).List()
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	open := 0
	for _, e := range entries {
		if !e.Record.IsClosed() {
			open++
		}
	}
	c.Detail = fmt.Sprintf("%d journal(s), %d open", len(entries), open)
	if len(skipped) > 0 {
		c.Detail += fmt.Sprintf(", %d unreadable", len(skipped))
		c.Hint = "cairn journal list --all"
	}
	c.OK = true
	return c
}

func checkCounters(cfg app.HookSettings) doctorCheck {
	c := doctorCheck{Name: "counters"}
	ids, err := counterStore(cfg).Sessions()
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	c.Detail = fmt.Sprintf("%d session counter(s), suggest at %d then every %d",
		len(ids), cfg.CompactThreshold, cfg.CompactInterval)
	c.OK = true
	return c
}

func checkLog(cfg app.HookSettings) doctorCheck {
	c := doctorCheck{Name: "hooks_log", OK: true}
	info, err := os.Stat(cfg.LogPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.Detail = cfg.LogPath() + " (not created yet)"
	case err != nil:
		c.OK = false
		c.Detail = err.Error()
	default:
		c.Detail = fmt.Sprintf("%s (%s, updated %s)", cfg.LogPath(),
			humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime())) //nolint:gosec // G115: size is non-negative
	}
	return c
}

func checkGuides(cfg app.HookSettings) doctorCheck {
	c := doctorCheck{Name: "guides"}
	corpus, err := actions.ListGuides(cfg.GuideDirs, cfg.GuidePattern)
	if err != nil {
		c.Detail = err.Error()
		c.Hint = "fix CAIRN_GUIDE_PATTERN or guide_pattern in config.yaml"
		return c
	}
	c.OK = true
	c.Detail = fmt.Sprintf("%d document(s) matching %q in %d root(s)", len(corpus.Docs), cfg.GuidePattern, len(cfg.GuideDirs))
	if len(corpus.Skipped) > 0 {
		c.Detail += fmt.Sprintf(", %d skipped", len(corpus.Skipped))
		c.Hint = "cairn guide list"
	}
	return c
}

func checkHooks(settingsPath string) doctorCheck {
	c := doctorCheck{Name: "hooks"}
	installed, err := hookcmd.InstalledEvents(settingsPath)
	if err != nil {
		c.Detail = err.Error()
		return c
	}
	want := hookcmd.EventNames()
	c.Detail = fmt.Sprintf("%d/%d events registered in %s", len(installed), len(want), settingsPath)
	if len(installed) < len(want) {
		c.Hint = "cairn hook install"
		return c
	}
	c.OK = true
	return c
}

func printDoctorHuman(w io.Writer, report doctorReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	_, _ = fmt.Fprintln(w, bold("cairn doctor"))
	for _, c := range report.Checks {
		mark := green("✓")
		if !c.OK {
			mark = red("✗")
		}
		_, _ = fmt.Fprintf(w, "  %s %-10s %s\n", mark, c.Name, c.Detail)
		if c.Hint != "" {
			_, _ = fmt.Fprintf(w, "    %s %s\n", gray("hint:"), c.Hint)
		}
	}
	if report.OK {
		_, _ = fmt.Fprintln(w, green("All checks passed."))
		return
	}
	_, _ = fmt.Fprintln(w, red("Some checks failed."))
}
