package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/dotcommander/cairn/internal/actions"
)

// NewGuideCmd creates the guide command group.
func NewGuideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guide",
		Short: "Inspect guide documents and dry-run prompt matching",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(newGuideListCmd())
	cmd.AddCommand(newGuideMatchCmd())

	namespaceIndex(cmd)
	return cmd
}

func newGuideListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List discovered guide documents and their keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			corpus, err := actions.ListGuides(cfg.GuideDirs, cfg.GuidePattern)
			if err != nil {
				return cmdErr(cmd, err)
			}

			type guideItem struct {
				Path     string   `json:"path"`
				RelPath  string   `json:"rel_path"`
				Keywords []string `json:"keywords"`
			}
			type skippedItem struct {
				Path   string `json:"path"`
				Reason string `json:"reason"`
				Error  string `json:"error,omitempty"`
			}
			type resp struct {
				Roots   []string      `json:"roots"`
				Pattern string        `json:"pattern"`
				Guides  []guideItem   `json:"guides"`
				Skipped []skippedItem `json:"skipped,omitempty"`
			}

			out := resp{Roots: cfg.GuideDirs, Pattern: cfg.GuidePattern, Guides: []guideItem{}}
			for _, d := range corpus.Docs {
				out.Guides = append(out.Guides, guideItem{Path: d.Path, RelPath: d.RelPath, Keywords: d.Keywords})
			}
			for _, s := range corpus.Skipped {
				out.Skipped = append(out.Skipped, skippedItem{Path: s.Path, Reason: s.Reason, Error: errString(s.Err)})
			}
			return printSuccess(cmd, out)
		},
	}
}

func newGuideMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <prompt>",
		Short: "Show which guide documents a prompt would inject",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			res, err := actions.InjectGuide(strings.Join(args, " "), cfg.GuideDirs, cfg.GuidePattern)
			if err != nil {
				return cmdErr(cmd, err)
			}
			return printSuccess(cmd, res)
		},
	}
}
