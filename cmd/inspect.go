package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"imgfit/internal/processor"
	"imgfit/internal/tui"
)

var inspectFlags limitFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Show what run would do without writing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, notes, err := loadConfig(cmd, &inspectFlags)
		if err != nil {
			return err
		}
		log := newLogger(cfg, os.Stderr, notes)

		reports, err := processor.Inspect(cmd.Context(), args[0], processor.Options{
			Limits:            cfg.FitLimits(),
			IgnoreOrientation: cfg.Processing.IgnoreOrientation,
			Logger:            log,
		})
		if err != nil {
			return err
		}

		for i, report := range reports {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			fmt.Fprintf(os.Stdout, "%s\n", inspectFileStyle.Render(report.Display))
			if report.Err != nil {
				fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectErrStyle.Render(report.Err.Error()))
				continue
			}

			line := func(label, value string) {
				fmt.Fprintf(os.Stdout, "  %s %s %s\n",
					inspectBulletStyle.Render("-"),
					inspectLabelStyle.Render(label+":"),
					inspectValueStyle.Render(value),
				)
			}

			line("Kind", fmt.Sprintf("%s (%s)", report.Kind, humanize.IBytes(uint64(report.BytesIn))))
			line("Source", fmt.Sprintf("%dx%d", report.Width, report.Height))
			if report.Metadata.Orientation != 1 {
				line("Orientation", fmt.Sprintf("%d", report.Metadata.Orientation))
			}
			line("Planned", fmt.Sprintf("%dx%d", report.Planned.Width, report.Planned.Height))

			encoder := report.Encoder
			if !report.Tunable {
				encoder += ", single attempt"
			}
			line("Encoder", encoder)

			md := report.Metadata
			if md.Empty() {
				line("Metadata", inspectDimStyle.Render("none"))
				continue
			}
			dropped := fmt.Sprintf("%d EXIF tags, %d PNG text chunks dropped", md.Tags, md.TextChunks)
			if kinds := md.Dropped(); len(kinds) > 0 {
				dropped += " (" + strings.Join(kinds, ", ") + ")"
			}
			line("Metadata", dropped)
		}
		return nil
	},
}

var (
	inspectFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	inspectLabelStyle  = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	inspectValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	inspectDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	inspectBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
	inspectErrStyle    = lipgloss.NewStyle().Foreground(tui.ColorFail)
)

func init() {
	inspectFlags.bind(inspectCmd.Flags(), false)

	rootCmd.AddCommand(inspectCmd)
}
