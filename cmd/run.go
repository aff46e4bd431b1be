package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"imgfit/internal/config"
	"imgfit/internal/processor"
	"imgfit/internal/storage"
	"imgfit/internal/tui"
)

var (
	runFlags    limitFlags
	runProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <src> <dest>",
	Short: "Convert images so each fits the size and pixel budget",
	Long: "Convert every JPEG, PNG, WEBP, TIFF and BMP under <src> into <dest>, keeping relative names. " +
		"<dest> is a local directory or an s3://bucket/prefix URL.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, destArg := args[0], args[1]

		cfg, notes, err := loadConfig(cmd, &runFlags)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			updates chan processor.ProgressUpdate
			program *tea.Program
			uiDone  <-chan struct{}
			logOut  io.Writer = os.Stderr
		)
		if runProgress {
			updates = make(chan processor.ProgressUpdate, 64)
			program = tea.NewProgram(tui.NewModel(updates).WithInterrupt(cancel))
			logOut = tui.LogWriter{Program: program}

			uiDone = runView(func() error {
				_, err := program.Run()
				return err
			}, updates)
		}
		log := newLogger(cfg, logOut, notes)

		finishUI := func() {
			if updates != nil {
				close(updates)
				<-uiDone
				updates = nil
			}
		}
		defer finishUI()

		dest, err := storage.Open(ctx, destArg, cfg.StorageS3())
		if err != nil {
			return err
		}
		log.WithField("dest", dest.Location()).Debug("destination opened")

		opts, err := optionsFor(cfg, src, dest, destArg, log)
		if err != nil {
			return err
		}

		summary, _, err := processor.Run(ctx, src, opts, updates)
		finishUI()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(os.Stdout, renderSummary(summary))
			}
			return err
		}

		fmt.Fprintln(os.Stdout, renderSummary(summary))
		fmt.Fprintf(os.Stdout, "Converted files written to: %s\n", dest.Location())
		return nil
	},
}

// runView runs the progress view in the background. The returned channel
// closes once the view exits; after that, updates are drained until closed
// so a view that quits early never blocks the collector.
func runView(run func() error, updates <-chan processor.ProgressUpdate) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		_ = run()
		close(done)
		for range updates {
		}
	}()
	return done
}

// optionsFor builds the processor options for converting src into dest.
func optionsFor(cfg *config.Config, src string, dest storage.Storage, destArg string, log logrus.FieldLogger) (processor.Options, error) {
	if err := processor.CheckDestination(src, dest); err != nil {
		return processor.Options{}, err
	}
	opts := processor.Options{
		Dest:              dest,
		Limits:            cfg.FitLimits(),
		Workers:           cfg.WorkerCount(),
		IgnoreOrientation: cfg.Processing.IgnoreOrientation,
		SkipExisting:      cfg.Processing.SkipExisting,
		Logger:            log,
	}
	if !strings.HasPrefix(destArg, "s3://") {
		opts.ExcludeDir = destArg
	}
	return opts, nil
}

func renderSummary(summary processor.Summary) string {
	rows := []tui.SummaryRow{
		{Label: "Files processed", Value: fmt.Sprintf("%d", summary.Processed)},
		{Label: "Failed", Value: fmt.Sprintf("%d", summary.Failed), Warn: summary.Failed > 0},
		{Label: "Skipped", Value: fmt.Sprintf("%d", summary.Skipped)},
		{Label: "Over size budget", Value: fmt.Sprintf("%d", summary.BudgetMisses), Warn: summary.BudgetMisses > 0},
		{Label: "Bytes in", Value: humanize.IBytes(uint64(summary.BytesIn))},
		{Label: "Bytes out", Value: humanize.IBytes(uint64(summary.BytesOut))},
	}
	saved := summary.BytesSaved()
	if saved >= 0 {
		rows = append(rows, tui.SummaryRow{Label: "Space saved", Value: humanize.IBytes(uint64(saved))})
	} else {
		rows = append(rows, tui.SummaryRow{Label: "Space grown", Value: humanize.IBytes(uint64(-saved)), Warn: true})
	}
	return tui.RenderSummary("imgfit summary", rows)
}

func init() {
	runFlags.bind(runCmd.Flags(), true)
	runCmd.Flags().BoolVarP(&runProgress, "progress", "p", isatty.IsTerminal(os.Stdout.Fd()), "show a live progress view")

	rootCmd.AddCommand(runCmd)
}
