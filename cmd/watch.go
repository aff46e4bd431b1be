package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"imgfit/internal/processor"
	"imgfit/internal/storage"
)

var watchFlags limitFlags

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <src> <dest>",
	Short: "Convert <src> once, then keep converting new or changed images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, destArg := args[0], args[1]

		cfg, notes, err := loadConfig(cmd, &watchFlags)
		if err != nil {
			return err
		}
		log := newLogger(cfg, os.Stderr, notes)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dest, err := storage.Open(ctx, destArg, cfg.StorageS3())
		if err != nil {
			return err
		}
		opts, err := optionsFor(cfg, src, dest, destArg, log)
		if err != nil {
			return err
		}

		initial, _, err := processor.Run(ctx, src, opts, nil)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(os.Stdout, renderSummary(initial))
				return nil
			}
			return err
		}
		log.WithField("processed", initial.Processed).WithField("failed", initial.Failed).Info("initial pass complete")

		watched, err := processor.Watch(ctx, src, opts, nil)
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, renderSummary(mergeSummaries(initial, watched)))
		return nil
	},
}

func mergeSummaries(a, b processor.Summary) processor.Summary {
	return processor.Summary{
		Total:        a.Total + b.Total,
		Processed:    a.Processed + b.Processed,
		Failed:       a.Failed + b.Failed,
		Skipped:      a.Skipped + b.Skipped,
		BudgetMisses: a.BudgetMisses + b.BudgetMisses,
		BytesIn:      a.BytesIn + b.BytesIn,
		BytesOut:     a.BytesOut + b.BytesOut,
	}
}

func init() {
	watchFlags.bind(watchCmd.Flags(), true)

	rootCmd.AddCommand(watchCmd)
}
