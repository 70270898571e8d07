// Package train implements the train subcommand.
package train

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/rainforest-sed/internal/logging"
	"github.com/tphakala/rainforest-sed/internal/pipeline"
)

// Command creates the train command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the detection model on the annotated recordings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, closeLogs, err := pipeline.Bootstrap()
			if err != nil {
				return err
			}
			defer closeLogs() //nolint:errcheck // best-effort log flush at exit
			m, err := pipeline.NewModel(settings)
			if err != nil {
				return err
			}
			trainer, err := pipeline.NewTrainer(settings, m)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := trainer.Run(ctx)
			if err != nil {
				return err
			}
			logging.HumanReadable().Info("training finished",
				"run_id", summary.RunID,
				"best_epoch", summary.BestEpoch,
				"best_lwlrap", summary.BestScore,
				"checkpoint", summary.CheckpointPath)
			return nil
		},
	}
}
