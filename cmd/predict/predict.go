// Package predict implements the predict subcommand.
package predict

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/rainforest-sed/internal/logging"
	"github.com/tphakala/rainforest-sed/internal/model"
	"github.com/tphakala/rainforest-sed/internal/pipeline"
	"github.com/tphakala/rainforest-sed/internal/training"
)

// Command creates the predict command.
func Command() *cobra.Command {
	var checkpoint string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run the trained model over the test recordings and write a submission",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, closeLogs, err := pipeline.Bootstrap()
			if err != nil {
				return err
			}
			defer closeLogs() //nolint:errcheck // best-effort log flush at exit
			if checkpoint == "" {
				checkpoint = filepath.Join(settings.Output.Dir, "best_model.gob")
			}
			m, err := model.Load(checkpoint)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			path, err := training.Predict(ctx, settings, m)
			if err != nil {
				return err
			}
			logging.HumanReadable().Info("prediction finished", "submission", path, "checkpoint", checkpoint)
			return nil
		},
	}
	cmd.Flags().StringVar(&checkpoint, "model", "", "Path to the model checkpoint (defaults to the run's best checkpoint)")
	return cmd
}
