package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cinnamon/internal/classifier"
	"github.com/Veraticus/cinnamon/internal/common"
	"github.com/Veraticus/cinnamon/internal/model"
	"github.com/spf13/cobra"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier on labeled transactions",
		Long: `Fit the description classifier on every categorized transaction in the
database and persist the resulting metrics. Training needs labeled data
across at least two categories.`,
		RunE: runTrain,
	}

	defaults := classifier.DefaultTrainingConfig()
	cmd.Flags().Int("epochs", defaults.Epochs, "training epochs")
	cmd.Flags().Int("batch-size", defaults.BatchSize, "training batch size")
	cmd.Flags().Float64("validation-split", defaults.ValidationSplit, "fraction of samples held out for validation")

	return cmd
}

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show metrics of the last training run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			metrics, err := store.GetModelMetrics(ctx)
			if errors.Is(err, common.ErrNoModelMetrics) {
				fmt.Println("No model trained yet. Run 'cinnamon train' first.")
				return nil
			}
			if err != nil {
				return err
			}

			printMetrics(metrics)
			return nil
		},
	}
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	epochs, _ := cmd.Flags().GetInt("epochs")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	validationSplit, _ := cmd.Flags().GetFloat64("validation-split")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	labeled, err := store.GetLabeledTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load labeled transactions: %w", err)
	}

	clf := classifier.New()
	metrics, err := clf.Train(ctx, labeled, classifier.TrainingConfig{
		Epochs:          epochs,
		BatchSize:       batchSize,
		ValidationSplit: validationSplit,
	})
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := store.SaveModelMetrics(ctx, metrics); err != nil {
		return fmt.Errorf("failed to save model metrics: %w", err)
	}

	fmt.Println("Training complete")
	printMetrics(metrics)
	return nil
}

func printMetrics(metrics *model.ModelMetrics) {
	fmt.Printf("  Trained at:         %s\n", metrics.LastTrainedAt.Format(time.RFC3339))
	fmt.Printf("  Accuracy:           %.2f%%\n", metrics.Accuracy*100)
	fmt.Printf("  Loss:               %.4f\n", metrics.Loss)
	fmt.Printf("  Training samples:   %d\n", metrics.TrainingSamples)
	fmt.Printf("  Validation samples: %d\n", metrics.ValidationSamples)
}
