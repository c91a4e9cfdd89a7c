package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/cinnamon/internal/common"
	"github.com/Veraticus/cinnamon/internal/model"
)

// SaveModelMetrics overwrites the stored metrics of the last training run.
func (s *SQLiteStorage) SaveModelMetrics(ctx context.Context, metrics *model.ModelMetrics) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if metrics == nil {
		return fmt.Errorf("metrics must not be nil")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO model_metrics (id, accuracy, loss, training_samples, validation_samples, trained_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			accuracy = excluded.accuracy,
			loss = excluded.loss,
			training_samples = excluded.training_samples,
			validation_samples = excluded.validation_samples,
			trained_at = excluded.trained_at
	`, metrics.Accuracy, metrics.Loss, metrics.TrainingSamples, metrics.ValidationSamples, metrics.LastTrainedAt)
	if err != nil {
		return fmt.Errorf("failed to save model metrics: %w", err)
	}
	return nil
}

// GetModelMetrics returns the stored metrics of the last training run, or
// common.ErrNoModelMetrics when no model has been trained yet.
func (s *SQLiteStorage) GetModelMetrics(ctx context.Context) (*model.ModelMetrics, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var metrics model.ModelMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT accuracy, loss, training_samples, validation_samples, trained_at
		FROM model_metrics
		WHERE id = 1
	`).Scan(&metrics.Accuracy, &metrics.Loss, &metrics.TrainingSamples, &metrics.ValidationSamples, &metrics.LastTrainedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNoModelMetrics
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query model metrics: %w", err)
	}

	return &metrics, nil
}
