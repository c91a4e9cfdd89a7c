package model

import "time"

// ModelMetrics describes the outcome of a classifier training run.
// A retrain overwrites the previous metrics.
type ModelMetrics struct {
	LastTrainedAt     time.Time
	Accuracy          float64
	Loss              float64
	TrainingSamples   int
	ValidationSamples int
}
