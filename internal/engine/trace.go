package engine

import (
	"context"

	"github.com/Veraticus/cinnamon/internal/model"
)

// TraceStep records the outcome of one cascade strategy for one
// transaction.
type TraceStep struct {
	Method     model.SuggestionMethod
	Detail     string
	Phase      Phase
	Confidence float64
	Attempted  bool
	Matched    bool
}

// Trace is the phase-by-phase diagnostic record for a single transaction.
type Trace struct {
	Suggestion         *model.CategorySuggestion
	TransactionID      string
	Description        string
	Steps              []TraceStep
	AlreadyCategorized bool
}

// Explain runs the cascade for a single transaction and records what every
// strategy did, using the rest of the batch as history exactly like
// Categorize does. It is intended for debugging and test assertions.
func (e *Engine) Explain(ctx context.Context, txn model.Transaction, batch []model.Transaction, opts Options) (*Trace, error) {
	trace := &Trace{
		TransactionID: txn.ID,
		Description:   txn.Description,
	}

	if txn.HasCategory() {
		trace.AlreadyCategorized = true
		return trace, nil
	}

	cascade := e.buildCascade(opts)
	history := historyOf(batch)

	for _, s := range cascade {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		step := TraceStep{
			Phase:  s.phase,
			Method: s.matcher.Method(),
		}

		if s.phase == PhaseModelPredict && !e.predictor.IsTrained() {
			step.Detail = "model not trained"
			trace.Steps = append(trace.Steps, step)
			continue
		}

		step.Attempted = true
		suggestion, err := s.matcher.Match(ctx, txn.Description, history)
		switch {
		case err != nil:
			step.Detail = err.Error()
		case suggestion != nil:
			step.Matched = true
			step.Confidence = suggestion.Confidence
			step.Detail = suggestion.Reason
			trace.Suggestion = suggestion
		default:
			step.Detail = "no match"
		}
		trace.Steps = append(trace.Steps, step)

		if trace.Suggestion != nil {
			break
		}
	}

	return trace, nil
}
