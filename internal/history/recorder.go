package history

import (
	"context"

	"aaxconv/internal/job"
)

// RunRecorder binds a store to one run so the scheduler can append outcomes.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a recorder for runID.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// RunID returns the bound run identifier.
func (r *RunRecorder) RunID() string {
	return r.runID
}

// RecordOutcome appends outcome to the bound run.
func (r *RunRecorder) RecordOutcome(ctx context.Context, outcome job.Outcome) error {
	return r.store.RecordJob(ctx, r.runID, outcome)
}
