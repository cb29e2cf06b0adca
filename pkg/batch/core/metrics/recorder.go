// Package metrics defines the recording and tracing abstractions used by the
// orchestrator. Backends live in the infrastructure layer; this package only
// provides no-op fallbacks.
package metrics

import (
	"context"
	"time"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// MetricRecorder records run, roster and batch metrics.
type MetricRecorder interface {
	// RecordRunStart records the start of a run.
	RecordRunStart(ctx context.Context, run *model.RunExecution)
	// RecordRunEnd records the final state of a run.
	RecordRunEnd(ctx context.Context, run *model.RunExecution)
	// RecordPageFetch records one roster page request and how many samples it returned.
	RecordPageFetch(ctx context.Context, projectID string, page int, samples int, duration time.Duration)
	// RecordBatchOutcome records the final state of one batch.
	RecordBatchOutcome(ctx context.Context, result *model.SubmissionResult)
	// RecordDuration records the duration of a named phase.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}

// Flusher is implemented by recorders that buffer data and must export it before exit.
type Flusher interface {
	Flush(ctx context.Context) error
}
