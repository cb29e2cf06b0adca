package metrics

import (
	"context"
	"time"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder is a MetricRecorder that does nothing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {}
func (r *NoOpMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution)   {}
func (r *NoOpMetricRecorder) RecordPageFetch(ctx context.Context, projectID string, page int, samples int, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordBatchOutcome(ctx context.Context, result *model.SubmissionResult) {
}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer is a Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
