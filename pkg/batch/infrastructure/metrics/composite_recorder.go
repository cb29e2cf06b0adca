package metrics

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
)

// CompositeRecorder fans every call out to several recorders.
type CompositeRecorder struct {
	recorders []metrics.MetricRecorder
}

// NewCompositeRecorder creates a CompositeRecorder. Nil entries are dropped.
func NewCompositeRecorder(recorders ...metrics.MetricRecorder) *CompositeRecorder {
	c := &CompositeRecorder{}
	for _, r := range recorders {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
	return c
}

func (c *CompositeRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	for _, r := range c.recorders {
		r.RecordRunStart(ctx, run)
	}
}

func (c *CompositeRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	for _, r := range c.recorders {
		r.RecordRunEnd(ctx, run)
	}
}

func (c *CompositeRecorder) RecordPageFetch(ctx context.Context, projectID string, page int, samples int, duration time.Duration) {
	for _, r := range c.recorders {
		r.RecordPageFetch(ctx, projectID, page, samples, duration)
	}
}

func (c *CompositeRecorder) RecordBatchOutcome(ctx context.Context, result *model.SubmissionResult) {
	for _, r := range c.recorders {
		r.RecordBatchOutcome(ctx, result)
	}
}

func (c *CompositeRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range c.recorders {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

// Flush flushes every recorder that supports it and reports all failures together.
func (c *CompositeRecorder) Flush(ctx context.Context) error {
	var result *multierror.Error
	for _, r := range c.recorders {
		if f, ok := r.(metrics.Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

var (
	_ metrics.MetricRecorder = (*CompositeRecorder)(nil)
	_ metrics.Flusher        = (*CompositeRecorder)(nil)
)
