package metrics

import (
	"context"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// Tracer creates spans around the phases of a run.
type Tracer interface {
	// StartRunSpan starts the root span of a run. The returned function ends it.
	StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func())
	// StartSpan starts a child span named after a phase (e.g. "resolve", "batch").
	StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func())
	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
