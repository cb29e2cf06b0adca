package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	tracer trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer from provider.
func NewOpenTelemetryTracer(provider trace.TracerProvider) *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartRunSpan starts the root span of a run.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, run *model.RunExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "flowrun.run", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("run.project", run.ProjectID),
		attribute.String("run.pipeline", run.Pipeline),
		attribute.Bool("run.dry_run", run.DryRun),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("run.status", run.Status.String()),
			attribute.Int("run.batches.recorded", run.SuccessCount()),
		)
		if run.Status == model.RunStatusFailed {
			span.SetStatus(codes.Error, run.Failure)
		}
		span.End()
	}
}

// StartSpan starts a child span for a run phase.
func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string, attributes map[string]interface{}) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "flowrun."+name, trace.WithAttributes(toAttributes(attributes)...))
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
	span.SetStatus(codes.Error, err.Error())
	logger.Debugf("Tracer: recorded error in module %s: %v", module, err)
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
