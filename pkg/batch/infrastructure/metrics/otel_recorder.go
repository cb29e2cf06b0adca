package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
)

// OTelMetricRecorder records metrics through an OpenTelemetry MeterProvider.
type OTelMetricRecorder struct {
	provider *sdkmetric.MeterProvider

	runs          metric.Int64Counter
	runDuration   metric.Float64Histogram
	pages         metric.Int64Counter
	pageSamples   metric.Int64Counter
	batches       metric.Int64Counter
	batchSamples  metric.Int64Counter
	phaseDuration metric.Float64Histogram
}

// NewOTelMetricRecorder creates instruments on a meter from provider.
func NewOTelMetricRecorder(provider *sdkmetric.MeterProvider) (*OTelMetricRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelMetricRecorder{provider: provider}

	var err error
	if r.runs, err = meter.Int64Counter("flowrun.runs", metric.WithDescription("Runs by final status.")); err != nil {
		return nil, err
	}
	if r.runDuration, err = meter.Float64Histogram("flowrun.run.duration", metric.WithUnit("s"), metric.WithDescription("Duration of orchestrator runs.")); err != nil {
		return nil, err
	}
	if r.pages, err = meter.Int64Counter("flowrun.roster.pages", metric.WithDescription("Roster pages requested.")); err != nil {
		return nil, err
	}
	if r.pageSamples, err = meter.Int64Counter("flowrun.roster.samples", metric.WithDescription("Samples returned by roster pages.")); err != nil {
		return nil, err
	}
	if r.batches, err = meter.Int64Counter("flowrun.batches", metric.WithDescription("Batches by final status.")); err != nil {
		return nil, err
	}
	if r.batchSamples, err = meter.Int64Counter("flowrun.batch.samples", metric.WithDescription("Samples in batches by final batch status.")); err != nil {
		return nil, err
	}
	if r.phaseDuration, err = meter.Float64Histogram("flowrun.phase.duration", metric.WithUnit("s"), metric.WithDescription("Duration of run phases.")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {}

func (r *OTelMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	attrs := metric.WithAttributes(
		attribute.String("pipeline", run.Pipeline),
		attribute.String("status", run.Status.String()),
	)
	r.runs.Add(ctx, 1, attrs)
	if run.EndTime != nil {
		r.runDuration.Record(ctx, run.EndTime.Sub(run.StartTime).Seconds(), attrs)
	}
}

func (r *OTelMetricRecorder) RecordPageFetch(ctx context.Context, projectID string, page int, samples int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("project", projectID))
	r.pages.Add(ctx, 1, attrs)
	r.pageSamples.Add(ctx, int64(samples), attrs)
	r.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("phase", "roster_page")))
}

func (r *OTelMetricRecorder) RecordBatchOutcome(ctx context.Context, result *model.SubmissionResult) {
	attrs := metric.WithAttributes(attribute.String("status", string(result.Status)))
	r.batches.Add(ctx, 1, attrs)
	r.batchSamples.Add(ctx, int64(result.SampleCount), attrs)
}

func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("phase", name)}
	for k, v := range tags {
		if k != "phase" {
			attrs = append(attrs, attribute.String(k, v))
		}
	}
	r.phaseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Flush pushes pending measurements to the exporter.
func (r *OTelMetricRecorder) Flush(ctx context.Context) error {
	return r.provider.ForceFlush(ctx)
}

// Shutdown stops the provider and its exporter.
func (r *OTelMetricRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

var (
	_ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)
	_ metrics.Flusher        = (*OTelMetricRecorder)(nil)
)
