package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// RecorderParams defines the dependencies for NewMetricRecorder.
type RecorderParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Telemetry *config.TelemetryConfig
}

// NewMetricRecorder always records to a Prometheus registry and additionally
// pushes OTLP metrics when an endpoint is configured. Pending data is flushed
// when the application stops.
func NewMetricRecorder(p RecorderParams) (metrics.MetricRecorder, error) {
	recorders := []metrics.MetricRecorder{NewPrometheusRecorder(p.Telemetry.MetricsFile)}

	if p.Telemetry.OTLPEndpoint != "" {
		exporter, err := newMetricExporter(context.Background(), p.Telemetry)
		if err != nil {
			return nil, err
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
			sdkmetric.WithResource(newResource(p.Telemetry)),
		)
		otel.SetMeterProvider(provider)
		otelRecorder, err := NewOTelMetricRecorder(provider)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, otelRecorder)
		p.Lifecycle.Append(fx.Hook{OnStop: otelRecorder.Shutdown})
		logger.Debugf("Metrics: OTLP export to %s (%s)", p.Telemetry.OTLPEndpoint, otlpProtocol(p.Telemetry))
	}

	composite := NewCompositeRecorder(recorders...)
	// OnStop hooks run in reverse order, so this flush precedes the shutdown above.
	p.Lifecycle.Append(fx.Hook{OnStop: composite.Flush})
	return composite, nil
}

// TracerParams defines the dependencies for NewTracer.
type TracerParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Telemetry *config.TelemetryConfig
	Fallback  metrics.Tracer `name:"noopTracer"`
}

// NewTracer returns an OTLP-backed tracer when an endpoint is configured and
// the no-op tracer otherwise.
func NewTracer(p TracerParams) (metrics.Tracer, error) {
	if p.Telemetry.OTLPEndpoint == "" {
		return p.Fallback, nil
	}
	exporter, err := newSpanExporter(context.Background(), p.Telemetry)
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(p.Telemetry)),
	)
	otel.SetTracerProvider(provider)
	p.Lifecycle.Append(fx.Hook{OnStop: provider.Shutdown})
	return NewOpenTelemetryTracer(provider), nil
}

// Module provides the MetricRecorder and Tracer used by the run launcher.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
