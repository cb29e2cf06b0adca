package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of metrics.MetricRecorder.
// flowrun is a short-lived CLI, so nothing is scraped: the registry is written
// to a node-exporter textfile when the run ends.
type PrometheusRecorder struct {
	registry     *prometheus.Registry
	textfilePath string

	runDurationSeconds   *prometheus.HistogramVec
	runStatusCounter     *prometheus.CounterVec
	pageFetchCounter     *prometheus.CounterVec
	pageSamplesCounter   *prometheus.CounterVec
	pageDurationSeconds  *prometheus.HistogramVec
	batchStatusCounter   *prometheus.CounterVec
	batchSamplesCounter  *prometheus.CounterVec
	phaseDurationSeconds *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with its own registry. textfilePath
// may be empty, in which case Flush does nothing.
func NewPrometheusRecorder(textfilePath string) *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	r := &PrometheusRecorder{
		registry:     registry,
		textfilePath: textfilePath,
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowrun_run_duration_seconds",
			Help:    "Duration of orchestrator runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline", "status"}),
		runStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowrun_runs_total",
			Help: "Runs by final status.",
		}, []string{"pipeline", "status"}),
		pageFetchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowrun_roster_pages_total",
			Help: "Roster pages requested.",
		}, []string{"project"}),
		pageSamplesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowrun_roster_samples_total",
			Help: "Samples returned by roster pages.",
		}, []string{"project"}),
		pageDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowrun_roster_page_duration_seconds",
			Help:    "Latency of roster page requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"project"}),
		batchStatusCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowrun_batches_total",
			Help: "Batches by final status.",
		}, []string{"status"}),
		batchSamplesCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowrun_batch_samples_total",
			Help: "Samples in batches by final batch status.",
		}, []string{"status"}),
		phaseDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowrun_phase_duration_seconds",
			Help:    "Duration of run phases such as resolve and fetch.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
	}

	registry.MustRegister(
		r.runDurationSeconds,
		r.runStatusCounter,
		r.pageFetchCounter,
		r.pageSamplesCounter,
		r.pageDurationSeconds,
		r.batchStatusCounter,
		r.batchSamplesCounter,
		r.phaseDurationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRunStart is a no-op; runs are counted once they finish.
func (r *PrometheusRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	logger.Debugf("Metrics: run %s started.", run.ID)
}

// RecordRunEnd records the final status and duration of a run.
func (r *PrometheusRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	r.runStatusCounter.WithLabelValues(run.Pipeline, run.Status.String()).Inc()
	if run.EndTime == nil {
		return
	}
	r.runDurationSeconds.WithLabelValues(run.Pipeline, run.Status.String()).Observe(run.EndTime.Sub(run.StartTime).Seconds())
}

// RecordPageFetch records one roster page request.
func (r *PrometheusRecorder) RecordPageFetch(ctx context.Context, projectID string, page int, samples int, duration time.Duration) {
	r.pageFetchCounter.WithLabelValues(projectID).Inc()
	r.pageSamplesCounter.WithLabelValues(projectID).Add(float64(samples))
	r.pageDurationSeconds.WithLabelValues(projectID).Observe(duration.Seconds())
}

// RecordBatchOutcome records the final state of one batch.
func (r *PrometheusRecorder) RecordBatchOutcome(ctx context.Context, result *model.SubmissionResult) {
	status := string(result.Status)
	r.batchStatusCounter.WithLabelValues(status).Inc()
	r.batchSamplesCounter.WithLabelValues(status).Add(float64(result.SampleCount))
}

// RecordDuration records a phase duration. The "phase" tag falls back to name.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	phase := name
	if p, ok := tags["phase"]; ok && p != "" {
		phase = p
	}
	r.phaseDurationSeconds.WithLabelValues(phase).Observe(duration.Seconds())
}

// Flush writes the registry to the configured textfile.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.textfilePath == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(r.textfilePath, r.registry); err != nil {
		return err
	}
	logger.Debugf("Metrics: wrote Prometheus textfile %s", r.textfilePath)
	return nil
}

var (
	_ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
	_ metrics.Flusher        = (*PrometheusRecorder)(nil)
)
