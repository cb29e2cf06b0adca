// Package usecase drives one flowrun invocation from pipeline lookup to the
// final summary.
package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/ulelab/flowAPIscripts/pkg/batch/component/partitioner"
	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/filter"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/reference"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/roster"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/step/submission"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "run_launcher"

// RunRequest holds the operator's choices for one run.
type RunRequest struct {
	ProjectID string
	// Pipeline is a key of flow.pipelines. Empty selects flow.run.pipeline.
	Pipeline string
	// Filter is the sample_name pattern. Empty keeps every sample.
	Filter string
	// Match overrides the pipeline's filter mode ("glob" or "regex").
	Match string
	// NumChunks below 1 falls back to flow.run.num_chunks.
	NumChunks  int
	StartBatch int
	// EndBatch nil means the last batch.
	EndBatch *int
	DryRun   bool
}

// RunLauncherParams defines the dependencies of RunLauncher.
type RunLauncherParams struct {
	fx.In
	Config    *config.Config
	Source    port.ExecutionSource
	Pages     port.SamplePageSource
	Catalog   port.PipelineCatalog
	Submitter port.PipelineSubmitter
	Gate      port.ConfirmationGate
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	Notifiers []port.RunNotifier   `group:"run_notifiers"`
	Report    port.RunReportWriter `optional:"true"`
}

// RunLauncher runs the resolve, fetch, filter, partition and submit phases in order.
type RunLauncher struct {
	cfg       *config.Config
	source    port.ExecutionSource
	pages     port.SamplePageSource
	catalog   port.PipelineCatalog
	submitter port.PipelineSubmitter
	gate      port.ConfirmationGate
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
	notifiers []port.RunNotifier
	report    port.RunReportWriter
	out       io.Writer
}

// NewRunLauncher creates a RunLauncher that prints to stdout.
func NewRunLauncher(p RunLauncherParams) *RunLauncher {
	return &RunLauncher{
		cfg:       p.Config,
		source:    p.Source,
		pages:     p.Pages,
		catalog:   p.Catalog,
		submitter: p.Submitter,
		gate:      p.Gate,
		recorder:  p.Recorder,
		tracer:    p.Tracer,
		notifiers: p.Notifiers,
		report:    p.Report,
		out:       os.Stdout,
	}
}

// SetOutput redirects the sample listing and batch URLs.
func (l *RunLauncher) SetOutput(w io.Writer) {
	l.out = w
}

// Launch executes one run. The returned RunExecution is never nil once the
// pipeline has been looked up, and reflects how far the run got. An operator
// declining the confirmation yields an error for which exception.IsAborted holds.
func (l *RunLauncher) Launch(ctx context.Context, req RunRequest) (*model.RunExecution, error) {
	key := req.Pipeline
	if key == "" {
		key = l.cfg.Flow.Run.Pipeline
	}
	pipeline, err := l.cfg.Pipeline(key)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, err.Error(), nil)
	}
	if req.ProjectID == "" {
		return nil, exception.NewBatchError(moduleName, exception.KindConfiguration, "project id is required", nil)
	}

	run := model.NewRunExecution(req.ProjectID, key, req.DryRun)
	ctx, endRunSpan := l.tracer.StartRunSpan(ctx, run)
	defer endRunSpan()
	defer l.finalize(ctx, run)

	logger.Infof("Run %s: pipeline %s (%s %s), project %s", run.ID, key, pipeline.Name, pipeline.Version, req.ProjectID)
	l.recorder.RecordRunStart(ctx, run)

	// An invalid pattern must fail before any request is made.
	mode := req.Match
	if mode == "" {
		mode = pipeline.FilterMode
	}
	matcher, err := filter.Compile(mode, req.Filter)
	if err != nil {
		return l.fail(ctx, run, err)
	}

	versionID, references, filesetID, err := l.resolve(ctx, pipeline)
	if err != nil {
		return l.fail(ctx, run, err)
	}
	if err := run.TransitionTo(model.RunStatusResolved); err != nil {
		return l.fail(ctx, run, err)
	}

	samples, err := l.fetchRoster(ctx, req.ProjectID)
	if err != nil {
		return l.fail(ctx, run, err)
	}
	run.TotalSamples = len(samples)

	selected := matcher.Filter(samples)
	l.printSelection(selected)
	if len(selected) == 0 {
		return l.fail(ctx, run, exception.NewBatchError(moduleName, exception.KindUpstreamData, "No samples selected after applying filter.", nil))
	}
	run.Selected = len(selected)
	if err := run.TransitionTo(model.RunStatusFiltered); err != nil {
		return l.fail(ctx, run, err)
	}

	n := req.NumChunks
	if n < 1 {
		n = l.cfg.Flow.Run.NumChunks
	}
	batches := partitioner.Partition(selected, n)
	end := len(batches)
	if req.EndBatch != nil {
		end = *req.EndBatch
	}
	rng, err := partitioner.SelectRange(len(batches), req.StartBatch, end)
	if err != nil {
		return l.fail(ctx, run, err)
	}
	run.TotalBatches = len(batches)
	run.Range = rng
	if err := run.TransitionTo(model.RunStatusPartitioned); err != nil {
		return l.fail(ctx, run, err)
	}
	if err := run.TransitionTo(model.RunStatusSubmitting); err != nil {
		return l.fail(ctx, run, err)
	}

	step := submission.NewStep(l.submitter, l.gate, &l.cfg.Flow.API,
		submission.WithOutput(l.out),
		submission.WithDisplayCap(l.cfg.Flow.Run.DisplayCap),
		submission.WithTelemetry(l.recorder, l.tracer),
	)
	plan := submission.Plan{
		Pipeline:   pipeline,
		VersionID:  versionID,
		References: references,
		FilesetID:  filesetID,
		Range:      rng,
		DryRun:     req.DryRun,
	}
	start := time.Now()
	err = step.Execute(ctx, run, batches, plan)
	l.recorder.RecordDuration(ctx, "submit", time.Since(start), map[string]string{"pipeline": key})
	if err != nil {
		if exception.IsAborted(err) {
			if terr := run.TransitionTo(model.RunStatusAborted); terr != nil {
				logger.Warnf("%v", terr)
			}
			return run, err
		}
		return l.fail(ctx, run, err)
	}

	if err := run.TransitionTo(model.RunStatusSummarized); err != nil {
		return l.fail(ctx, run, err)
	}
	return run, nil
}

// resolve looks up the version id and binds every reference file of the
// pipeline to a file of its preparation execution.
func (l *RunLauncher) resolve(ctx context.Context, pipeline config.PipelineConfig) (string, map[string]string, string, error) {
	ctx, end := l.tracer.StartSpan(ctx, "resolve", map[string]interface{}{
		"pipeline.id":      pipeline.PipelineID,
		"pipeline.version": pipeline.Version,
		"prep.execution":   pipeline.PrepExecutionID,
	})
	defer end()
	start := time.Now()
	defer func() {
		l.recorder.RecordDuration(ctx, "resolve", time.Since(start), map[string]string{"pipeline": pipeline.Name})
	}()

	versionID := pipeline.VersionID
	if versionID == "" {
		id, err := l.catalog.ResolveVersionID(ctx, pipeline.PipelineID, pipeline.Version)
		if err != nil {
			return "", nil, "", err
		}
		versionID = id
	}
	logger.Debugf("Using pipeline version id %s", versionID)

	prep, err := l.source.FetchExecution(ctx, pipeline.PrepExecutionID)
	if err != nil {
		return "", nil, "", err
	}
	filesetID := prep.FilesetID()
	if filesetID.IsZero() {
		return "", nil, "", exception.NewBatchError(moduleName, exception.KindUpstreamData, "Prep execution has no fileset id", nil)
	}

	references, err := reference.Resolve(prep, pipeline.FileMap())
	if err != nil {
		return "", nil, "", err
	}
	return versionID, references, filesetID.String(), nil
}

func (l *RunLauncher) fetchRoster(ctx context.Context, projectID string) ([]model.Sample, error) {
	ctx, end := l.tracer.StartSpan(ctx, "roster", map[string]interface{}{"project.id": projectID})
	defer end()
	return roster.NewFetcher(l.pages, l.recorder, l.cfg.Flow.API.PageSize).FetchAll(ctx, projectID)
}

func (l *RunLauncher) printSelection(samples []model.Sample) {
	fmt.Fprintf(l.out, "Filtered %d samples:\n", len(samples))
	for _, s := range samples {
		fmt.Fprintf(l.out, "  %s: %s\n", s.ID, s.Name)
	}
}

func (l *RunLauncher) fail(ctx context.Context, run *model.RunExecution, err error) (*model.RunExecution, error) {
	l.tracer.RecordError(ctx, moduleName, err)
	run.MarkAsFailed(err)
	return run, err
}

// finalize publishes the outcome of a run whatever state it ended in.
// It still runs after the run context has been cancelled.
func (l *RunLauncher) finalize(ctx context.Context, run *model.RunExecution) {
	ctx = context.WithoutCancel(ctx)
	l.recorder.RecordRunEnd(ctx, run)
	for _, n := range l.notifiers {
		n.NotifyRunSummary(ctx, run)
	}
	if l.report == nil {
		return
	}
	if err := l.report.WriteReport(ctx, run); err != nil {
		logger.Errorf("Failed to write run report: %v", err)
	}
}
