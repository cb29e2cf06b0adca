package submission

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "submitter"

// ConfirmPrompt is shown once before the first live submission.
const ConfirmPrompt = "Submit?"

// Plan carries everything resolved before the submission loop starts.
type Plan struct {
	Pipeline   config.PipelineConfig
	VersionID  string
	References map[string]string
	FilesetID  string
	Range      model.BatchRange
	DryRun     bool
}

// Step walks the batches of a run in order and submits the in-range ones.
type Step struct {
	submitter   port.PipelineSubmitter
	gate        port.ConfirmationGate
	recorder    metrics.MetricRecorder
	tracer      metrics.Tracer
	urlTemplate string
	appURL      string
	displayCap  int
	out         io.Writer
}

// Option customises a Step.
type Option func(*Step)

// WithOutput sets where "Batch i: <url>" lines are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Step) { s.out = w }
}

// WithDisplayCap limits how many samples per batch a dry run lists.
func WithDisplayCap(n int) Option {
	return func(s *Step) { s.displayCap = n }
}

// WithTelemetry attaches a metric recorder and tracer.
func WithTelemetry(recorder metrics.MetricRecorder, tracer metrics.Tracer) Option {
	return func(s *Step) {
		if recorder != nil {
			s.recorder = recorder
		}
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewStep creates a Step. gate is wrapped so it is asked at most once.
func NewStep(submitter port.PipelineSubmitter, gate port.ConfirmationGate, api *config.APIConfig, opts ...Option) *Step {
	s := &Step{
		submitter:   submitter,
		gate:        NewOnceGate(gate),
		recorder:    metrics.NewNoOpMetricRecorder(),
		tracer:      metrics.NewNoOpTracer(),
		urlTemplate: api.ExecutionURLTemplate,
		appURL:      api.AppURL,
		displayCap:  10,
		out:         os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute processes every batch and appends one SubmissionResult per batch to run.
//
// A failed submission is logged and the loop moves on to the next batch. The
// returned error is non-nil only when the run must stop: the operator declined
// the confirmation, the confirmation could not be read, or ctx was cancelled.
func (s *Step) Execute(ctx context.Context, run *model.RunExecution, batches []model.Batch, plan Plan) error {
	var failures *multierror.Error
	reported := 0

	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return exception.NewBatchErrorf(moduleName, exception.KindTransport, "run cancelled before batch %d: %v", batch.Index, err)
		}

		result := model.NewSubmissionResult(batch)
		if !plan.Range.Contains(batch.Index) {
			logger.Infof("Skipping batch %d (not in range %d-%d)", batch.Index, plan.Range.Start, plan.Range.End)
			s.finish(ctx, run, result, model.BatchStatusSkipped)
			continue
		}
		if batch.Size() == 0 {
			logger.Warnf("Batch %d has no samples; skipping", batch.Index)
			s.finish(ctx, run, result, model.BatchStatusSkipped)
			continue
		}

		if err := result.TransitionTo(model.BatchStatusBuilt); err != nil {
			return err
		}
		request := BuildRequest(plan.Pipeline, plan.VersionID, plan.References, plan.FilesetID, batch)

		if plan.DryRun {
			s.reportDryRun(batch)
			s.finish(ctx, run, result, model.BatchStatusDryRunReported)
			reported++
			continue
		}

		ok, err := s.gate.Confirm(ctx, ConfirmPrompt)
		if err != nil {
			result.MarkAsFailed(err)
			s.record(ctx, run, result)
			return exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to read confirmation", err)
		}
		if !ok {
			logger.Infof("Aborted by user.")
			result.MarkAsFailed(exception.ErrAborted)
			s.record(ctx, run, result)
			return exception.NewBatchError(moduleName, exception.KindAborted, "Aborted by user.", exception.ErrAborted)
		}

		if err := s.submit(ctx, request, result); err != nil {
			logger.Errorf("Batch %d submission failed: %v", batch.Index, err)
			result.MarkAsFailed(err)
			failures = exception.Append(failures, fmt.Errorf("batch %d: %w", batch.Index, err))
			s.record(ctx, run, result)
			continue
		}
		fmt.Fprintf(s.out, "Batch %d: %s\n", batch.Index, result.ExecutionURL)
		s.record(ctx, run, result)
	}

	if plan.DryRun {
		logger.Infof("DRY RUN complete: %d batch(es) prepared.", reported)
	}
	if failures.ErrorOrNil() != nil {
		logger.Warnf("%d batch submission(s) failed: %v", len(failures.Errors), failures)
	}
	return nil
}

func (s *Step) submit(ctx context.Context, request *model.ExecutionRequest, result *model.SubmissionResult) error {
	ctx, end := s.tracer.StartSpan(ctx, "batch", map[string]interface{}{
		"batch.index":   result.BatchIndex,
		"batch.samples": result.SampleCount,
	})
	defer end()

	if err := result.TransitionTo(model.BatchStatusConfirmed); err != nil {
		return err
	}
	id, err := s.submitter.SubmitExecution(ctx, request)
	if err != nil {
		s.tracer.RecordError(ctx, moduleName, err)
		return err
	}
	if err := result.TransitionTo(model.BatchStatusSubmitted); err != nil {
		return err
	}
	result.ExecutionID = id.String()
	result.ExecutionURL = model.ExecutionURL(s.urlTemplate, s.appURL, id)
	s.tracer.RecordEvent(ctx, "execution.recorded", map[string]interface{}{"execution.id": result.ExecutionID})
	return result.TransitionTo(model.BatchStatusRecorded)
}

func (s *Step) reportDryRun(batch model.Batch) {
	logger.Infof("DRY RUN: Batch %s: %d samples", batch.Label(), batch.Size())
	for i, sample := range batch.Samples {
		if s.displayCap > 0 && i >= s.displayCap {
			logger.Infof("  ... and %d more", batch.Size()-s.displayCap)
			break
		}
		logger.Infof("  %s | id=%s", sample.Name, sample.ID)
	}
}

func (s *Step) finish(ctx context.Context, run *model.RunExecution, result *model.SubmissionResult, status model.BatchStatus) {
	if err := result.TransitionTo(status); err != nil {
		logger.Warnf("%v", err)
	}
	s.record(ctx, run, result)
}

func (s *Step) record(ctx context.Context, run *model.RunExecution, result *model.SubmissionResult) {
	run.AddResult(result)
	s.recorder.RecordBatchOutcome(ctx, result)
}
