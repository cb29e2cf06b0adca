// Package port defines the interfaces the run orchestrator depends on.
// Transport, prompting and reporting live behind them so the core can be
// exercised with in-memory fakes.
package port

import (
	"context"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// ExecutionSource fetches a completed preparation execution by id.
type ExecutionSource interface {
	FetchExecution(ctx context.Context, executionID string) (*model.PrepExecution, error)
}

// SamplePageSource returns one page of a project's samples.
// Pages are 1-indexed; an empty slice means there is nothing more to read.
type SamplePageSource interface {
	FetchSamplePage(ctx context.Context, projectID string, page, count int) ([]model.Sample, error)
}

// PipelineCatalog resolves a human version label such as "1.6" to the id used
// by the run endpoint.
type PipelineCatalog interface {
	ResolveVersionID(ctx context.Context, pipelineID, versionLabel string) (string, error)
}

// PipelineSubmitter starts one pipeline execution and returns its id.
type PipelineSubmitter interface {
	SubmitExecution(ctx context.Context, request *model.ExecutionRequest) (model.ID, error)
}

// ConfirmationGate asks the operator whether to proceed with live submission.
type ConfirmationGate interface {
	// Confirm returns true to proceed. prompt describes what is about to happen.
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// RunReportWriter persists the outcome of a run somewhere outside the process.
type RunReportWriter interface {
	WriteReport(ctx context.Context, run *model.RunExecution) error
}

// RunNotifier presents the outcome of a run to the operator.
type RunNotifier interface {
	NotifyRunSummary(ctx context.Context, run *model.RunExecution)
}
