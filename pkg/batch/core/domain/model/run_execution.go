package model

import (
	"fmt"
	"time"

	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// RunStatus is the state of a whole orchestrator run.
type RunStatus string

const (
	RunStatusInit        RunStatus = "INIT"
	RunStatusResolved    RunStatus = "RESOLVED"
	RunStatusFiltered    RunStatus = "FILTERED"
	RunStatusPartitioned RunStatus = "PARTITIONED"
	RunStatusSubmitting  RunStatus = "SUBMITTING"
	RunStatusSummarized  RunStatus = "SUMMARIZED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusAborted     RunStatus = "ABORTED"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// IsFinished checks if the RunStatus represents a finished state.
func (s RunStatus) IsFinished() bool {
	switch s {
	case RunStatusSummarized, RunStatusFailed, RunStatusAborted:
		return true
	default:
		return false
	}
}

// isValidRunTransition encodes INIT -> RESOLVED -> FILTERED -> PARTITIONED -> SUBMITTING -> SUMMARIZED.
// Any unfinished state may fail; only a run that reached partitioning can be aborted.
func isValidRunTransition(current, next RunStatus) bool {
	if current.IsFinished() {
		return false
	}
	if next == RunStatusFailed {
		return true
	}
	switch current {
	case RunStatusInit:
		return next == RunStatusResolved
	case RunStatusResolved:
		return next == RunStatusFiltered
	case RunStatusFiltered:
		return next == RunStatusPartitioned
	case RunStatusPartitioned:
		return next == RunStatusSubmitting || next == RunStatusAborted
	case RunStatusSubmitting:
		return next == RunStatusSummarized || next == RunStatusAborted
	default:
		return false
	}
}

// RunExecution holds the in-memory state of one orchestrator run.
// Nothing is persisted between runs.
type RunExecution struct {
	ID           string              `json:"id"`
	ProjectID    string              `json:"project_id"`
	Pipeline     string              `json:"pipeline"`
	DryRun       bool                `json:"dry_run"`
	Status       RunStatus           `json:"status"`
	TotalSamples int                 `json:"total_samples"`
	Selected     int                 `json:"selected_samples"`
	TotalBatches int                 `json:"total_batches"`
	Range        BatchRange          `json:"range"`
	Results      []*SubmissionResult `json:"results"`
	Failure      string              `json:"failure,omitempty"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      *time.Time          `json:"end_time,omitempty"`
}

// NewRunExecution creates a run in the INIT state.
func NewRunExecution(projectID, pipeline string, dryRun bool) *RunExecution {
	return &RunExecution{
		ID:        NewID(),
		ProjectID: projectID,
		Pipeline:  pipeline,
		DryRun:    dryRun,
		Status:    RunStatusInit,
		StartTime: time.Now(),
	}
}

// TransitionTo moves the run to newStatus if the transition is allowed.
func (r *RunExecution) TransitionTo(newStatus RunStatus) error {
	if !isValidRunTransition(r.Status, newStatus) {
		return fmt.Errorf("RunExecution (ID: %s): invalid state transition: %s -> %s", r.ID, r.Status, newStatus)
	}
	logger.Debugf("Run %s: %s -> %s", r.ID, r.Status, newStatus)
	r.Status = newStatus
	if newStatus.IsFinished() {
		now := time.Now()
		r.EndTime = &now
	}
	return nil
}

// MarkAsFailed moves the run to FAILED and records the cause.
func (r *RunExecution) MarkAsFailed(err error) {
	if terr := r.TransitionTo(RunStatusFailed); terr != nil {
		logger.Warnf("Could not mark run as FAILED: %v", terr)
		return
	}
	if err != nil {
		r.Failure = err.Error()
	}
}

// AddResult appends a batch outcome.
func (r *RunExecution) AddResult(result *SubmissionResult) {
	r.Results = append(r.Results, result)
}

// SuccessCount returns the number of batches with a recorded execution URL.
func (r *RunExecution) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Succeeded() {
			n++
		}
	}
	return n
}

// CountByStatus returns the number of batches in the given state.
func (r *RunExecution) CountByStatus(status BatchStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// ExecutionURLs returns the recorded URLs in batch order.
func (r *RunExecution) ExecutionURLs() []string {
	var urls []string
	for _, res := range r.Results {
		if res.Succeeded() {
			urls = append(urls, res.ExecutionURL)
		}
	}
	return urls
}
