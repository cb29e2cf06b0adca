package model

import (
	"fmt"
	"time"
)

// BatchStatus is the lifecycle state of a single batch within a run.
type BatchStatus string

const (
	BatchStatusBuilt          BatchStatus = "BUILT"
	BatchStatusDryRunReported BatchStatus = "DRY_RUN_REPORTED"
	BatchStatusConfirmed      BatchStatus = "CONFIRMED"
	BatchStatusSubmitted      BatchStatus = "SUBMITTED"
	BatchStatusRecorded       BatchStatus = "RECORDED"
	BatchStatusFailed         BatchStatus = "FAILED"
	BatchStatusSkipped        BatchStatus = "SKIPPED"
)

// IsFinished reports whether no further transition is possible.
func (s BatchStatus) IsFinished() bool {
	switch s {
	case BatchStatusDryRunReported, BatchStatusRecorded, BatchStatusFailed, BatchStatusSkipped:
		return true
	default:
		return false
	}
}

func isValidBatchTransition(current, next BatchStatus) bool {
	switch current {
	case "":
		return next == BatchStatusBuilt || next == BatchStatusSkipped
	case BatchStatusBuilt:
		return next == BatchStatusDryRunReported || next == BatchStatusConfirmed || next == BatchStatusFailed
	case BatchStatusConfirmed:
		return next == BatchStatusSubmitted || next == BatchStatusFailed
	case BatchStatusSubmitted:
		return next == BatchStatusRecorded || next == BatchStatusFailed
	default:
		return false
	}
}

// SubmissionResult is the outcome of one batch.
type SubmissionResult struct {
	BatchIndex    int         `json:"batch_index"`
	SampleCount   int         `json:"sample_count"`
	SampleIDs     []string    `json:"sample_ids,omitempty"`
	Status        BatchStatus `json:"status"`
	ExecutionID   string      `json:"execution_id,omitempty"`
	ExecutionURL  string      `json:"execution_url,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
	FinishedAt    time.Time   `json:"finished_at"`
}

// NewSubmissionResult starts tracking the given batch.
func NewSubmissionResult(batch Batch) *SubmissionResult {
	return &SubmissionResult{
		BatchIndex:  batch.Index,
		SampleCount: batch.Size(),
		SampleIDs:   SampleIDs(batch.Samples),
	}
}

// TransitionTo moves the batch to the next state if the transition is allowed.
func (r *SubmissionResult) TransitionTo(next BatchStatus) error {
	if !isValidBatchTransition(r.Status, next) {
		return fmt.Errorf("batch %d: invalid state transition: %q -> %s", r.BatchIndex, r.Status, next)
	}
	r.Status = next
	if next.IsFinished() {
		r.FinishedAt = time.Now()
	}
	return nil
}

// MarkAsFailed records the failure reason and moves the batch to FAILED.
func (r *SubmissionResult) MarkAsFailed(err error) {
	if r.Status.IsFinished() {
		return
	}
	if err != nil {
		r.FailureReason = err.Error()
	}
	r.Status = BatchStatusFailed
	r.FinishedAt = time.Now()
}

// Succeeded reports whether an execution URL was recorded for the batch.
func (r *SubmissionResult) Succeeded() bool {
	return r.Status == BatchStatusRecorded
}
