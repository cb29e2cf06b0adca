// Package logging reports the end state of a run through the application logger.
package logging

import (
	"context"
	"time"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// LoggingRunListener logs one line with the final state and batch counts of a run.
type LoggingRunListener struct{}

// NewLoggingRunListener creates a LoggingRunListener.
func NewLoggingRunListener() *LoggingRunListener {
	return &LoggingRunListener{}
}

func (l *LoggingRunListener) NotifyRunSummary(ctx context.Context, run *model.RunExecution) {
	duration := time.Duration(0)
	if run.EndTime != nil {
		duration = run.EndTime.Sub(run.StartTime).Round(time.Millisecond)
	}
	logf := logger.Infof
	if run.Status != model.RunStatusSummarized {
		logf = logger.Warnf
	}
	logf("Run %s finished with status %s in %s: %d recorded, %d failed, %d skipped, %d dry-run",
		run.ID, run.Status, duration,
		run.CountByStatus(model.BatchStatusRecorded),
		run.CountByStatus(model.BatchStatusFailed),
		run.CountByStatus(model.BatchStatusSkipped),
		run.CountByStatus(model.BatchStatusDryRunReported),
	)
}

var _ port.RunNotifier = (*LoggingRunListener)(nil)
