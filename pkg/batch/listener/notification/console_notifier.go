// Package notification presents the outcome of a run to the operator.
package notification

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// ConsoleNotifier prints the list of submitted executions at the end of a run.
// Styling is dropped automatically when out is not a terminal.
type ConsoleNotifier struct {
	out     io.Writer
	title   lipgloss.Style
	url     lipgloss.Style
	failure lipgloss.Style
}

// NewConsoleNotifier creates a notifier writing to stdout.
func NewConsoleNotifier() *ConsoleNotifier {
	return NewConsoleNotifierTo(os.Stdout)
}

// NewConsoleNotifierTo creates a notifier writing to out.
func NewConsoleNotifierTo(out io.Writer) *ConsoleNotifier {
	r := lipgloss.NewRenderer(out)
	return &ConsoleNotifier{
		out:     out,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		url:     r.NewStyle().Foreground(lipgloss.Color("12")),
		failure: r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// NotifyRunSummary prints "Completed submission of N batches" followed by one
// URL per line. Dry runs and runs that never reached submission print nothing.
func (n *ConsoleNotifier) NotifyRunSummary(ctx context.Context, run *model.RunExecution) {
	if run.DryRun {
		return
	}
	if run.Status != model.RunStatusSummarized && run.SuccessCount() == 0 {
		return
	}

	fmt.Fprintln(n.out, n.title.Render(fmt.Sprintf("Completed submission of %d batches", run.SuccessCount())))
	for _, u := range run.ExecutionURLs() {
		fmt.Fprintln(n.out, n.url.Render(u))
	}
	for _, res := range run.Results {
		if res.Status == model.BatchStatusFailed && res.FailureReason != "" {
			fmt.Fprintln(n.out, n.failure.Render(fmt.Sprintf("Batch %d failed: %s", res.BatchIndex, res.FailureReason)))
		}
	}
}

var _ port.RunNotifier = (*ConsoleNotifier)(nil)
