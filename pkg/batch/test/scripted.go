package test

import (
	"context"
	"fmt"
	"sync"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

// ScriptedGate answers every confirmation with Answer and counts the prompts.
type ScriptedGate struct {
	Answer bool
	Err    error

	mu    sync.Mutex
	Calls int
}

// Confirm implements port.ConfirmationGate.
func (g *ScriptedGate) Confirm(ctx context.Context, prompt string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	return g.Answer, g.Err
}

// RecordingSubmitter accepts submissions in memory. Batches listed in FailBatches
// fail with a submission error.
type RecordingSubmitter struct {
	FailBatches map[int]bool

	mu       sync.Mutex
	Requests []*model.ExecutionRequest
}

// SubmitExecution implements port.PipelineSubmitter.
func (s *RecordingSubmitter) SubmitExecution(ctx context.Context, request *model.ExecutionRequest) (model.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, request)
	if s.FailBatches[request.BatchIndex] {
		return "", exception.NewBatchErrorf("fake_submitter", exception.KindSubmission, "HTTP 500 error: batch %d rejected", request.BatchIndex)
	}
	return model.ID(fmt.Sprintf("exec-%d", request.BatchIndex)), nil
}

// Count returns the number of submissions received.
func (s *RecordingSubmitter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}

var (
	_ port.ConfirmationGate  = (*ScriptedGate)(nil)
	_ port.PipelineSubmitter = (*RecordingSubmitter)(nil)
)
