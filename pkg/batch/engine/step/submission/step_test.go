package submission_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulelab/flowAPIscripts/pkg/batch/component/partitioner"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/step/submission"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	testutil "github.com/ulelab/flowAPIscripts/pkg/batch/test"
)

func plan(r model.BatchRange, dryRun bool) submission.Plan {
	return submission.Plan{
		Pipeline:   testutil.NewTestPipeline(),
		VersionID:  "v16",
		References: map[string]string{"fasta": "101", "star_index": "102"},
		FilesetID:  "fs-1",
		Range:      r,
		DryRun:     dryRun,
	}
}

func newRun() *model.RunExecution {
	return model.NewRunExecution("p1", "clip", false)
}

func TestBuildRequest(t *testing.T) {
	pipeline := testutil.NewTestPipeline()
	batch := model.Batch{Index: 2, Total: 3, Samples: testutil.NewTestSamples("s", 2, nil)}
	refs := map[string]string{"fasta": "101"}

	req := submission.BuildRequest(pipeline, "v16", refs, "fs-1", batch)

	assert.Equal(t, "v16", req.PipelineVersionID)
	assert.Equal(t, 2, req.BatchIndex)
	assert.Equal(t, "fs-1", req.Fileset)
	assert.Equal(t, "24.04.4", req.NextflowVersion)
	assert.Nil(t, req.Retries)
	assert.False(t, req.ResequenceSamples)
	assert.Equal(t, pipeline.Params, req.Params)
	assert.Equal(t, refs, req.DataParams)
	assert.Equal(t, []model.SampleRow{
		{Sample: "s-1", Values: model.SampleRowValues{Group: "S1", Replicate: "1"}},
		{Sample: "s-2", Values: model.SampleRowValues{Group: "S2", Replicate: "1"}},
	}, req.CSVParams.Samplesheet.Rows)
	assert.Equal(t, "both", req.CSVParams.Samplesheet.Paired)

	// The request owns its maps.
	refs["fasta"] = "changed"
	pipeline.Params["skip_umi_dedupe"] = "true"
	assert.Equal(t, "101", req.DataParams["fasta"])
	assert.Equal(t, "false", req.Params["skip_umi_dedupe"])
}

func TestBuildRequestDefaultsPaired(t *testing.T) {
	pipeline := testutil.NewTestPipeline()
	pipeline.Paired = ""
	req := submission.BuildRequest(pipeline, "v", nil, "fs", model.Batch{Index: 1, Total: 1})
	assert.Equal(t, submission.DefaultPaired, req.CSVParams.Samplesheet.Paired)
}

func TestDryRunNeverSubmitsOrPrompts(t *testing.T) {
	submitter := &testutil.RecordingSubmitter{}
	gate := &testutil.ScriptedGate{Answer: true}
	batches := partitioner.Partition(testutil.NewTestSamples("s", 12, nil), 4)
	run := newRun()

	step := submission.NewStep(submitter, gate, testutil.NewTestAPIConfig("http://unused"), submission.WithOutput(&bytes.Buffer{}))
	err := step.Execute(context.Background(), run, batches, plan(model.BatchRange{Start: 1, End: 4}, true))

	require.NoError(t, err)
	assert.Zero(t, submitter.Count())
	assert.Zero(t, gate.Calls)
	assert.Equal(t, 4, run.CountByStatus(model.BatchStatusDryRunReported))
}

func TestOutOfRangeBatchesAreSkipped(t *testing.T) {
	submitter := &testutil.RecordingSubmitter{}
	gate := &testutil.ScriptedGate{Answer: true}
	batches := partitioner.Partition(testutil.NewTestSamples("s", 12, nil), 4)
	run := newRun()
	var out bytes.Buffer

	step := submission.NewStep(submitter, gate, testutil.NewTestAPIConfig("http://unused"), submission.WithOutput(&out))
	require.NoError(t, step.Execute(context.Background(), run, batches, plan(model.BatchRange{Start: 2, End: 3}, false)))

	require.Equal(t, 2, submitter.Count())
	assert.Equal(t, 2, submitter.Requests[0].BatchIndex)
	assert.Equal(t, 3, submitter.Requests[1].BatchIndex)
	assert.Equal(t, 2, run.CountByStatus(model.BatchStatusSkipped))
	assert.Equal(t, 2, run.SuccessCount())
	assert.Equal(t, "Batch 2: https://app.example/executions/exec-2\nBatch 3: https://app.example/executions/exec-3\n", out.String())
	assert.Equal(t, 1, gate.Calls, "confirmation is asked once even when the range starts past batch 1")
}

func TestSubmissionFailureDoesNotStopTheLoop(t *testing.T) {
	submitter := &testutil.RecordingSubmitter{FailBatches: map[int]bool{2: true}}
	gate := &testutil.ScriptedGate{Answer: true}
	batches := partitioner.Partition(testutil.NewTestSamples("s", 9, nil), 3)
	run := newRun()

	step := submission.NewStep(submitter, gate, testutil.NewTestAPIConfig("http://unused"), submission.WithOutput(&bytes.Buffer{}))
	require.NoError(t, step.Execute(context.Background(), run, batches, plan(model.BatchRange{Start: 1, End: 3}, false)))

	assert.Equal(t, 3, submitter.Count())
	assert.Equal(t, 2, run.SuccessCount())
	require.Len(t, run.Results, 3)
	assert.Equal(t, model.BatchStatusFailed, run.Results[1].Status)
	assert.Contains(t, run.Results[1].FailureReason, "batch 2 rejected")
	assert.Equal(t, []string{
		"https://app.example/executions/exec-1",
		"https://app.example/executions/exec-3",
	}, run.ExecutionURLs())
}

func TestDeclinedConfirmationAborts(t *testing.T) {
	submitter := &testutil.RecordingSubmitter{}
	gate := &testutil.ScriptedGate{Answer: false}
	batches := partitioner.Partition(testutil.NewTestSamples("s", 4, nil), 2)
	run := newRun()

	step := submission.NewStep(submitter, gate, testutil.NewTestAPIConfig("http://unused"), submission.WithOutput(&bytes.Buffer{}))
	err := step.Execute(context.Background(), run, batches, plan(model.BatchRange{Start: 1, End: 2}, false))

	require.Error(t, err)
	assert.True(t, exception.IsAborted(err))
	assert.Zero(t, submitter.Count())
	assert.Equal(t, 1, gate.Calls)
}

func TestConfirmationReadErrorIsFatal(t *testing.T) {
	gate := &testutil.ScriptedGate{Err: errors.New("stdin closed")}
	batches := partitioner.Partition(testutil.NewTestSamples("s", 2, nil), 1)

	step := submission.NewStep(&testutil.RecordingSubmitter{}, gate, testutil.NewTestAPIConfig("http://unused"))
	err := step.Execute(context.Background(), newRun(), batches, plan(model.BatchRange{Start: 1, End: 1}, false))

	require.Error(t, err)
	assert.False(t, exception.IsAborted(err))
	assert.False(t, exception.IsRecoverable(err))
}

func TestCancelledContextStopsTheLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	submitter := &testutil.RecordingSubmitter{}
	batches := partitioner.Partition(testutil.NewTestSamples("s", 2, nil), 2)

	step := submission.NewStep(submitter, &testutil.ScriptedGate{Answer: true}, testutil.NewTestAPIConfig("http://unused"))
	err := step.Execute(ctx, newRun(), batches, plan(model.BatchRange{Start: 1, End: 2}, false))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, submitter.Count())
}

func TestOnceGateAsksOnce(t *testing.T) {
	inner := &testutil.ScriptedGate{Answer: true}
	gate := submission.NewOnceGate(inner)

	for i := 0; i < 3; i++ {
		ok, err := gate.Confirm(context.Background(), "Submit?")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, inner.Calls)
}
