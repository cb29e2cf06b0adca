package usecase_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	usecase "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/usecase"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	"github.com/ulelab/flowAPIscripts/pkg/batch/infrastructure/remote"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	testutil "github.com/ulelab/flowAPIscripts/pkg/batch/test"
)

func intPtr(v int) *int { return &v }

type capturingNotifier struct {
	runs []*model.RunExecution
}

func (n *capturingNotifier) NotifyRunSummary(ctx context.Context, run *model.RunExecution) {
	n.runs = append(n.runs, run)
}

type fixture struct {
	api      *testutil.FakeFlowAPI
	gate     *testutil.ScriptedGate
	notifier *capturingNotifier
	launcher *usecase.RunLauncher
	out      *bytes.Buffer
}

func newFixture(t *testing.T, samples int) *fixture {
	t.Helper()
	api := testutil.NewFakeFlowAPI(t)
	api.Samples["p1"] = testutil.NewTestSamples("s", samples, func(i int) string {
		if i%2 == 0 {
			return fmt.Sprintf("HEK_%dB", i)
		}
		return fmt.Sprintf("HEK_%dA", i)
	})
	api.Executions["538"] = testutil.NewTestPrepExecution()
	api.Versions["960"] = map[string]string{"1.5": "v15", "1.6": "v16"}

	cfg := config.NewConfig()
	cfg.Flow.API = *testutil.NewTestAPIConfig(api.URL())
	cfg.Flow.API.PageSize = 5
	cfg.Flow.Pipelines["clip"] = testutil.NewTestPipeline()

	client := remote.NewFlowClient(&cfg.Flow.API, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: api.Token}))
	gate := &testutil.ScriptedGate{Answer: true}
	notifier := &capturingNotifier{}
	launcher := usecase.NewRunLauncher(usecase.RunLauncherParams{
		Config:    cfg,
		Source:    client,
		Pages:     client,
		Catalog:   client,
		Submitter: client,
		Gate:      gate,
		Recorder:  metrics.NewNoOpMetricRecorder(),
		Tracer:    metrics.NewNoOpTracer(),
		Notifiers: []port.RunNotifier{notifier},
	})
	out := &bytes.Buffer{}
	launcher.SetOutput(out)
	return &fixture{api: api, gate: gate, notifier: notifier, launcher: launcher, out: out}
}

func TestLaunchSubmitsSelectedRange(t *testing.T) {
	f := newFixture(t, 12)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{
		ProjectID:  "p1",
		NumChunks:  4,
		StartBatch: 2,
		EndBatch:   intPtr(3),
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusSummarized, run.Status)
	assert.Equal(t, 12, run.TotalSamples)
	assert.Equal(t, 4, run.TotalBatches)
	assert.Equal(t, model.BatchRange{Start: 2, End: 3}, run.Range)
	assert.Equal(t, []int{1, 2, 3}, f.api.PageCalls)

	require.Equal(t, 2, f.api.SubmissionCount())
	first := f.api.Submissions[0]
	assert.Equal(t, "v16", first.VersionID)
	assert.Equal(t, "fs-1", first.Request.Fileset)
	assert.Equal(t, map[string]string{"fasta": "101", "star_index": "102"}, first.Request.DataParams)
	assert.Equal(t, []string{"s-4", "s-5", "s-6"}, first.Request.SampleIDs())
	assert.Equal(t, []string{"s-7", "s-8", "s-9"}, f.api.Submissions[1].Request.SampleIDs())

	assert.Equal(t, 1, f.gate.Calls)
	assert.Equal(t, 2, run.SuccessCount())
	assert.Contains(t, f.out.String(), "Filtered 12 samples:\n  s-1: HEK_1A\n")
	assert.Contains(t, f.out.String(), "Batch 2: https://app.example/executions/9001\n")
	assert.Contains(t, f.out.String(), "Batch 3: https://app.example/executions/9002\n")
	require.Len(t, f.notifier.runs, 1)
}

func TestLaunchAppliesFilter(t *testing.T) {
	f := newFixture(t, 6)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", Filter: "*A", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 3, run.Selected)
	assert.Equal(t, 1, run.CountByStatus(model.BatchStatusDryRunReported))
	assert.Zero(t, f.api.SubmissionCount())
	assert.Zero(t, f.gate.Calls)
}

func TestLaunchFailsOnInvalidPatternBeforeAnyRequest(t *testing.T) {
	f := newFixture(t, 3)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", Filter: "(", Match: "regex"})
	require.Error(t, err)
	assert.Equal(t, exception.KindConfiguration, exception.KindOf(err))
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Empty(t, f.api.PageCalls)
}

func TestLaunchFailsWhenNothingMatches(t *testing.T) {
	f := newFixture(t, 3)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", Filter: "nomatch*"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No samples selected after applying filter.")
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Zero(t, f.api.SubmissionCount())
}

func TestLaunchFailsOnMissingReferences(t *testing.T) {
	f := newFixture(t, 3)
	f.api.Executions["538"].ProcessExecutions = nil

	_, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1"})
	require.Error(t, err)
	assert.Equal(t, exception.KindUpstreamData, exception.KindOf(err))
	assert.Contains(t, err.Error(), "  - star_index: star")
	assert.Empty(t, f.api.PageCalls)
}

func TestLaunchFailsWithoutFileset(t *testing.T) {
	f := newFixture(t, 3)
	f.api.Executions["538"].Fileset = nil

	_, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Prep execution has no fileset id")
}

func TestLaunchStartBeyondTotal(t *testing.T) {
	f := newFixture(t, 4)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", NumChunks: 2, StartBatch: 3})
	require.Error(t, err)
	assert.Equal(t, exception.KindConfiguration, exception.KindOf(err))
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Zero(t, f.api.SubmissionCount())
}

func TestLaunchExplicitZeroEndSubmitsFirstBatch(t *testing.T) {
	f := newFixture(t, 4)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", NumChunks: 2, EndBatch: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, model.BatchRange{Start: 1, End: 1}, run.Range)
	require.Equal(t, 1, f.api.SubmissionCount())
	assert.Equal(t, []string{"s-1", "s-2"}, f.api.Submissions[0].Request.SampleIDs())
}

func TestLaunchEndBeforeStartSubmitsNothing(t *testing.T) {
	f := newFixture(t, 6)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", NumChunks: 3, StartBatch: 3, EndBatch: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusSummarized, run.Status)
	assert.Zero(t, f.api.SubmissionCount())
	assert.Zero(t, f.gate.Calls)
}

func TestLaunchDeclinedIsAborted(t *testing.T) {
	f := newFixture(t, 4)
	f.gate.Answer = false

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", NumChunks: 2})
	require.Error(t, err)
	assert.True(t, exception.IsAborted(err))
	assert.Equal(t, model.RunStatusAborted, run.Status)
	assert.Zero(t, f.api.SubmissionCount())
}

func TestLaunchContinuesPastFailedSubmission(t *testing.T) {
	f := newFixture(t, 6)
	f.api.FailSubmission[1] = true

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", NumChunks: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, f.api.SubmissionCount())
	assert.Equal(t, 2, run.SuccessCount())
	assert.Equal(t, 1, run.CountByStatus(model.BatchStatusFailed))
	assert.Contains(t, run.Results[0].FailureReason, "HTTP 500 error")
}

func TestLaunchUnknownPipeline(t *testing.T) {
	f := newFixture(t, 1)

	run, err := f.launcher.Launch(context.Background(), usecase.RunRequest{ProjectID: "p1", Pipeline: "chipseq"})
	require.Error(t, err)
	assert.Nil(t, run)
	assert.Contains(t, err.Error(), `unknown pipeline "chipseq" (available: clip)`)
}
