package main

import (
	"errors"
	"flag"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

func TestParseFlagsFull(t *testing.T) {
	opts, err := ParseFlags([]string{
		"--PID", "proj-1",
		"--filter", "sample_name=ctrl_*",
		"-n", "4",
		"--start-batch", "2",
		"--end-batch", "3",
		"--pipeline", "rnaseq",
		"--dry-run",
	}, io.Discard)
	require.NoError(t, err)

	req := opts.Request()
	assert.Equal(t, "proj-1", req.ProjectID)
	assert.Equal(t, "ctrl_*", req.Filter)
	assert.Equal(t, 4, req.NumChunks)
	assert.Equal(t, 2, req.StartBatch)
	require.NotNil(t, req.EndBatch)
	assert.Equal(t, 3, *req.EndBatch)
	assert.Equal(t, "rnaseq", req.Pipeline)
	assert.True(t, req.DryRun)
}

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := ParseFlags([]string{"--pid", "p"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, opts.StartBatch)
	assert.Nil(t, opts.EndBatch)
	assert.Equal(t, 0, opts.NumChunks)
	assert.Equal(t, ".env", opts.EnvFile)
	assert.Empty(t, opts.Filter)
}

func TestParseFlagsColonFilterKeepsPatternColons(t *testing.T) {
	opts, err := ParseFlags([]string{"--pid", "p", "--filter", "Sample_Name:^a:b$", "--match", "regex", "--num-chunks", "2"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "^a:b$", opts.Filter)
	assert.Equal(t, "regex", opts.Match)
	assert.Equal(t, 2, opts.NumChunks)
}

func TestParseFlagsExplicitEndBatch(t *testing.T) {
	for _, end := range []string{"0", "-2"} {
		opts, err := ParseFlags([]string{"--pid", "p", "--end-batch", end}, io.Discard)
		require.NoError(t, err)
		require.NotNil(t, opts.EndBatch, "end %s", end)
		assert.Equal(t, end, strconv.Itoa(*opts.EndBatch))
	}
}

func TestParseFlagsTwoTokenFilter(t *testing.T) {
	opts, err := ParseFlags([]string{"--pid", "p", "--filter", "sample_name", "*A", "-n", "3", "--dry-run"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "*A", opts.Filter)
	assert.Equal(t, 3, opts.NumChunks)
	assert.True(t, opts.DryRun)

	_, err = ParseFlags([]string{"--pid", "p", "--filter", "organism", "human"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only --filter sample_name=PATTERN is supported")
}

func TestParseFlagsClampsNumChunks(t *testing.T) {
	for _, args := range [][]string{{"-n", "-1"}, {"--num-chunks", "0"}} {
		opts, err := ParseFlags(append([]string{"--pid", "p"}, args...), io.Discard)
		require.NoError(t, err)
		assert.Equal(t, 1, opts.NumChunks, "%v", args)
	}
}

func TestParseFlagsErrors(t *testing.T) {
	cases := map[string][]string{
		"missing pid":      {"--dry-run"},
		"wrong filter key": {"--pid", "p", "--filter", "organism=human"},
		"no separator":     {"--pid", "p", "--filter", "sample_name"},
		"bad match":        {"--pid", "p", "--match", "fuzzy"},
		"extra args":       {"--pid", "p", "extra"},
		"unknown flag":     {"--pid", "p", "--bogus"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFlags(args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestParseFlagsWrongKeyMessage(t *testing.T) {
	_, err := ParseFlags([]string{"--pid", "p", "--filter", "organism=human"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only --filter sample_name=PATTERN is supported")
}

func TestParseFlagsHelp(t *testing.T) {
	_, err := ParseFlags([]string{"-h"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestApplyOverridesConfig(t *testing.T) {
	cfg := config.NewConfig()
	opts := &Options{Verbose: true, ReportURI: "gs://b/r.json", MetricsFile: "/tmp/m.prom"}
	opts.Apply(cfg)
	assert.Equal(t, "DEBUG", cfg.Flow.System.Logging.Level)
	assert.Equal(t, "gs://b/r.json", cfg.Flow.Report.URI)
	assert.Equal(t, "/tmp/m.prom", cfg.Flow.Telemetry.MetricsFile)

	opts = &Options{Verbose: true, LogLevel: "WARN"}
	opts.Apply(cfg)
	assert.Equal(t, "WARN", cfg.Flow.System.Logging.Level)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, exitCode(nil))
	assert.Equal(t, ExitOK, exitCode(exception.NewBatchError("step", exception.KindAborted, "Aborted by user.", exception.ErrAborted)))
	assert.Equal(t, ExitFailure, exitCode(exception.NewBatchError("resolver", exception.KindUpstreamData, "missing", nil)))
}
