// Package test holds fixtures shared by the package tests: model factories,
// an in-process Flow API and scripted operator input.
package test

import (
	"fmt"

	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// NewTestSamples creates n samples with ids "<prefix>-1".. and names from nameFn.
// A nil nameFn names samples "S1", "S2", ...
func NewTestSamples(prefix string, n int, nameFn func(i int) string) []model.Sample {
	if nameFn == nil {
		nameFn = func(i int) string { return fmt.Sprintf("S%d", i) }
	}
	out := make([]model.Sample, n)
	for i := range out {
		out[i] = model.Sample{ID: fmt.Sprintf("%s-%d", prefix, i+1), Name: nameFn(i + 1)}
	}
	return out
}

// NewTestPipeline returns a small pipeline definition with two reference files.
func NewTestPipeline() config.PipelineConfig {
	return config.PipelineConfig{
		Name:            "CLIP-Seq",
		PipelineID:      "960",
		Version:         "1.6",
		NextflowVersion: "24.04.4",
		PrepExecutionID: "538",
		FilterMode:      config.FilterModeGlob,
		Paired:          "both",
		Params: map[string]string{
			"skip_umi_dedupe":    "false",
			"crosslink_position": "start",
		},
		ReferenceFiles: []config.ReferenceFile{
			{Param: "fasta", Filename: "genome.fa"},
			{Param: "star_index", Filename: "star"},
		},
	}
}

// NewTestPrepExecution returns an execution that satisfies NewTestPipeline's
// reference files, with fileset "fs-1".
func NewTestPrepExecution() *model.PrepExecution {
	return &model.PrepExecution{
		ID: "538",
		DataParams: []model.DataParam{
			{Name: "fasta", Files: []model.FileRecord{{ID: "101", Filename: "genome.fa"}}},
		},
		ProcessExecutions: []model.ProcessExecution{
			{ID: "7", Name: "STAR_GENOMEGENERATE", DownstreamData: []model.FileRecord{{ID: "102", Filename: "star"}}},
		},
		Fileset: &model.Fileset{ID: "fs-1"},
	}
}

// NewTestAPIConfig returns API settings pointing at baseURL.
func NewTestAPIConfig(baseURL string) *config.APIConfig {
	api := config.NewConfig().Flow.API
	api.BaseURL = baseURL
	api.AppURL = "https://app.example"
	api.Token = "test-token"
	return &api
}
