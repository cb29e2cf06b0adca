// Package submission builds one execution request per batch and submits the
// in-range batches in order.
package submission

import (
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// DefaultPaired is the samplesheet pairing used when a pipeline does not set one.
const DefaultPaired = "both"

// BuildRequest assembles the run request for batch. Params and references are
// copied so the request does not share maps with the pipeline definition.
// Each sample becomes a row {sample: id, group: name, replicate: "1"}.
func BuildRequest(pipeline config.PipelineConfig, versionID string, references map[string]string, filesetID string, batch model.Batch) *model.ExecutionRequest {
	params := make(map[string]string, len(pipeline.Params))
	for k, v := range pipeline.Params {
		params[k] = v
	}
	dataParams := make(map[string]string, len(references))
	for k, v := range references {
		dataParams[k] = v
	}

	rows := make([]model.SampleRow, len(batch.Samples))
	for i, s := range batch.Samples {
		rows[i] = model.SampleRow{
			Sample: s.ID,
			Values: model.SampleRowValues{Group: s.Name, Replicate: "1"},
		}
	}

	paired := pipeline.Paired
	if paired == "" {
		paired = DefaultPaired
	}

	return &model.ExecutionRequest{
		PipelineVersionID: versionID,
		BatchIndex:        batch.Index,
		Params:            params,
		DataParams:        dataParams,
		CSVParams: model.CSVParams{
			Samplesheet: model.SampleSheet{Rows: rows, Paired: paired},
		},
		NextflowVersion: pipeline.NextflowVersion,
		Fileset:         filesetID,
	}
}
