package model

import (
	"fmt"
	"strings"
)

// Batch is a contiguous slice of the filtered sample list submitted as one execution.
type Batch struct {
	// Index is 1-based.
	Index int
	// Total is the number of batches the list was split into.
	Total   int
	Samples []Sample
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int {
	return len(b.Samples)
}

// Label renders "i/n" for log lines.
func (b Batch) Label() string {
	return fmt.Sprintf("%d/%d", b.Index, b.Total)
}

// BatchRange is an inclusive, 1-based range of batch indices selected for submission.
type BatchRange struct {
	Start int
	End   int
}

// Contains reports whether the 1-based index falls inside the range.
func (r BatchRange) Contains(index int) bool {
	return index >= r.Start && index <= r.End
}

// SampleRowValues are the per-sample columns of the samplesheet.
type SampleRowValues struct {
	Group     string `json:"group"`
	Replicate string `json:"replicate"`
}

// SampleRow is one samplesheet row.
type SampleRow struct {
	Sample string          `json:"sample"`
	Values SampleRowValues `json:"values"`
}

// SampleSheet is the csv parameter carrying one row per sample.
type SampleSheet struct {
	Rows   []SampleRow `json:"rows"`
	Paired string      `json:"paired"`
}

// CSVParams wraps the samplesheet the way the run endpoint expects it.
type CSVParams struct {
	Samplesheet SampleSheet `json:"samplesheet"`
}

// ExecutionRequest is the body posted to start one pipeline execution.
// A request is built per batch and not modified afterwards.
type ExecutionRequest struct {
	// PipelineVersionID selects the endpoint and is not part of the body.
	PipelineVersionID string            `json:"-"`
	BatchIndex        int               `json:"-"`
	Params            map[string]string `json:"params"`
	DataParams        map[string]string `json:"data_params"`
	CSVParams         CSVParams         `json:"csv_params"`
	Retries           *int              `json:"retries"`
	NextflowVersion   string            `json:"nextflow_version"`
	Fileset           string            `json:"fileset"`
	ResequenceSamples bool              `json:"resequence_samples"`
}

// SampleIDs returns the sample ids of the request's rows in order.
func (r *ExecutionRequest) SampleIDs() []string {
	ids := make([]string, len(r.CSVParams.Samplesheet.Rows))
	for i, row := range r.CSVParams.Samplesheet.Rows {
		ids[i] = row.Sample
	}
	return ids
}

// ExecutionURL renders the browser URL of a submitted execution from a template
// containing "{id}" and optionally "{app_url}".
func ExecutionURL(template, appURL string, id ID) string {
	url := strings.ReplaceAll(template, "{app_url}", strings.TrimRight(appURL, "/"))
	return strings.ReplaceAll(url, "{id}", id.String())
}
