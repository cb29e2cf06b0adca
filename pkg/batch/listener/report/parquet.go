package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// BatchRow is one batch of a run, flattened for the parquet report.
type BatchRow struct {
	RunID         string `parquet:"name=run_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	ProjectID     string `parquet:"name=project_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Pipeline      string `parquet:"name=pipeline,type=BYTE_ARRAY,convertedtype=UTF8"`
	BatchIndex    int32  `parquet:"name=batch_index,type=INT32"`
	SampleCount   int32  `parquet:"name=sample_count,type=INT32"`
	SampleIDs     string `parquet:"name=sample_ids,type=BYTE_ARRAY,convertedtype=UTF8"`
	Status        string `parquet:"name=status,type=BYTE_ARRAY,convertedtype=UTF8"`
	ExecutionID   string `parquet:"name=execution_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	ExecutionURL  string `parquet:"name=execution_url,type=BYTE_ARRAY,convertedtype=UTF8"`
	FailureReason string `parquet:"name=failure_reason,type=BYTE_ARRAY,convertedtype=UTF8"`
	FinishedAt    int64  `parquet:"name=finished_at,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
}

// BatchRows flattens the results of run in batch order.
func BatchRows(run *model.RunExecution) []BatchRow {
	rows := make([]BatchRow, 0, len(run.Results))
	for _, res := range run.Results {
		row := BatchRow{
			RunID:         run.ID,
			ProjectID:     run.ProjectID,
			Pipeline:      run.Pipeline,
			BatchIndex:    int32(res.BatchIndex),
			SampleCount:   int32(res.SampleCount),
			SampleIDs:     strings.Join(res.SampleIDs, ","),
			Status:        string(res.Status),
			ExecutionID:   res.ExecutionID,
			ExecutionURL:  res.ExecutionURL,
			FailureReason: res.FailureReason,
		}
		if !res.FinishedAt.IsZero() {
			row.FinishedAt = res.FinishedAt.UnixMilli()
		}
		rows = append(rows, row)
	}
	return rows
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", name)
	}
}

// encodeParquet writes rows as a single parquet file.
func encodeParquet(rows []BatchRow, compression string) (out []byte, err error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(BatchRow), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = codec
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write batch %d: %w", row.BatchIndex, err)
		}
	}

	// WriteStop can panic on schema mismatches.
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return buf.Bytes(), nil
}
