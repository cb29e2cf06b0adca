// Package report writes a record of a run to a local file or a GCS object.
// Objects ending in ".parquet" get one row per batch; anything else gets
// the JSON document.
package report

import (
	"bytes"
	"context"
	"strings"
	"time"

	"go.uber.org/fx"

	storage "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage"
	storageConfig "github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage/config"
	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/configbinder"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/serialization"
)

const moduleName = "report"

// SchemaVersion is bumped whenever the layout of Document changes.
const SchemaVersion = 1

// Summary counts batches by outcome.
type Summary struct {
	Recorded int `json:"recorded"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
	DryRun   int `json:"dry_run"`
}

// Document is the report layout.
type Document struct {
	SchemaVersion int                 `json:"schema_version"`
	GeneratedAt   time.Time           `json:"generated_at"`
	Summary       Summary             `json:"summary"`
	Run           *model.RunExecution `json:"run"`
}

// NewDocument builds the report for run.
func NewDocument(run *model.RunExecution) Document {
	return Document{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		Summary: Summary{
			Recorded: run.CountByStatus(model.BatchStatusRecorded),
			Failed:   run.CountByStatus(model.BatchStatusFailed),
			Skipped:  run.CountByStatus(model.BatchStatusSkipped),
			DryRun:   run.CountByStatus(model.BatchStatusDryRunReported),
		},
		Run: run,
	}
}

// Options are the report-specific keys of flow.report.options. The remaining
// keys configure the storage backend.
type Options struct {
	// Compression applies to parquet reports: SNAPPY (default), GZIP or NONE.
	Compression string `yaml:"compression"`
}

// WriterParams defines the dependencies of Writer.
type WriterParams struct {
	fx.In
	Report    *config.ReportConfig
	Providers []storage.StorageProvider `group:"storage_providers"`
}

// Writer uploads the report to the location named by flow.report.uri.
// An empty URI disables it.
type Writer struct {
	cfg       *config.ReportConfig
	providers map[string]storage.StorageProvider
}

// NewWriter creates a Writer.
func NewWriter(p WriterParams) *Writer {
	return &Writer{cfg: p.Report, providers: storage.ProviderMap(p.Providers)}
}

// WriteReport implements port.RunReportWriter.
func (w *Writer) WriteReport(ctx context.Context, run *model.RunExecution) error {
	if w.cfg == nil || w.cfg.URI == "" {
		return nil
	}
	loc, err := storage.ParseURI(w.cfg.URI)
	if err != nil {
		return exception.NewBatchError(moduleName, exception.KindConfiguration, "invalid report location", err)
	}
	provider, ok := w.providers[loc.Type]
	if !ok {
		return exception.NewBatchErrorf(moduleName, exception.KindConfiguration, "no storage provider registered for %q", loc.Type)
	}

	var sc storageConfig.StorageConfig
	if err := configbinder.BindProperties(w.cfg.Options, &sc); err != nil {
		return exception.NewBatchError(moduleName, exception.KindConfiguration, "invalid flow.report.options", err)
	}
	sc.Type = loc.Type
	if w.cfg.CredentialsFile != "" {
		sc.CredentialsFile = w.cfg.CredentialsFile
	}

	var opts Options
	if err := configbinder.BindProperties(w.cfg.Options, &opts); err != nil {
		return exception.NewBatchError(moduleName, exception.KindConfiguration, "invalid flow.report.options", err)
	}
	payload, contentType, err := encode(run, loc.Object, opts)
	if err != nil {
		return exception.NewBatchError(moduleName, exception.KindConfiguration, "failed to encode run report", err)
	}

	conn, err := provider.Open(ctx, sc)
	if err != nil {
		return exception.NewBatchError(moduleName, exception.KindTransport, "failed to open report storage", err)
	}
	defer conn.Close()

	if err := conn.Upload(ctx, loc.Bucket, loc.Object, bytes.NewReader(payload), contentType); err != nil {
		return exception.NewBatchError(moduleName, exception.KindTransport, "failed to upload run report", err)
	}
	logger.Infof("Run report written to %s", loc)
	return nil
}

func encode(run *model.RunExecution, object string, opts Options) ([]byte, string, error) {
	if strings.HasSuffix(strings.ToLower(object), ".parquet") {
		payload, err := encodeParquet(BatchRows(run), opts.Compression)
		return payload, "application/vnd.apache.parquet", err
	}
	payload, err := serialization.MarshalIndented(NewDocument(run))
	return payload, "application/json", err
}

var _ port.RunReportWriter = (*Writer)(nil)
