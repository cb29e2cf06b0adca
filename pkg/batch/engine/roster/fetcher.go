// Package roster reads a project's complete sample list page by page.
package roster

import (
	"context"
	"time"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "roster"

// DefaultPageSize is used when the fetcher is built with a non-positive page size.
const DefaultPageSize = 100

// Fetcher accumulates every sample of a project in server order.
type Fetcher struct {
	source   port.SamplePageSource
	recorder metrics.MetricRecorder
	pageSize int
}

// NewFetcher creates a Fetcher. recorder may be nil.
func NewFetcher(source port.SamplePageSource, recorder metrics.MetricRecorder, pageSize int) *Fetcher {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &Fetcher{source: source, recorder: recorder, pageSize: pageSize}
}

// FetchAll requests pages 1, 2, ... until a page comes back empty or shorter
// than the page size. A short page is assumed to be the last one; a server
// that under-fills a page mid-listing will be under-read. Any page error
// aborts the fetch.
func (f *Fetcher) FetchAll(ctx context.Context, projectID string) ([]model.Sample, error) {
	var all []model.Sample
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, exception.NewBatchError(moduleName, exception.KindTransport, "roster fetch cancelled", err)
		}

		start := time.Now()
		samples, err := f.source.FetchSamplePage(ctx, projectID, page, f.pageSize)
		f.recorder.RecordPageFetch(ctx, projectID, page, len(samples), time.Since(start))
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, exception.KindTransport, "failed to fetch page %d of project %s: %v", page, projectID, err)
		}

		all = append(all, samples...)
		if len(samples) == 0 {
			break
		}
		if len(samples) < f.pageSize {
			logger.Debugf("Page %d returned %d < %d samples; treating it as the last page", page, len(samples), f.pageSize)
			break
		}
	}
	logger.Infof("Fetched %d samples from project %s", len(all), projectID)
	return all, nil
}
