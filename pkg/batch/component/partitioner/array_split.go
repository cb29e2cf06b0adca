// Package partitioner splits the filtered sample list into contiguous batches
// and selects the batch range to submit.
package partitioner

import (
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

const moduleName = "partitioner"

// Partition splits samples into n contiguous batches whose sizes differ by at
// most one. The first len(samples) % n batches carry the extra sample.
// n below 1 is treated as 1. When n exceeds the number of samples the
// trailing batches are empty.
func Partition(samples []model.Sample, n int) []model.Batch {
	if n < 1 {
		n = 1
	}
	size, extra := len(samples)/n, len(samples)%n

	batches := make([]model.Batch, n)
	offset := 0
	for i := 0; i < n; i++ {
		count := size
		if i < extra {
			count++
		}
		batches[i] = model.Batch{
			Index:   i + 1,
			Total:   n,
			Samples: samples[offset : offset+count],
		}
		offset += count
	}
	logger.Infof("Prepared %d execution batch(es)", n)
	return batches
}

// SelectRange clamps the requested 1-based inclusive range to [1, total].
// Callers pass total for an unset end. A start beyond total is fatal. A range
// that is empty after clamping is returned as is and every batch is skipped.
func SelectRange(total, start, end int) (model.BatchRange, error) {
	if start < 1 {
		start = 1
	}
	if start > total {
		return model.BatchRange{}, exception.NewBatchErrorf(moduleName, exception.KindConfiguration,
			"Start batch %d exceeds total batches %d", start, total)
	}
	if end < 1 {
		end = 1
	}
	if end > total {
		end = total
	}
	if end < start {
		logger.Warnf("End batch %d is before start batch %d; no batches will be submitted", end, start)
	} else {
		logger.Infof("Will execute batches %d to %d (out of %d total batches)", start, end, total)
	}
	return model.BatchRange{Start: start, End: end}, nil
}
