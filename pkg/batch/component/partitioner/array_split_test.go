package partitioner_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulelab/flowAPIscripts/pkg/batch/component/partitioner"
	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

func samples(n int) []model.Sample {
	out := make([]model.Sample, n)
	for i := range out {
		out[i] = model.Sample{ID: fmt.Sprint(i), Name: fmt.Sprintf("s%d", i)}
	}
	return out
}

func sizes(batches []model.Batch) []int {
	out := make([]int, len(batches))
	for i, b := range batches {
		out[i] = b.Size()
	}
	return out
}

func TestPartitionLargerBatchesFirst(t *testing.T) {
	batches := partitioner.Partition(samples(10), 3)
	assert.Equal(t, []int{4, 3, 3}, sizes(batches))
	assert.Equal(t, 1, batches[0].Index)
	assert.Equal(t, 3, batches[2].Total)
}

func TestPartitionPreservesOrderAndCoverage(t *testing.T) {
	in := samples(17)
	batches := partitioner.Partition(in, 5)

	var flat []model.Sample
	for _, b := range batches {
		flat = append(flat, b.Samples...)
	}
	assert.Equal(t, in, flat)
	assert.Equal(t, []int{4, 4, 3, 3, 3}, sizes(batches))
}

func TestPartitionSingletons(t *testing.T) {
	assert.Equal(t, []int{1, 1, 1, 1, 1}, sizes(partitioner.Partition(samples(5), 5)))
}

func TestPartitionClampsN(t *testing.T) {
	batches := partitioner.Partition(samples(3), 0)
	require.Len(t, batches, 1)
	assert.Equal(t, 3, batches[0].Size())
}

func TestPartitionMoreBatchesThanSamples(t *testing.T) {
	assert.Equal(t, []int{1, 1, 0, 0}, sizes(partitioner.Partition(samples(2), 4)))
}

func TestSelectRange(t *testing.T) {
	cases := []struct {
		start, end int
		want       model.BatchRange
	}{
		{0, 4, model.BatchRange{Start: 1, End: 4}},
		{2, 3, model.BatchRange{Start: 2, End: 3}},
		{-5, 99, model.BatchRange{Start: 1, End: 4}},
		{4, 4, model.BatchRange{Start: 4, End: 4}},
		{1, 0, model.BatchRange{Start: 1, End: 1}},
		{1, -1, model.BatchRange{Start: 1, End: 1}},
	}
	for _, c := range cases {
		got, err := partitioner.SelectRange(4, c.start, c.end)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestSelectRangeStartBeyondTotal(t *testing.T) {
	_, err := partitioner.SelectRange(4, 5, 4)
	require.Error(t, err)
	assert.Equal(t, exception.KindConfiguration, exception.KindOf(err))
	assert.Contains(t, err.Error(), "Start batch 5 exceeds total batches 4")
}

func TestSelectRangeEndBeforeStartIsEmpty(t *testing.T) {
	for _, end := range []int{2, 0, -3} {
		got, err := partitioner.SelectRange(4, 3, end)
		require.NoError(t, err)
		for i := 1; i <= 4; i++ {
			assert.False(t, got.Contains(i), "end %d: batch %d", end, i)
		}
	}
}
