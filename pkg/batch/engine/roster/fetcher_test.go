package roster_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
	"github.com/ulelab/flowAPIscripts/pkg/batch/engine/roster"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

type mockPageSource struct {
	mock.Mock
}

func (m *mockPageSource) FetchSamplePage(ctx context.Context, projectID string, page, count int) ([]model.Sample, error) {
	args := m.Called(ctx, projectID, page, count)
	samples, _ := args.Get(0).([]model.Sample)
	return samples, args.Error(1)
}

func samples(from, n int) []model.Sample {
	out := make([]model.Sample, n)
	for i := range out {
		out[i] = model.Sample{ID: fmt.Sprint(from + i), Name: fmt.Sprintf("s%d", from+i)}
	}
	return out
}

func TestFetchAllStopsOnShortPage(t *testing.T) {
	src := new(mockPageSource)
	src.On("FetchSamplePage", mock.Anything, "p1", 1, 100).Return(samples(0, 100), nil).Once()
	src.On("FetchSamplePage", mock.Anything, "p1", 2, 100).Return(samples(100, 100), nil).Once()
	src.On("FetchSamplePage", mock.Anything, "p1", 3, 100).Return(samples(200, 50), nil).Once()

	got, err := roster.NewFetcher(src, nil, 100).FetchAll(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, got, 250)
	for i, s := range got {
		assert.Equal(t, fmt.Sprint(i), s.ID)
	}
	src.AssertExpectations(t)
	src.AssertNumberOfCalls(t, "FetchSamplePage", 3)
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	src := new(mockPageSource)
	src.On("FetchSamplePage", mock.Anything, "p1", 1, 2).Return(samples(0, 2), nil).Once()
	src.On("FetchSamplePage", mock.Anything, "p1", 2, 2).Return([]model.Sample{}, nil).Once()

	got, err := roster.NewFetcher(src, nil, 2).FetchAll(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	src.AssertExpectations(t)
}

func TestFetchAllEmptyProject(t *testing.T) {
	src := new(mockPageSource)
	src.On("FetchSamplePage", mock.Anything, "p1", 1, 100).Return(nil, nil).Once()

	got, err := roster.NewFetcher(src, nil, 0).FetchAll(context.Background(), "p1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFetchAllFailsOnPageError(t *testing.T) {
	src := new(mockPageSource)
	src.On("FetchSamplePage", mock.Anything, "p1", 1, 100).Return(samples(0, 100), nil).Once()
	src.On("FetchSamplePage", mock.Anything, "p1", 2, 100).Return(nil, errors.New("boom")).Once()

	got, err := roster.NewFetcher(src, nil, 100).FetchAll(context.Background(), "p1")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, exception.KindTransport, exception.KindOf(err))
	assert.Contains(t, err.Error(), "failed to fetch page 2 of project p1: boom")
}
