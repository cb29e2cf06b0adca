package exception_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

func TestBatchErrorFormatting(t *testing.T) {
	cause := errors.New("connection reset")
	err := exception.NewBatchError("roster", exception.KindTransport, "failed to fetch page 2", cause)

	assert.Equal(t, "[roster] failed to fetch page 2: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, exception.KindTransport, exception.KindOf(fmt.Errorf("wrapped: %w", err)))
}

func TestNewBatchErrorfKeepsTrailingCause(t *testing.T) {
	cause := errors.New("boom")
	err := exception.NewBatchErrorf("submitter", exception.KindSubmission, "batch %d failed: %v", 3, cause)

	assert.Equal(t, "[submitter] batch 3 failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, exception.IsRecoverable(err))
}

func TestAbortedSentinel(t *testing.T) {
	err := exception.NewBatchError("submitter", exception.KindAborted, "operator declined", nil)

	assert.True(t, exception.IsAborted(err))
	assert.True(t, exception.IsAborted(exception.ErrAborted))
	assert.False(t, exception.IsRecoverable(err))
	assert.Equal(t, exception.KindAborted, exception.KindOf(exception.ErrAborted))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, exception.KindUnknown, exception.KindOf(errors.New("plain")))
	assert.Equal(t, exception.KindUnknown, exception.KindOf(nil))
}

func TestAppendListFormat(t *testing.T) {
	var merged error = exception.Append(nil, errors.New("a"), errors.New("b"))
	assert.Equal(t, "2 errors occurred: a; b", merged.Error())

	single := exception.Append(nil, errors.New("only"))
	assert.Equal(t, "only", single.Error())
}
