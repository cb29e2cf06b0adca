// Package exception provides the error type shared by every flowrun component.
// Errors carry the module that raised them and a Kind that decides whether the
// run must stop or may continue with the next batch.
package exception

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrorKind classifies a failure for the top-level handler.
type ErrorKind int

const (
	// KindUnknown is used for errors that were not raised through this package.
	KindUnknown ErrorKind = iota
	// KindConfiguration covers bad flags, bad filter patterns and out-of-range batch indices.
	KindConfiguration
	// KindUpstreamData covers missing reference files, an empty fileset id or an empty roster.
	KindUpstreamData
	// KindTransport covers non-success HTTP responses and network failures during fetch or resolution.
	KindTransport
	// KindSubmission covers a single batch that could not be submitted. It is the only recoverable kind.
	KindSubmission
	// KindAborted marks an operator declining the confirmation prompt.
	KindAborted
)

// String returns a lower-case label used in logs and run reports.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUpstreamData:
		return "upstream_data"
	case KindTransport:
		return "transport"
	case KindSubmission:
		return "submission"
	case KindAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrAborted is returned when the operator declines to submit.
var ErrAborted = errors.New("submission aborted by operator")

// BatchError is the error type raised by flowrun components.
type BatchError struct {
	// Module indicates where the error occurred (e.g. "resolver", "roster", "submitter").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
	// Kind classifies the error.
	Kind ErrorKind
}

// NewBatchError creates a new BatchError.
func NewBatchError(module string, kind ErrorKind, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
	}
}

// NewBatchErrorf creates a BatchError with a formatted message. If the last
// argument is an error it is also kept as the wrapped cause.
func NewBatchErrorf(module string, kind ErrorKind, format string, args ...interface{}) *BatchError {
	var cause error
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			cause = err
		}
	}
	return NewBatchError(module, kind, fmt.Sprintf(format, args...), cause)
}

// Error renders "[module] message: cause".
func (e *BatchError) Error() string {
	if e.OriginalErr != nil && !strings.Contains(e.Message, e.OriginalErr.Error()) {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// Is reports aborted errors as ErrAborted so callers can use errors.Is.
func (e *BatchError) Is(target error) bool {
	return target == ErrAborted && e.Kind == KindAborted
}

// KindOf returns the Kind of the outermost BatchError in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, ErrAborted) {
		return KindAborted
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsRecoverable reports whether the run may continue after err.
func IsRecoverable(err error) bool {
	return KindOf(err) == KindSubmission
}

// IsAborted reports whether err means the operator declined to proceed.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// Append aggregates errors, mirroring multierror.Append but with a compact
// single-line-per-error format.
func Append(err error, errs ...error) *multierror.Error {
	merged := multierror.Append(err, errs...)
	merged.ErrorFormat = ListFormat
	return merged
}

// ListFormat renders aggregated errors as "N errors occurred: a; b; c".
func ListFormat(es []error) string {
	if len(es) == 1 {
		return es[0].Error()
	}
	parts := make([]string, len(es))
	for i, err := range es {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred: %s", len(es), strings.Join(parts, "; "))
}
