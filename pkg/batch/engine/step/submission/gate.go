package submission

import (
	"context"
	"sync"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
)

// OnceGate asks the wrapped gate at most once and replays its answer.
type OnceGate struct {
	inner  port.ConfirmationGate
	once   sync.Once
	answer bool
	err    error
}

// NewOnceGate wraps inner.
func NewOnceGate(inner port.ConfirmationGate) *OnceGate {
	return &OnceGate{inner: inner}
}

// Confirm implements port.ConfirmationGate.
func (g *OnceGate) Confirm(ctx context.Context, prompt string) (bool, error) {
	g.once.Do(func() {
		g.answer, g.err = g.inner.Confirm(ctx, prompt)
	})
	return g.answer, g.err
}

var _ port.ConfirmationGate = (*OnceGate)(nil)
