package notification

import (
	"go.uber.org/fx"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
)

// Module provides the console notifier to the run_notifiers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewConsoleNotifier,
		fx.As(new(port.RunNotifier)),
		fx.ResultTags(`group:"run_notifiers"`),
	)),
)
