package logging

import (
	"go.uber.org/fx"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
)

// Module provides the logging run listener to the run_notifiers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLoggingRunListener,
		fx.As(new(port.RunNotifier)),
		fx.ResultTags(`group:"run_notifiers"`),
	)),
)
