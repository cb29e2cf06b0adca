package logger

import "go.uber.org/fx"

// Module routes fx lifecycle events through this package's logger.
var Module = fx.Options(
	fx.WithLogger(NewFxLoggerAdapter),
)
