package usecase

import (
	"go.uber.org/fx"
)

// Module provides the RunLauncher.
var Module = fx.Options(
	fx.Provide(NewRunLauncher),
)
