// Package listener aggregates the components that react to a finished run.
package listener

import (
	"go.uber.org/fx"

	"github.com/ulelab/flowAPIscripts/pkg/batch/listener/logging"
	"github.com/ulelab/flowAPIscripts/pkg/batch/listener/notification"
	"github.com/ulelab/flowAPIscripts/pkg/batch/listener/report"
)

// Module aggregates all run listener modules.
var Module = fx.Options(
	logging.Module,
	notification.Module,
	report.Module,
)
