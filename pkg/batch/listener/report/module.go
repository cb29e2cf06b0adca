package report

import (
	"go.uber.org/fx"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
)

// Module provides the report Writer as the run's RunReportWriter.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewWriter,
		fx.As(new(port.RunReportWriter)),
	)),
)
