package metrics

import (
	"go.uber.org/fx"
)

// Module provides the no-op tracer under the name "noopTracer". Backends in
// the infrastructure layer fall back to it when tracing export is disabled.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(NewNoOpTracer, fx.ResultTags(`name:"noopTracer"`)),
	),
)
