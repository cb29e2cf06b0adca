package remote

import (
	"go.uber.org/fx"

	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
)

// Module provides the Flow API client behind every port it implements.
// A CredentialPrompter must be supplied by the application.
var Module = fx.Options(
	fx.Provide(NewTokenSource),
	fx.Provide(NewFlowClient),
	fx.Provide(
		func(c *FlowClient) port.ExecutionSource { return c },
		func(c *FlowClient) port.SamplePageSource { return c },
		func(c *FlowClient) port.PipelineCatalog { return c },
		func(c *FlowClient) port.PipelineSubmitter { return c },
	),
)
