package main

import (
	"context"

	"go.uber.org/fx"

	"github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage/gcs"
	"github.com/ulelab/flowAPIscripts/pkg/batch/adapter/storage/local"
	port "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/port"
	usecase "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/usecase"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	metrics "github.com/ulelab/flowAPIscripts/pkg/batch/core/metrics"
	"github.com/ulelab/flowAPIscripts/pkg/batch/infrastructure/console"
	infraMetrics "github.com/ulelab/flowAPIscripts/pkg/batch/infrastructure/metrics"
	"github.com/ulelab/flowAPIscripts/pkg/batch/infrastructure/remote"
	batchlistener "github.com/ulelab/flowAPIscripts/pkg/batch/listener"
	logger "github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// consoleModule provides the interactive terminal as both the confirmation
// gate and the login prompt.
var consoleModule = fx.Options(
	fx.Provide(console.NewTerminal),
	fx.Provide(
		func(t *console.Terminal) port.ConfirmationGate { return t },
		func(t *console.Terminal) remote.CredentialPrompter { return t },
	),
)

// GetApplicationOptions builds the fx options for one run.
func GetApplicationOptions(appCtx context.Context, cfg *config.Config, req usecase.RunRequest, result *runResult) []fx.Option {
	var options []fx.Option

	options = append(options, fx.Supply(
		cfg,
		req,
		result,
		fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`)),
	))
	options = append(options, logger.Module)
	options = append(options, config.Module)
	options = append(options, metrics.Module)
	options = append(options, infraMetrics.Module)
	options = append(options, remote.Module)
	options = append(options, consoleModule)
	options = append(options, local.Module)
	options = append(options, gcs.Module)
	options = append(options, batchlistener.Module)
	options = append(options, usecase.Module)
	options = append(options, fx.Invoke(fx.Annotate(startRun, fx.ParamTags("", "", "", "", "", `name:"appCtx"`))))

	return options
}
