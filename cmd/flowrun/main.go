// Command flowrun splits the samples of a Flow project into batches and
// starts one pipeline execution per batch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "embed"

	"go.uber.org/fx"

	usecase "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/usecase"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/logger"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// embeddedConfig holds the built-in application.yaml.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// runResult carries the exit code out of the fx application.
type runResult struct {
	mu   sync.Mutex
	code int
}

func (r *runResult) set(code int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *runResult) get() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

// exitCode maps the outcome of Launch to a process exit code. Declining the
// confirmation is a normal exit.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch exception.KindOf(err) {
	case exception.KindAborted:
		return ExitOK
	default:
		return ExitFailure
	}
}

// startRun launches the run once the application has started and shuts the
// application down when it returns.
func startRun(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	launcher *usecase.RunLauncher,
	req usecase.RunRequest,
	result *runResult,
	appCtx context.Context,
) {
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				code := ExitFailure
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in run: %v", r)
					}
					result.set(code)
					if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				_, err := launcher.Launch(appCtx, req)
				if err != nil && !exception.IsAborted(err) {
					logger.Errorf("%v", err)
				}
				code = exitCode(err)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("run did not finish before shutdown: %w", ctx.Err())
			}
		},
	})
}

func run(args []string) int {
	opts, err := ParseFlags(args, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return ExitOK
	}
	if err != nil {
		logger.Errorf("%v", err)
		return ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(opts.EnvFile, embeddedConfig, opts.ConfigFile)
	if err != nil {
		logger.Errorf("Failed to load configuration: %v", err)
		return ExitFailure
	}
	opts.Apply(cfg)
	logger.SetLogLevel(cfg.Flow.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.Flow.System.Logging.Level)

	result := &runResult{code: ExitFailure}
	app := fx.New(GetApplicationOptions(ctx, cfg, opts.Request(), result)...)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return ExitFailure
	}

	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return ExitFailure
	}

	sig := <-app.Wait()
	if sig.Signal != nil {
		logger.Warnf("Received signal '%v'. Stopping the run...", sig.Signal)
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stop failed: %v", err)
		return ExitFailure
	}
	return result.get()
}

func main() {
	os.Exit(run(os.Args[1:]))
}
