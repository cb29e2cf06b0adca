package config

import "go.uber.org/fx"

// Module exposes the sections of *Config that components depend on.
var Module = fx.Options(
	fx.Provide(
		func(cfg *Config) *LoggingConfig { return &cfg.Flow.System.Logging },
		func(cfg *Config) *APIConfig { return &cfg.Flow.API },
		func(cfg *Config) *TelemetryConfig { return &cfg.Flow.Telemetry },
		func(cfg *Config) *ReportConfig { return &cfg.Flow.Report },
	),
)
