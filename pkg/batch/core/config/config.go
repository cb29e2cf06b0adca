// Package config holds flowrun's configuration: API endpoints, logging,
// telemetry, the run report sink and the table of named pipelines.
package config

import (
	"fmt"
	"sort"
	"strings"

	model "github.com/ulelab/flowAPIscripts/pkg/batch/core/domain/model"
)

// EmbeddedConfig holds the content of the application.yaml compiled into the binary.
type EmbeddedConfig []byte

// Filter modes supported by pipeline definitions.
const (
	FilterModeGlob  = "glob"
	FilterModeRegex = "regex"
)

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig describes how to reach the Flow API.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	// AppURL is the browser-facing host used to render execution links.
	AppURL string `yaml:"app_url"`
	// ExecutionURLTemplate may reference {app_url} and {id}.
	ExecutionURLTemplate  string `yaml:"execution_url_template"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	SubmitTimeoutSeconds  int    `yaml:"submit_timeout_seconds"`
	PageSize              int    `yaml:"page_size"`
	// Token skips the interactive login when set.
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

// RunConfig holds defaults for a run that flags may override.
type RunConfig struct {
	Pipeline   string `yaml:"pipeline"`
	NumChunks  int    `yaml:"num_chunks"`
	DisplayCap int    `yaml:"display_cap"`
}

// TelemetryConfig controls metrics and tracing export.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name"`
	// MetricsFile receives a Prometheus text exposition at the end of the run.
	MetricsFile string `yaml:"metrics_file"`
	// OTLPEndpoint enables OTLP trace and metric export when set.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// OTLPProtocol is "http" (default) or "grpc".
	OTLPProtocol string `yaml:"otlp_protocol"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// ReportConfig selects where the JSON run report is written.
type ReportConfig struct {
	// URI is a local path or gs://bucket/object. Empty disables the report.
	URI             string `yaml:"uri"`
	CredentialsFile string `yaml:"credentials_file"`
	// Options are passed to the storage backend (e.g. base_dir for local reports).
	Options map[string]interface{} `yaml:"options"`
}

// ReferenceFile maps a logical parameter to an expected filename.
type ReferenceFile struct {
	Param    string `yaml:"param"`
	Filename string `yaml:"filename"`
}

// PipelineConfig is one named, versioned pipeline definition.
type PipelineConfig struct {
	Name       string `yaml:"name"`
	PipelineID string `yaml:"pipeline_id"`
	Version    string `yaml:"version"`
	// VersionID skips the version lookup when set.
	VersionID       string `yaml:"version_id"`
	NextflowVersion string `yaml:"nextflow_version"`
	PrepExecutionID string `yaml:"prep_execution_id"`
	FilterMode      string `yaml:"filter_mode"`
	Paired          string `yaml:"paired"`
	// Params are copied verbatim into every request.
	Params         map[string]string `yaml:"params"`
	ReferenceFiles []ReferenceFile   `yaml:"reference_files"`
}

// FileMap converts the reference file list into the resolver's table, keeping order.
func (p PipelineConfig) FileMap() model.ReferenceFileMap {
	m := make(model.ReferenceFileMap, len(p.ReferenceFiles))
	for i, rf := range p.ReferenceFiles {
		m[i] = model.ReferenceFile{Param: rf.Param, Filename: rf.Filename}
	}
	return m
}

// FlowConfig is the root of all flowrun settings.
type FlowConfig struct {
	System    SystemConfig              `yaml:"system"`
	API       APIConfig                 `yaml:"api"`
	Run       RunConfig                 `yaml:"run"`
	Telemetry TelemetryConfig           `yaml:"telemetry"`
	Report    ReportConfig              `yaml:"report"`
	Pipelines map[string]PipelineConfig `yaml:"pipelines"`
}

// Config is the root configuration document.
type Config struct {
	Flow FlowConfig `yaml:"flow"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Flow: FlowConfig{
			System: SystemConfig{Logging: LoggingConfig{Level: "INFO"}},
			API: APIConfig{
				BaseURL:               "https://api.flow.bio",
				AppURL:                "https://app.flow.bio",
				ExecutionURLTemplate:  "{app_url}/executions/{id}",
				RequestTimeoutSeconds: 30,
				SubmitTimeoutSeconds:  60,
				PageSize:              100,
			},
			Run: RunConfig{
				Pipeline:   "clip",
				NumChunks:  1,
				DisplayCap: 10,
			},
			Telemetry: TelemetryConfig{
				ServiceName:  "flowrun",
				OTLPProtocol: "http",
			},
			Pipelines: map[string]PipelineConfig{},
		},
	}
}

// Pipeline returns the pipeline registered under key.
func (c *Config) Pipeline(key string) (PipelineConfig, error) {
	p, ok := c.Flow.Pipelines[key]
	if !ok {
		return PipelineConfig{}, fmt.Errorf("unknown pipeline %q (available: %s)", key, strings.Join(c.PipelineKeys(), ", "))
	}
	return p, nil
}

// PipelineKeys returns the registered pipeline keys in sorted order.
func (c *Config) PipelineKeys() []string {
	keys := make([]string, 0, len(c.Flow.Pipelines))
	for k := range c.Flow.Pipelines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks the settings every run depends on.
func (c *Config) Validate() error {
	api := c.Flow.API
	if api.BaseURL == "" {
		return fmt.Errorf("flow.api.base_url must be set")
	}
	if api.PageSize < 1 {
		return fmt.Errorf("flow.api.page_size must be positive, got %d", api.PageSize)
	}
	if api.RequestTimeoutSeconds < 1 || api.SubmitTimeoutSeconds < 1 {
		return fmt.Errorf("flow.api timeouts must be positive")
	}
	if !strings.Contains(api.ExecutionURLTemplate, "{id}") {
		return fmt.Errorf("flow.api.execution_url_template must contain {id}")
	}
	switch strings.ToLower(c.Flow.Telemetry.OTLPProtocol) {
	case "", "http", "grpc":
	default:
		return fmt.Errorf("flow.telemetry.otlp_protocol must be http or grpc, got %q", c.Flow.Telemetry.OTLPProtocol)
	}
	for _, key := range c.PipelineKeys() {
		if err := c.Flow.Pipelines[key].validate(); err != nil {
			return fmt.Errorf("pipeline %q: %w", key, err)
		}
	}
	return nil
}

func (p PipelineConfig) validate() error {
	if p.PipelineID == "" && p.VersionID == "" {
		return fmt.Errorf("pipeline_id or version_id must be set")
	}
	if p.VersionID == "" && p.Version == "" {
		return fmt.Errorf("version is required to look up the version id")
	}
	if p.PrepExecutionID == "" {
		return fmt.Errorf("prep_execution_id must be set")
	}
	switch p.FilterMode {
	case FilterModeGlob, FilterModeRegex:
	default:
		return fmt.Errorf("filter_mode must be %q or %q, got %q", FilterModeGlob, FilterModeRegex, p.FilterMode)
	}
	if len(p.ReferenceFiles) == 0 {
		return fmt.Errorf("reference_files must not be empty")
	}
	seen := make(map[string]bool, len(p.ReferenceFiles))
	for _, rf := range p.ReferenceFiles {
		if rf.Param == "" || rf.Filename == "" {
			return fmt.Errorf("reference_files entries need both param and filename")
		}
		if seen[rf.Param] {
			return fmt.Errorf("reference_files lists %q twice", rf.Param)
		}
		seen[rf.Param] = true
	}
	return nil
}
