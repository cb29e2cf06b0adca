package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	usecase "github.com/ulelab/flowAPIscripts/pkg/batch/core/application/usecase"
	config "github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
)

// filterKey is the only sample attribute --filter can match on.
const filterKey = "sample_name"

// Options holds the parsed command line.
type Options struct {
	ProjectID  string
	Filter     string
	Match      string
	NumChunks  int
	StartBatch int
	// EndBatch is nil when --end-batch was not given.
	EndBatch    *int
	Pipeline    string
	DryRun      bool
	Verbose     bool
	LogLevel    string
	ConfigFile  string
	EnvFile     string
	ReportURI   string
	MetricsFile string
}

// ParseFlags parses args (without the program name). Usage and parse
// errors are written to stderr. flag.ErrHelp is returned for -h.
func ParseFlags(args []string, stderr io.Writer) (*Options, error) {
	opts := &Options{EnvFile: ".env"}
	var rawFilter string
	var endBatch int

	fs := flag.NewFlagSet("flowrun", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ProjectID, "pid", "", "Flow project id (required)")
	fs.StringVar(&opts.ProjectID, "PID", "", "alias of --pid")
	fs.StringVar(&rawFilter, "filter", "", "sample filter as sample_name=PATTERN, sample_name:PATTERN or sample_name PATTERN")
	fs.StringVar(&opts.Match, "match", "", "filter mode, glob or regex (default: the pipeline's filter_mode)")
	fs.IntVar(&opts.NumChunks, "n", 0, "number of batches (default: flow.run.num_chunks)")
	fs.IntVar(&opts.NumChunks, "num-chunks", 0, "alias of -n")
	fs.IntVar(&opts.StartBatch, "start-batch", 1, "first batch to submit, 1-based")
	fs.IntVar(&endBatch, "end-batch", 0, "last batch to submit, 1-based (default: the last batch)")
	fs.StringVar(&opts.Pipeline, "pipeline", "", "pipeline key from flow.pipelines (default: flow.run.pipeline)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "print the batches without submitting them")
	fs.BoolVar(&opts.Verbose, "verbose", false, "shorthand for --log-level DEBUG")
	fs.StringVar(&opts.LogLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR")
	fs.StringVar(&opts.ConfigFile, "config", "", "YAML file merged over the built-in configuration")
	fs.StringVar(&opts.EnvFile, "env-file", opts.EnvFile, ".env file loaded before the configuration")
	fs.StringVar(&opts.ReportURI, "report", "", "write a JSON run report to a path or gs://bucket/object")
	fs.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	// --filter KEY PATTERN: the pattern is left as the first positional
	// argument, and parsing resumes after it.
	for fs.NArg() > 0 && rawFilter != "" && !strings.ContainsAny(rawFilter, "=:") {
		rawFilter += "=" + fs.Arg(0)
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return nil, err
		}
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.ProjectID == "" {
		return nil, errors.New("--pid is required")
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "end-batch":
			opts.EndBatch = &endBatch
		case "n", "num-chunks":
			if opts.NumChunks < 1 {
				opts.NumChunks = 1
			}
		}
	})
	switch opts.Match {
	case "", config.FilterModeGlob, config.FilterModeRegex:
	default:
		return nil, fmt.Errorf("--match must be %q or %q, got %q", config.FilterModeGlob, config.FilterModeRegex, opts.Match)
	}

	pattern, err := parseFilter(rawFilter)
	if err != nil {
		return nil, err
	}
	opts.Filter = pattern
	return opts, nil
}

// parseFilter splits KEY=VALUE or KEY:VALUE at the first separator and
// returns VALUE. An empty argument means no filter.
func parseFilter(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	i := strings.IndexAny(raw, "=:")
	if i < 0 {
		return "", fmt.Errorf("--filter must be KEY=VALUE or KEY:VALUE, got %q", raw)
	}
	key := strings.TrimSpace(raw[:i])
	if !strings.EqualFold(key, filterKey) {
		return "", fmt.Errorf("Only --filter %s=PATTERN is supported, got key %q", filterKey, key)
	}
	return raw[i+1:], nil
}

// Apply copies the flags that override configuration into cfg.
func (o *Options) Apply(cfg *config.Config) {
	if o.Verbose {
		cfg.Flow.System.Logging.Level = "DEBUG"
	}
	if o.LogLevel != "" {
		cfg.Flow.System.Logging.Level = o.LogLevel
	}
	if o.ReportURI != "" {
		cfg.Flow.Report.URI = o.ReportURI
	}
	if o.MetricsFile != "" {
		cfg.Flow.Telemetry.MetricsFile = o.MetricsFile
	}
}

// Request converts the options into a run request.
func (o *Options) Request() usecase.RunRequest {
	return usecase.RunRequest{
		ProjectID:  o.ProjectID,
		Pipeline:   o.Pipeline,
		Filter:     o.Filter,
		Match:      o.Match,
		NumChunks:  o.NumChunks,
		StartBatch: o.StartBatch,
		EndBatch:   o.EndBatch,
		DryRun:     o.DryRun,
	}
}
