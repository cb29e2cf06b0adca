package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ulelab/flowAPIscripts/pkg/batch/core/config"
	"github.com/ulelab/flowAPIscripts/pkg/batch/support/util/exception"
)

const minimalYAML = `
flow:
  system:
    logging:
      level: "DEBUG"
  api:
    page_size: 50
  pipelines:
    demo:
      name: "Demo"
      pipeline_id: "1"
      version: "2.0"
      prep_execution_id: "${DEMO_PREP_ID}"
      filter_mode: "glob"
      params:
        a: "1"
      reference_files:
        - { param: "fasta", filename: "genome.fa" }
        - { param: "gtf", filename: "genes.gtf" }
`

func shippedConfig(t *testing.T) config.EmbeddedConfig {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "cmd", "flowrun", "resources", "application.yaml"))
	require.NoError(t, err)
	return raw
}

func TestLoadConfigLayers(t *testing.T) {
	t.Setenv("DEMO_PREP_ID", "555")
	t.Setenv("FLOW_API_TOKEN", "secret")
	t.Setenv("FLOW_PIPELINES_DEMO_VERSION_ID", "999")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(minimalYAML), "")
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Flow.System.Logging.Level)
	assert.Equal(t, 50, cfg.Flow.API.PageSize)
	assert.Equal(t, 30, cfg.Flow.API.RequestTimeoutSeconds, "defaults survive when YAML is silent")
	assert.Equal(t, "secret", cfg.Flow.API.Token)

	demo, err := cfg.Pipeline("demo")
	require.NoError(t, err)
	assert.Equal(t, "555", demo.PrepExecutionID)
	assert.Equal(t, "999", demo.VersionID)
	assert.Equal(t, []string{"fasta", "gtf"}, demo.FileMap().Params())
}

func TestLoadConfigOverlayMergesPipelines(t *testing.T) {
	t.Setenv("DEMO_PREP_ID", "555")
	overlay := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte(`
flow:
  pipelines:
    demo:
      version: "2.1"
      params:
        b: "2"
`), 0o600))

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(minimalYAML), overlay)
	require.NoError(t, err)

	demo, err := cfg.Pipeline("demo")
	require.NoError(t, err)
	assert.Equal(t, "2.1", demo.Version)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, demo.Params)
	assert.Len(t, demo.ReferenceFiles, 2)
}

func TestLoadConfigMissingOverlay(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig(minimalYAML), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, exception.KindConfiguration, exception.KindOf(err))
}

func TestLoadConfigRejectsInvalidPipeline(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig(`
flow:
  pipelines:
    broken:
      pipeline_id: "1"
      version: "1"
      prep_execution_id: "2"
      filter_mode: "fuzzy"
      reference_files:
        - { param: "fasta", filename: "genome.fa" }
`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pipeline "broken"`)
	assert.Contains(t, err.Error(), "filter_mode")
}

func TestShippedPipelines(t *testing.T) {
	cfg, err := config.LoadConfig("", shippedConfig(t), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"clip", "clip-1.7", "rnaseq"}, cfg.PipelineKeys())

	clip, err := cfg.Pipeline("clip")
	require.NoError(t, err)
	assert.Len(t, clip.ReferenceFiles, 21)
	assert.Equal(t, "fasta", clip.ReferenceFiles[0].Param)
	assert.Equal(t, "NNNNNNNNNN", clip.Params["umi_header_format"])
	assert.Equal(t, config.FilterModeGlob, clip.FilterMode)

	clip17, err := cfg.Pipeline("clip-1.7")
	require.NoError(t, err)
	assert.Equal(t, config.FilterModeRegex, clip17.FilterMode)
	assert.Equal(t, "RX:Z:", clip17.Params["umi_separator"])
	assert.Equal(t, clip.ReferenceFiles, clip17.ReferenceFiles)

	rna, err := cfg.Pipeline("rnaseq")
	require.NoError(t, err)
	assert.Len(t, rna.ReferenceFiles, 9)
	assert.Equal(t, "", rna.Params["pseudo_aligner"])
	assert.Equal(t, "^(?P<discard_1>.{4})(?P<umi_1>.{5})", rna.Params["umitools_bc_pattern"])

	_, err = cfg.Pipeline("chip")
	assert.ErrorContains(t, err, "available: clip, clip-1.7, rnaseq")
}

func TestLoadConfigReportOptionsMergePerKey(t *testing.T) {
	t.Setenv("DEMO_PREP_ID", "555")
	base := minimalYAML + `
  report:
    uri: "out/run.json"
    options:
      base_dir: "/var/reports"
      compression: "gzip"
`
	overlay := filepath.Join(t.TempDir(), "overlay.yaml")
	require.NoError(t, os.WriteFile(overlay, []byte(`
flow:
  report:
    uri: "gs://bucket/run.parquet"
    options:
      compression: "none"
`), 0o600))

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(base), overlay)
	require.NoError(t, err)
	assert.Equal(t, "gs://bucket/run.parquet", cfg.Flow.Report.URI)
	assert.Equal(t, "/var/reports", cfg.Flow.Report.Options["base_dir"])
	assert.Equal(t, "none", cfg.Flow.Report.Options["compression"])
}
