package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/typedna/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "typedna.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultStep, cfg.View.Step)
	assert.Equal(t, config.DefaultLimit, cfg.View.Limit)
	assert.Equal(t, []string{config.DefaultIgnoreType}, cfg.Dataset.IgnoreTypes)
	assert.Equal(t, config.DefaultMaxCommitFiles, cfg.Dataset.MaxCommitFiles)
	assert.False(t, cfg.Dataset.CollapseMethods)
	assert.Empty(t, cfg.Authors.AliasesFile)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.Equal(t, config.ColorAuto, cfg.Output.Color)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.InDelta(t, 1.0, cfg.Observability.SampleRatio, 1e-9)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
view:
  step: week
  limit: 25
dataset:
  ignore_types: ["*#toString()", "java.lang.*"]
  max_commit_files: 0
  collapse_methods: true
authors:
  aliases_file: authors.toml
output:
  format: json
  color: never
logging:
  level: debug
  format: json
observability:
  environment: ci
  otlp_endpoint: "localhost:4317"
  otlp_insecure: true
  sample_ratio: 0.25
  metrics_file: metrics.prom
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "week", cfg.View.Step)
	assert.Equal(t, 25, cfg.View.Limit)
	assert.Equal(t, []string{"*#toString()", "java.lang.*"}, cfg.Dataset.IgnoreTypes)
	assert.Zero(t, cfg.Dataset.MaxCommitFiles)
	assert.True(t, cfg.Dataset.CollapseMethods)
	assert.Equal(t, "authors.toml", cfg.Authors.AliasesFile)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.Equal(t, config.ColorNever, cfg.Output.Color)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "ci", cfg.Observability.Environment)
	assert.Equal(t, "localhost:4317", cfg.Observability.OTLPEndpoint)
	assert.True(t, cfg.Observability.OTLPInsecure)
	assert.InDelta(t, 0.25, cfg.Observability.SampleRatio, 1e-9)
	assert.Equal(t, "metrics.prom", cfg.Observability.MetricsFile)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("TYPEDNA_VIEW_STEP", "day")
	t.Setenv("TYPEDNA_VIEW_LIMIT", "3")
	t.Setenv("TYPEDNA_OUTPUT_FORMAT", "yaml")
	t.Setenv("TYPEDNA_OBSERVABILITY_ENVIRONMENT", "staging")

	cfg, err := config.LoadConfig(writeConfig(t, "view:\n  step: week\n"))
	require.NoError(t, err)

	assert.Equal(t, "day", cfg.View.Step)
	assert.Equal(t, 3, cfg.View.Limit)
	assert.Equal(t, config.FormatYAML, cfg.Output.Format)
	assert.Equal(t, "staging", cfg.Observability.Environment)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("TYPEDNA_LOGGING_LEVEL", "")
	require.NoError(t, os.Unsetenv("TYPEDNA_LOGGING_LEVEL"))

	envPath := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("TYPEDNA_LOGGING_LEVEL=warn\n"), 0o600))

	require.NoError(t, config.LoadDotEnv(envPath))
	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	require.NoError(t, config.LoadDotEnv(""))

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"step", "view:\n  step: fortnight\n", config.ErrInvalidStep},
		{"limit", "view:\n  limit: -1\n", config.ErrInvalidLimit},
		{"max commit files", "dataset:\n  max_commit_files: -5\n", config.ErrInvalidMaxCommitFiles},
		{"format", "output:\n  format: html\n", config.ErrInvalidFormat},
		{"color", "output:\n  color: sometimes\n", config.ErrInvalidColor},
		{"log level", "logging:\n  level: chatty\n", config.ErrInvalidLogLevel},
		{"log format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"sample ratio", "observability:\n  sample_ratio: 1.5\n", config.ErrInvalidSampleRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	_, err = config.LoadConfig(writeConfig(t, "view: [unterminated\n"))
	require.Error(t, err)
}
