// Package config provides configuration loading and validation for typedna.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/typedna/pkg/timeslice"
)

// Sentinel validation errors.
var (
	ErrInvalidStep           = errors.New("invalid view step")
	ErrInvalidLimit          = errors.New("view limit must not be negative")
	ErrInvalidFormat         = errors.New("invalid output format")
	ErrInvalidColor          = errors.New("invalid colour mode")
	ErrInvalidLogLevel       = errors.New("invalid log level")
	ErrInvalidLogFormat      = errors.New("invalid log format")
	ErrInvalidMaxCommitFiles = errors.New("max commit files must not be negative")
	ErrInvalidSampleRatio    = errors.New("sample ratio must be within [0, 1]")
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TYPEDNA"

// Config holds all configuration for typedna.
type Config struct {
	View          ViewConfig          `mapstructure:"view"`
	Dataset       DatasetConfig       `mapstructure:"dataset"`
	Authors       AuthorsConfig       `mapstructure:"authors"`
	Output        OutputConfig        `mapstructure:"output"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// ViewConfig holds the default view filter.
type ViewConfig struct {
	Step  string `mapstructure:"step"`
	Limit int    `mapstructure:"limit"`
}

// DatasetConfig holds preprocessing options.
type DatasetConfig struct {
	IgnoreTypes     []string `mapstructure:"ignore_types"`
	MaxCommitFiles  int      `mapstructure:"max_commit_files"`
	CollapseMethods bool     `mapstructure:"collapse_methods"`
}

// AuthorsConfig points at the author alias file.
type AuthorsConfig struct {
	AliasesFile string `mapstructure:"aliases_file"`
}

// OutputConfig holds report settings.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds tracing and metrics settings.
type ObservabilityConfig struct {
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	MetricsFile  string  `mapstructure:"metrics_file"`
}

// LoadDotEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("typedna")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("$HOME/.config/typedna")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("view.step", DefaultStep)
	viperCfg.SetDefault("view.limit", DefaultLimit)

	viperCfg.SetDefault("dataset.ignore_types", []string{DefaultIgnoreType})
	viperCfg.SetDefault("dataset.max_commit_files", DefaultMaxCommitFiles)
	viperCfg.SetDefault("dataset.collapse_methods", DefaultCollapseMethods)

	viperCfg.SetDefault("authors.aliases_file", "")

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.color", DefaultColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("observability.environment", "")
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("observability.metrics_file", "")
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	_, stepErr := timeslice.ParseStep(config.View.Step)
	if stepErr != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStep, config.View.Step)
	}

	if config.View.Limit < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, config.View.Limit)
	}

	if config.Dataset.MaxCommitFiles < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxCommitFiles, config.Dataset.MaxCommitFiles)
	}

	if !slices.Contains(Formats(), config.Output.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	if !slices.Contains([]string{ColorAuto, ColorAlways, ColorNever}, config.Output.Color) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, config.Output.Color)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(config.Logging.Level)) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, config.Logging.Level)
	}

	if !slices.Contains([]string{"text", "json"}, config.Logging.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Observability.SampleRatio < 0 || config.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Observability.SampleRatio)
	}

	return nil
}

// Formats lists the supported report formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatYAML}
}
