// Package commands implements CLI command handlers for typedna.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/typedna/internal/app"
	"github.com/Sumatoshi-tech/typedna/pkg/config"
	"github.com/Sumatoshi-tech/typedna/pkg/observability"
	"github.com/Sumatoshi-tech/typedna/pkg/version"
)

const defaultEnvFile = ".env"

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool
	Quiet      bool
}

// NewRootCommand creates the typedna command tree.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "typedna",
		Short: "Type evolution explorer",
		Long: `typedna explores how the types of a code base evolve over time.

It loads exported edit histories, slices them into calendar steps and reports
which entities changed, when, and by whom.

Commands:
  view      Build a filtered, time-sliced view of one or more datasets
  authors   List the authors of a dataset and their aliases
  version   Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default: typedna.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", defaultEnvFile, "dotenv file to load before reading config")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress log output")

	rootCmd.AddCommand(NewViewCommand(opts))
	rootCmd.AddCommand(NewAuthorsCommand(opts))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// NewVersionCommand creates the version subcommand.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "typedna %s\n", version.String())
		},
	}
}

// session is the per-invocation runtime: configuration, telemetry and the
// application service.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	service   *app.Service
	logger    *slog.Logger
}

func openSession(opts *GlobalOptions, logOut io.Writer) (*session, error) {
	err := config.LoadDotEnv(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	obsCfg, err := observabilityConfig(cfg, opts, logOut)
	if err != nil {
		return nil, err
	}

	obsCfg.RunID = uuid.NewString()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	svc, err := app.New(cfg, providers)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return &session{
		cfg:       cfg,
		providers: providers,
		service:   svc,
		logger:    providers.Logger,
	}, nil
}

func observabilityConfig(cfg *config.Config, opts *GlobalOptions, logOut io.Writer) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.LogJSON = cfg.Logging.Format == "json"
	obsCfg.LogWriter = logOut

	if obsCfg.OTLPEndpoint == "" {
		obsCfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}

	level, err := observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return obsCfg, err
	}

	obsCfg.LogLevel = level

	switch {
	case opts.Verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case opts.Quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	return obsCfg, nil
}

// close writes the metrics file, when one is configured, and flushes telemetry.
func (s *session) close(ctx context.Context, metricsFile string) error {
	var writeErr error

	if metricsFile != "" {
		writeErr = s.providers.WriteMetrics(metricsFile)
		if writeErr == nil {
			s.logger.DebugContext(ctx, "metrics written", "path", metricsFile)
		}
	}

	return errors.Join(writeErr, s.providers.Shutdown(ctx))
}
