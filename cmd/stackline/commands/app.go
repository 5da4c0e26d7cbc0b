// Package commands implements the stackline CLI subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/config"
	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/version"
)

// ExitCodeValidationFailure is the exit code for invalid input documents.
const ExitCodeValidationFailure = 2

// ExitError carries a process exit code through cobra.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	return 1
}

// Globals holds the root persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// Register adds the persistent flags to root.
func (g *Globals) Register(root *cobra.Command) {
	root.PersistentFlags().StringVar(&g.ConfigPath, "config", "", "config file (default: ./stackline.yaml)")
	root.PersistentFlags().BoolVarP(&g.Verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&g.Quiet, "quiet", "q", false, "suppress output")
}

// runtime is the per-invocation state built from config and flags.
type runtime struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	red       *observability.REDMetrics
	series    *observability.SeriesMetrics
	stdout    io.Writer
}

// setup loads configuration and initializes observability for a command.
// Callers must defer rt.close.
func setup(cmd *cobra.Command, g *Globals, mode observability.AppMode, prometheus bool) (*runtime, error) {
	cfg, err := config.LoadConfig(g.ConfigPath)
	if err != nil {
		return nil, err
	}

	obsCfg := observabilityConfig(cfg, g, mode)
	obsCfg.Prometheus = prometheus
	obsCfg.LogWriter = cmd.ErrOrStderr()

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	sm, err := observability.NewSeriesMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return &runtime{
		cfg:       cfg,
		providers: providers,
		logger:    providers.Logger,
		red:       red,
		series:    sm,
		stdout:    cmd.OutOrStdout(),
	}, nil
}

func observabilityConfig(cfg *config.Config, g *Globals, mode observability.AppMode) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = cfg.Telemetry.ServiceName
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = firstNonEmpty(cfg.Telemetry.OTLPEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(
		firstNonEmpty(cfg.Telemetry.OTLPHeaders, os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")))
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.LogJSON = cfg.Logging.Format == "json" || mode == observability.ModeMCP

	level, _ := config.ParseLogLevel(cfg.Logging.Level)

	switch {
	case g.Verbose:
		level = slog.LevelDebug
	case g.Quiet:
		level = slog.LevelWarn
	}

	obsCfg.LogLevel = level

	return obsCfg
}

func (rt *runtime) close() {
	err := rt.providers.Shutdown(context.Background())
	if err != nil {
		rt.logger.Warn("observability shutdown failed", "error", err)
	}
}

// track starts a span and RED measurement for op. The returned func ends
// both and must be called with the operation's error.
func (rt *runtime) track(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := rt.providers.Tracer.Start(ctx, "stackline."+op)
	done := rt.red.Track(ctx, op)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
		}

		done(err)
		span.End()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
