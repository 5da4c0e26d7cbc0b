// Package config loads stackline configuration from a YAML file, STACKLINE_*
// environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

// Sentinel validation errors.
var (
	ErrInvalidFill        = errors.New("invalid align fill policy")
	ErrInvalidMaxSteps    = errors.New("align max steps must be positive")
	ErrInvalidConcurrency = errors.New("batch concurrency must be positive")
	ErrInvalidPrefetch    = errors.New("batch prefetch must not be negative")
	ErrInvalidCache       = errors.New("batch cache entries must be positive")
	ErrInvalidCacheBytes  = errors.New("invalid batch cache bytes")
	ErrInvalidMaxSize     = errors.New("invalid input max size")
	ErrInvalidTheme       = errors.New("invalid render theme")
	ErrInvalidKind        = errors.New("invalid render kind")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidSampleRatio = errors.New("telemetry sample ratio must be within [0, 1]")
)

const envPrefix = "STACKLINE"

// Config holds all stackline configuration.
type Config struct {
	Align     AlignConfig     `mapstructure:"align"`
	Stack     StackConfig     `mapstructure:"stack"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Input     InputConfig     `mapstructure:"input"`
	Render    RenderConfig    `mapstructure:"render"`
	Store     StoreConfig     `mapstructure:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AlignConfig holds the series alignment options.
type AlignConfig struct {
	Fill           string `mapstructure:"fill"`
	MaxSteps       int    `mapstructure:"max_steps"`
	UniformSpacing bool   `mapstructure:"uniform_spacing"`
}

// StackConfig holds the stacking options.
type StackConfig struct {
	// Strict rejects unsorted or unaligned input instead of repairing it or
	// stacking it best-effort.
	Strict bool `mapstructure:"strict"`
}

// BatchConfig holds the store batch options.
type BatchConfig struct {
	Concurrency  int `mapstructure:"concurrency"`
	Prefetch     int `mapstructure:"prefetch"`
	CacheEntries int `mapstructure:"cache_entries"`
	// CacheBytes bounds the column cache by approximate size; "0" disables.
	CacheBytes string `mapstructure:"cache_bytes"`
}

// InputConfig holds chart file reading options.
type InputConfig struct {
	MaxSize string `mapstructure:"max_size"`
	Schema  bool   `mapstructure:"schema"`
}

// RenderConfig holds HTML rendering options.
type RenderConfig struct {
	Theme  string `mapstructure:"theme"`
	Kind   string `mapstructure:"kind"`
	Title  string `mapstructure:"title"`
	Width  string `mapstructure:"width"`
	Height string `mapstructure:"height"`
}

// StoreConfig holds the SQLite store location.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	MetricsAddr  string  `mapstructure:"metrics_addr"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches ./stackline.yaml, ./config and /etc/stackline.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("stackline")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/stackline")
	}

	viperCfg.SetEnvPrefix(envPrefix)
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
	viperCfg.SetDefault("align.uniform_spacing", DefaultAlignUniformSpacing)
	viperCfg.SetDefault("align.fill", DefaultAlignFill)
	viperCfg.SetDefault("align.max_steps", DefaultAlignMaxSteps)

	viperCfg.SetDefault("stack.strict", DefaultStackStrict)

	viperCfg.SetDefault("batch.concurrency", DefaultBatchConcurrency)
	viperCfg.SetDefault("batch.prefetch", DefaultBatchPrefetch)
	viperCfg.SetDefault("batch.cache_entries", DefaultBatchCacheEntries)
	viperCfg.SetDefault("batch.cache_bytes", DefaultBatchCacheBytes)

	viperCfg.SetDefault("input.max_size", DefaultInputMaxSize)
	viperCfg.SetDefault("input.schema", DefaultInputSchema)

	viperCfg.SetDefault("render.theme", DefaultRenderTheme)
	viperCfg.SetDefault("render.kind", DefaultRenderKind)
	viperCfg.SetDefault("render.title", DefaultRenderTitle)
	viperCfg.SetDefault("render.width", DefaultRenderWidth)
	viperCfg.SetDefault("render.height", DefaultRenderHeight)

	viperCfg.SetDefault("store.path", DefaultStorePath)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("telemetry.service_name", DefaultTelemetryService)
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.metrics_addr", "")
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if _, ok := series.ParseFillPolicy(config.Align.Fill); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFill, config.Align.Fill)
	}

	if config.Align.MaxSteps <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxSteps, config.Align.MaxSteps)
	}

	if config.Batch.Concurrency <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, config.Batch.Concurrency)
	}

	if config.Batch.Prefetch < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrefetch, config.Batch.Prefetch)
	}

	if config.Batch.CacheEntries <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCache, config.Batch.CacheEntries)
	}

	if _, err := humanize.ParseBytes(config.Batch.CacheBytes); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCacheBytes, config.Batch.CacheBytes)
	}

	if _, err := humanize.ParseBytes(config.Input.MaxSize); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidMaxSize, config.Input.MaxSize)
	}

	switch config.Render.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTheme, config.Render.Theme)
	}

	switch config.Render.Kind {
	case "area", "bar":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, config.Render.Kind)
	}

	if _, err := ParseLogLevel(config.Logging.Level); err != nil {
		return err
	}

	switch config.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, config.Logging.Format)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// AlignOptions converts the align section into series options.
func (c *Config) AlignOptions() series.AlignOptions {
	fill, _ := series.ParseFillPolicy(c.Align.Fill)

	return series.AlignOptions{EnforceUniformSpacing: c.Align.UniformSpacing, Fill: fill}
}

// InputMaxBytes returns the parsed input size limit.
func (c *Config) InputMaxBytes() int64 {
	n, err := humanize.ParseBytes(c.Input.MaxSize)
	if err != nil {
		return 0
	}

	return int64(n) //nolint:gosec // validated config sizes fit in int64.
}

// BatchCacheBytes returns the parsed column cache size bound, 0 when unset.
func (c *Config) BatchCacheBytes() int64 {
	n, err := humanize.ParseBytes(c.Batch.CacheBytes)
	if err != nil {
		return 0
	}

	return int64(n) //nolint:gosec // validated config sizes fit in int64.
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}
