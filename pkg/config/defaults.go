package config

// Align defaults.
const (
	DefaultAlignUniformSpacing = false
	DefaultAlignFill           = "zero"
	DefaultAlignMaxSteps       = 100_000
)

// Stack defaults.
const (
	DefaultStackStrict = false
)

// Batch defaults, matching the bounded fan-out of the maintenance jobs.
const (
	DefaultBatchConcurrency  = 10
	DefaultBatchPrefetch     = 300
	DefaultBatchCacheEntries = 1000
	DefaultBatchCacheBytes   = "256MB"
)

// Input defaults.
const (
	DefaultInputMaxSize = "64MB"
	DefaultInputSchema  = true
)

// Render defaults.
const (
	DefaultRenderTheme  = "dark"
	DefaultRenderKind   = "area"
	DefaultRenderTitle  = "Stacked series"
	DefaultRenderWidth  = "100%"
	DefaultRenderHeight = "500px"
)

// Store, logging and telemetry defaults.
const (
	DefaultStorePath        = "stackline.db"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultTelemetryService = "stackline"
)
