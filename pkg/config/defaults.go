package config

import "github.com/Sumatoshi-tech/typedna/pkg/report"

// View defaults.
const (
	DefaultStep  = "month"
	DefaultLimit = 0
)

// Dataset defaults.
const (
	DefaultIgnoreType      = "java.lang.Object#Object()"
	DefaultMaxCommitFiles  = 50
	DefaultCollapseMethods = false
)

// Output defaults.
const (
	DefaultFormat = FormatText
	DefaultColor  = ColorAuto
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Observability defaults.
const (
	DefaultSampleRatio = 1.0
)

// Report formats.
const (
	FormatText = report.FormatText
	FormatJSON = report.FormatJSON
	FormatYAML = report.FormatYAML
)

// Colour modes.
const (
	ColorAuto   = report.ColorAuto
	ColorAlways = report.ColorAlways
	ColorNever  = report.ColorNever
)
