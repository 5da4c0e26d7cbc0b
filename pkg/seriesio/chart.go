// Package seriesio reads and writes chart documents (a title, a spacing
// option, and an ordered list of series) as JSON, YAML, or long-format CSV,
// optionally wrapped in an LZ4 frame.
package seriesio

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

// Format identifies a chart document encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// lz4Ext is the suffix that marks LZ4-framed files.
const lz4Ext = ".lz4"

// Sentinel errors.
var (
	ErrUnknownFormat  = errors.New("unknown chart format")
	ErrInputTooLarge  = errors.New("chart input exceeds size limit")
	ErrMissingName    = errors.New("series name is required")
	ErrDuplicateName  = errors.New("series name is not unique")
	ErrMalformedCSV   = errors.New("malformed chart csv")
	ErrSchemaMismatch = errors.New("chart document does not match schema")
)

// Chart is a chart document: metadata plus the series to align and stack.
type Chart struct {
	Title          string          `json:"title,omitempty"           yaml:"title,omitempty"`
	Slug           string          `json:"slug,omitempty"            yaml:"slug,omitempty"`
	UniformSpacing bool            `json:"uniform_spacing,omitempty" yaml:"uniform_spacing,omitempty"`
	Series         []series.Series `json:"series"                    yaml:"series"`
}

// AlignOptions returns the align options the chart asks for, with fill as
// the synthesized-point policy.
func (c *Chart) AlignOptions(fill series.FillPolicy) series.AlignOptions {
	return series.AlignOptions{EnforceUniformSpacing: c.UniformSpacing, Fill: fill}
}

// Check reports missing or duplicate series names.
func (c *Chart) Check() error {
	seen := make(map[string]struct{}, len(c.Series))

	for i, s := range c.Series {
		if s.Name == "" {
			return errorAt(ErrMissingName, i)
		}

		if _, dup := seen[s.Name]; dup {
			return errorAtName(ErrDuplicateName, s.Name)
		}

		seen[s.Name] = struct{}{}
	}

	return nil
}

// Normalize checks series names, finite positions and point order. With
// strict set, unsorted or duplicate positions are errors; otherwise points
// are sorted and the last duplicate wins.
func (c *Chart) Normalize(strict bool) error {
	err := c.Check()
	if err != nil {
		return err
	}

	err = series.CheckFinite(c.Series)
	if err != nil {
		return err
	}

	if strict {
		return series.Validate(c.Series)
	}

	c.Series = series.Sort(c.Series)

	return nil
}

// FormatFromPath picks the format from a file extension, ignoring a
// trailing .lz4. It reports whether the file is LZ4-framed.
func FormatFromPath(path string) (Format, bool, error) {
	lower := strings.ToLower(path)
	compressed := strings.HasSuffix(lower, lz4Ext)
	lower = strings.TrimSuffix(lower, lz4Ext)

	switch filepath.Ext(lower) {
	case ".json":
		return FormatJSON, compressed, nil
	case ".yaml", ".yml":
		return FormatYAML, compressed, nil
	case ".csv":
		return FormatCSV, compressed, nil
	default:
		return "", compressed, errorAtName(ErrUnknownFormat, path)
	}
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", errorAtName(ErrUnknownFormat, s)
	}
}
