package seriesio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

// docPoint is the wire form of a point; Time falls back to Position.
type docPoint struct {
	Position float64  `json:"position"          yaml:"position"`
	Time     *float64 `json:"time,omitempty"    yaml:"time,omitempty"`
	Value    float64  `json:"value"             yaml:"value"`
	Offset   float64  `json:"offset,omitempty"  yaml:"offset,omitempty"`
	Missing  bool     `json:"missing,omitempty" yaml:"missing,omitempty"`
}

type docSeries struct {
	Name   string     `json:"name"             yaml:"name"`
	Column string     `json:"column,omitempty" yaml:"column,omitempty"`
	Color  string     `json:"color,omitempty"  yaml:"color,omitempty"`
	Points []docPoint `json:"points"           yaml:"points"`
}

type docChart struct {
	Title          string      `json:"title,omitempty"           yaml:"title,omitempty"`
	Slug           string      `json:"slug,omitempty"            yaml:"slug,omitempty"`
	UniformSpacing bool        `json:"uniform_spacing,omitempty" yaml:"uniform_spacing,omitempty"`
	Series         []docSeries `json:"series"                    yaml:"series"`
}

func (d docChart) chart() *Chart {
	out := &Chart{
		Title:          d.Title,
		Slug:           d.Slug,
		UniformSpacing: d.UniformSpacing,
		Series:         make([]series.Series, len(d.Series)),
	}

	for i, ds := range d.Series {
		points := make([]series.Point, len(ds.Points))

		for j, dp := range ds.Points {
			t := dp.Position
			if dp.Time != nil {
				t = *dp.Time
			}

			points[j] = series.Point{
				Position: dp.Position,
				Time:     t,
				Value:    dp.Value,
				Offset:   dp.Offset,
				Missing:  dp.Missing,
			}
		}

		out.Series[i] = series.Series{
			Name:       ds.Name,
			ColumnSlug: ds.Column,
			Color:      ds.Color,
			Points:     points,
		}
	}

	return out
}

// Decode reads a chart document in the given format. Series points are
// returned as written; callers run series.Validate or series.Sort as needed.
func Decode(r io.Reader, f Format) (*Chart, error) {
	switch f {
	case FormatJSON:
		var doc docChart

		err := json.NewDecoder(r).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("decode json chart: %w", err)
		}

		return doc.chart(), nil
	case FormatYAML:
		var doc docChart

		err := yaml.NewDecoder(r).Decode(&doc)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml chart: %w", err)
		}

		return doc.chart(), nil
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, errorAtName(ErrUnknownFormat, string(f))
	}
}

// Encode writes a chart document in the given format, including offsets.
func Encode(w io.Writer, c *Chart, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(c)
		if err != nil {
			return fmt.Errorf("encode json chart: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)

		err := enc.Encode(c)
		if err != nil {
			return fmt.Errorf("encode yaml chart: %w", err)
		}

		err = enc.Close()
		if err != nil {
			return fmt.Errorf("flush yaml chart: %w", err)
		}

		return nil
	case FormatCSV:
		return encodeCSV(w, c)
	default:
		return errorAtName(ErrUnknownFormat, string(f))
	}
}
