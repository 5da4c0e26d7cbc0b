package plotpage

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

// ErrUnknownKind is returned by ParseKind for unsupported chart kinds.
var ErrUnknownKind = errors.New("unknown chart kind")

// StackGroup is the echarts stack id shared by every stacked series.
const StackGroup = "total"

// Kind selects how stacked series are drawn.
type Kind string

const (
	// KindArea draws stacked bands.
	KindArea Kind = "area"
	// KindBar draws stacked columns.
	KindBar Kind = "bar"
)

// ParseKind maps a configured kind name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindArea, KindBar:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// PositionLabels formats the shared positions of aligned series as x-axis
// labels.
func PositionLabels(in []series.Series) []string {
	if len(in) == 0 {
		return []string{}
	}

	positions := series.Positions(in[0])
	labels := make([]string, len(positions))

	for i, p := range positions {
		labels[i] = humanize.Ftoa(p)
	}

	return labels
}

// values returns the stack contributions of s; missing points count as 0
// so the echarts bands match the computed offsets.
func values(s series.Series) []float64 {
	out := make([]float64, len(s.Points))

	for i, p := range s.Points {
		if !p.Missing {
			out[i] = p.Value
		}
	}

	return out
}

// StackedArea renders aligned series as a stacked area chart. Series are
// stacked bottom to top in slice order.
func StackedArea(cfg ChartConfig, in []series.Series) (*charts.Line, error) {
	err := series.CheckAligned(in)
	if err != nil {
		return nil, fmt.Errorf("stacked area: %w", err)
	}

	theme := GetThemeConfig(cfg.Theme)
	lines := make([]LineSeries, len(in))

	for i, s := range in {
		lines[i] = LineSeries{
			Name:        s.Name,
			Data:        values(s),
			Color:       theme.SeriesColor(s.Color, i),
			Stack:       StackGroup,
			AreaOpacity: defaultAreaOpacity,
		}
	}

	return BuildLineChart(cfg, PositionLabels(in), lines), nil
}

// StackedBar renders aligned series as stacked columns.
func StackedBar(cfg ChartConfig, in []series.Series) (*charts.Bar, error) {
	err := series.CheckAligned(in)
	if err != nil {
		return nil, fmt.Errorf("stacked bar: %w", err)
	}

	theme := GetThemeConfig(cfg.Theme)
	bars := make([]BarSeries, len(in))

	for i, s := range in {
		bars[i] = BarSeries{
			Name:  s.Name,
			Data:  values(s),
			Color: theme.SeriesColor(s.Color, i),
			Stack: StackGroup,
		}
	}

	return BuildBarChart(cfg, PositionLabels(in), bars), nil
}

// Stacked dispatches to StackedArea or StackedBar.
func Stacked(cfg ChartConfig, kind Kind, in []series.Series) (Renderable, error) {
	switch kind {
	case KindBar:
		bar, err := StackedBar(cfg, in)
		if err != nil {
			return nil, err
		}

		return bar, nil
	case KindArea, "":
		line, err := StackedArea(cfg, in)
		if err != nil {
			return nil, err
		}

		return line, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
