package plotpage

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// defaultAreaOpacity fills stacked bands without hiding grid lines.
const defaultAreaOpacity = 0.6

// ChartConfig describes the chrome around a chart.
type ChartConfig struct {
	Title     string
	Subtitle  string
	XAxisName string
	YAxisName string
	Theme     Theme
	Style     Style
}

// DefaultChartConfig returns a dark, full-width chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{Theme: ThemeDark, Style: DefaultStyle()}
}

// BarSeries defines the properties and data for a single bar chart series.
type BarSeries struct {
	Name  string
	Data  []float64
	Color string
	Stack string // Optional, stack grouping.
}

// LineSeries defines the properties and data for a single line chart series.
type LineSeries struct {
	Name        string
	Data        []float64
	Color       string
	Stack       string  // Optional, stack grouping.
	AreaOpacity float32 // Optional, draws the band under the line.
}

func globalOptions(cfg ChartConfig) []charts.GlobalOpts {
	cOpts := NewChartOpts(cfg.Theme)

	return []charts.GlobalOpts{
		charts.WithInitializationOpts(cOpts.Init(cfg.Style)),
		charts.WithTitleOpts(cOpts.Title(cfg.Title, cfg.Subtitle)),
		charts.WithTooltipOpts(cOpts.Tooltip("axis")),
		charts.WithGridOpts(cOpts.Grid(cfg.Style)),
		charts.WithDataZoomOpts(cOpts.DataZoom()...),
		charts.WithXAxisOpts(cOpts.XAxis(cfg.XAxisName)),
		charts.WithYAxisOpts(cOpts.YAxis(cfg.YAxisName)),
		charts.WithLegendOpts(cOpts.Legend()),
	}
}

// BuildBarChart constructs a themed go-echarts bar chart.
func BuildBarChart(cfg ChartConfig, labels []string, series []BarSeries) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(cfg)...)
	bar.SetXAxis(labels)

	for _, s := range series {
		barData := make([]opts.BarData, len(s.Data))
		for i, v := range s.Data {
			barData[i] = opts.BarData{Value: v}
		}

		var seriesOpts []charts.SeriesOpts
		if s.Color != "" {
			seriesOpts = append(seriesOpts, charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}))
		}

		if s.Stack != "" {
			seriesOpts = append(seriesOpts, charts.WithBarChartOpts(opts.BarChart{Stack: s.Stack}))
		}

		bar.AddSeries(s.Name, barData, seriesOpts...)
	}

	return bar
}

// BuildLineChart constructs a themed go-echarts line chart.
func BuildLineChart(cfg ChartConfig, labels []string, series []LineSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(cfg)...)
	line.SetXAxis(labels)

	for _, s := range series {
		lineData := make([]opts.LineData, len(s.Data))
		for i, v := range s.Data {
			lineData[i] = opts.LineData{Value: v}
		}

		var seriesOpts []charts.SeriesOpts
		if s.Color != "" {
			seriesOpts = append(seriesOpts,
				charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
				charts.WithLineStyleOpts(opts.LineStyle{Color: s.Color}),
			)
		}

		if s.Stack != "" {
			seriesOpts = append(seriesOpts, charts.WithLineChartOpts(opts.LineChart{Stack: s.Stack}))
		}

		if s.AreaOpacity > 0 {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(s.AreaOpacity)}))
		}

		line.AddSeries(s.Name, lineData, seriesOpts...)
	}

	return line
}
