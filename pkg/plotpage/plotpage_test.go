package plotpage_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackline/pkg/plotpage"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

func scenario() []series.Series {
	in := []series.Series{
		{Name: "Canada", Color: "#ff0000", Points: []series.Point{{Position: 2000, Value: 10}, {Position: 2002, Value: 12}}},
		{Name: "USA", Points: []series.Point{{Position: 2000, Value: 2}}},
		{Name: "France", Points: []series.Point{{Position: 2000, Value: 6}, {Position: 2003, Value: 4}}},
	}

	return series.AlignAndStack(in, series.AlignOptions{EnforceUniformSpacing: true})
}

func TestStackedArea(t *testing.T) {
	t.Parallel()

	line, err := plotpage.StackedArea(plotpage.DefaultChartConfig(), scenario())
	require.NoError(t, err)
	require.Len(t, line.MultiSeries, 3)

	assert.Equal(t, "Canada", line.MultiSeries[0].Name)
	assert.Equal(t, plotpage.StackGroup, line.MultiSeries[1].Stack)
	assert.Equal(t, []string{"2000", "2001", "2002", "2003"}, plotpage.PositionLabels(scenario()))
}

func TestStackedBar(t *testing.T) {
	t.Parallel()

	bar, err := plotpage.StackedBar(plotpage.DefaultChartConfig(), scenario())
	require.NoError(t, err)
	require.Len(t, bar.MultiSeries, 3)
	assert.Equal(t, "France", bar.MultiSeries[2].Name)
	assert.Equal(t, plotpage.StackGroup, bar.MultiSeries[2].Stack)
}

func TestStacked_RejectsUnaligned(t *testing.T) {
	t.Parallel()

	in := []series.Series{
		{Name: "a", Points: []series.Point{{Position: 1}, {Position: 2}}},
		{Name: "b", Points: []series.Point{{Position: 1}}},
	}

	_, err := plotpage.Stacked(plotpage.DefaultChartConfig(), plotpage.KindArea, in)
	require.ErrorIs(t, err, series.ErrUnaligned)

	_, err = plotpage.Stacked(plotpage.DefaultChartConfig(), plotpage.KindBar, in)
	require.ErrorIs(t, err, series.ErrUnaligned)

	_, err = plotpage.Stacked(plotpage.DefaultChartConfig(), "pie", scenario())
	require.ErrorIs(t, err, plotpage.ErrUnknownKind)
}

func TestParseKindAndTheme(t *testing.T) {
	t.Parallel()

	kind, err := plotpage.ParseKind("bar")
	require.NoError(t, err)
	assert.Equal(t, plotpage.KindBar, kind)

	_, err = plotpage.ParseKind("pie")
	require.ErrorIs(t, err, plotpage.ErrUnknownKind)

	theme, err := plotpage.ParseTheme("light")
	require.NoError(t, err)
	assert.Equal(t, plotpage.ThemeLight, theme)

	_, err = plotpage.ParseTheme("neon")
	require.ErrorIs(t, err, plotpage.ErrUnknownTheme)
}

func TestSeriesColor(t *testing.T) {
	t.Parallel()

	theme := plotpage.GetThemeConfig(plotpage.ThemeDark)

	assert.Equal(t, "red", theme.SeriesColor("red", 3))
	assert.Equal(t, theme.Palette[0], theme.SeriesColor("", 0))
	assert.Equal(t, theme.Palette[1], theme.SeriesColor("", len(theme.Palette)+1))
}

func TestPageRender(t *testing.T) {
	t.Parallel()

	line, err := plotpage.StackedArea(plotpage.DefaultChartConfig(), scenario())
	require.NoError(t, err)

	page := plotpage.NewPage("Energy <mix>", "Stacked by country").WithTheme(plotpage.ThemeLight)
	page.AddStat("Series", "3")
	page.Add(plotpage.Section{Title: "Primary energy", Subtitle: "TWh", Chart: line})

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "Energy &lt;mix&gt;")
	assert.Contains(t, html, "Primary energy")
	assert.Contains(t, html, `class="echart-box"`)
	assert.Contains(t, html, "echarts.min.js")
	assert.NotContains(t, html, `class="dark"`)
	assert.Equal(t, 1, strings.Count(html, "<!DOCTYPE"))
}

type failingChart struct{}

func (failingChart) Render(io.Writer) error { return errors.New("boom") }

func TestPageRender_ChartError(t *testing.T) {
	t.Parallel()

	page := plotpage.NewPage("t", "")
	page.Add(plotpage.Section{Title: "broken", Chart: failingChart{}})

	err := page.Render(io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestWrapChart_Fragment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, plotpage.WrapChart(nil).Render(&buf))
	assert.Empty(t, buf.String())

	line, err := plotpage.StackedArea(plotpage.DefaultChartConfig(), scenario())
	require.NoError(t, err)

	require.NoError(t, plotpage.WrapChart(line).Render(&buf))
	assert.NotContains(t, buf.String(), "<!DOCTYPE")
	assert.NotContains(t, buf.String(), "<style>")
}
