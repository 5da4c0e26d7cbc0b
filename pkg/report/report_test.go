package report_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackline/pkg/report"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

func rawScenario() []series.Series {
	return []series.Series{
		{Name: "Canada", Points: []series.Point{{Position: 2000, Value: 10}, {Position: 2002, Value: 12}}},
		{Name: "USA", Points: []series.Point{{Position: 2000, Value: 2}}},
		{Name: "France", Points: []series.Point{{Position: 2000, Value: 6}, {Position: 2003, Value: 4}}},
	}
}

func TestTable(t *testing.T) {
	t.Parallel()

	stacked := series.AlignAndStack(rawScenario(), series.AlignOptions{EnforceUniformSpacing: true})

	out := report.Table(stacked, report.TableOptions{ShowOffsets: true, ShowTotals: true})

	assert.Contains(t, out, "Canada")
	assert.Contains(t, out, "France")
	assert.Contains(t, out, "2001")
	assert.Contains(t, out, "2 (+10)")
	assert.Contains(t, out, "18")
	assert.Contains(t, out, "4 positions")
}

func TestTable_MaxRowsAndMissing(t *testing.T) {
	t.Parallel()

	aligned := series.Align(rawScenario(), series.AlignOptions{Fill: series.FillMissing})

	out := report.Table(aligned, report.TableOptions{MaxRows: 1})

	assert.Contains(t, out, "1 of 3 positions")
	assert.NotContains(t, out, "2003")
	assert.NotContains(t, out, "(+")

	full := report.Table(aligned, report.TableOptions{})
	assert.Contains(t, full, "-")
}

func TestTable_Empty(t *testing.T) {
	t.Parallel()

	out := report.Table(nil, report.TableOptions{ShowTotals: true})
	assert.Contains(t, out, "0 positions")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	raw := rawScenario()
	stacked := series.AlignAndStack(raw, series.AlignOptions{EnforceUniformSpacing: true})

	sum := report.Summarize(raw, stacked)

	assert.Equal(t, 3, sum.Series)
	assert.Equal(t, 4, sum.Positions)
	assert.Equal(t, 5, sum.Input)
	assert.Equal(t, 7, sum.Filled)
	assert.Zero(t, sum.Missing)
	assert.InDelta(t, 0, sum.Low, 0)
	assert.InDelta(t, 18, sum.High, 0)

	line := sum.String()
	assert.True(t, strings.HasPrefix(line, "3 series | 4 positions"))
	assert.Contains(t, line, "range [0, 18]")
	assert.NotContains(t, line, "missing")
}

func TestSummarize_CountsMissing(t *testing.T) {
	t.Parallel()

	raw := rawScenario()
	aligned := series.Align(raw, series.AlignOptions{Fill: series.FillMissing})

	sum := report.Summarize(raw, aligned)
	assert.Equal(t, 4, sum.Missing)
	assert.Contains(t, sum.String(), "4 missing")
}

func TestFprint(t *testing.T) {
	t.Parallel()

	raw := rawScenario()
	stacked := series.AlignAndStack(raw, series.AlignOptions{})

	var buf bytes.Buffer
	require.NoError(t, report.Fprint(&buf, "Energy", raw, stacked, report.TableOptions{}))

	out := buf.String()
	assert.Contains(t, out, "Energy")
	assert.Contains(t, out, "USA")
	assert.Contains(t, out, "3 series")
}
