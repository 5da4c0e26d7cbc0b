// Package report formats aligned and stacked series for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

const (
	missingCell   = "-"
	positionTitle = "position"
	totalTitle    = "total"
)

// TableOptions controls table layout.
type TableOptions struct {
	// ShowOffsets appends each point's stack offset to its value.
	ShowOffsets bool
	// ShowTotals adds a column with the stack top at each position.
	ShowTotals bool
	// MaxRows truncates the table; zero prints every position.
	MaxRows int
}

// Table renders aligned series as one row per position and one column per
// series.
func Table(in []series.Series, opts TableOptions) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	header := table.Row{positionTitle}
	for _, s := range in {
		header = append(header, s.Name)
	}

	if opts.ShowTotals {
		header = append(header, totalTitle)
	}

	tbl.AppendHeader(header)

	columns := make([]table.ColumnConfig, 0, len(header))
	for i := range header {
		columns = append(columns, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
	}

	tbl.SetColumnConfigs(columns)

	rows := rowCount(in)
	shown := rows

	if opts.MaxRows > 0 && opts.MaxRows < rows {
		shown = opts.MaxRows
	}

	totals := series.Totals(in)

	for idx := range shown {
		row := table.Row{positionLabel(in, idx)}

		for _, s := range in {
			row = append(row, cell(s, idx, opts.ShowOffsets))
		}

		if opts.ShowTotals {
			row = append(row, totalCell(totals, idx))
		}

		tbl.AppendRow(row)
	}

	footer := fmt.Sprintf("%s positions", humanize.Comma(int64(rows)))
	if shown < rows {
		footer = fmt.Sprintf("%s of %s", humanize.Comma(int64(shown)), footer)
	}

	tbl.AppendFooter(table.Row{footer})

	return tbl.Render()
}

func rowCount(in []series.Series) int {
	rows := 0
	for _, s := range in {
		rows = max(rows, len(s.Points))
	}

	return rows
}

func positionLabel(in []series.Series, idx int) string {
	for _, s := range in {
		if idx < len(s.Points) {
			return humanize.Ftoa(s.Points[idx].Position)
		}
	}

	return missingCell
}

func cell(s series.Series, idx int, showOffset bool) string {
	if idx >= len(s.Points) || s.Points[idx].Missing {
		return missingCell
	}

	p := s.Points[idx]
	if !showOffset {
		return formatNumber(p.Value)
	}

	return fmt.Sprintf("%s (+%s)", formatNumber(p.Value), formatNumber(p.Offset))
}

func totalCell(totals []float64, idx int) string {
	if idx >= len(totals) {
		return missingCell
	}

	return formatNumber(totals[idx])
}

func formatNumber(v float64) string {
	return humanize.CommafWithDigits(v, 4)
}

// Summary describes one align/stack run.
type Summary struct {
	Series    int
	Positions int
	Input     int // points before alignment
	Filled    int // points synthesized by alignment
	Missing   int // points flagged missing after alignment
	Low       float64
	High      float64
}

// Summarize compares raw input with its aligned (and possibly stacked)
// result.
func Summarize(raw, result []series.Series) Summary {
	sum := Summary{Series: len(result), Positions: rowCount(result)}

	for _, s := range raw {
		sum.Input += len(s.Points)
	}

	total := 0

	for _, s := range result {
		total += len(s.Points)

		for _, p := range s.Points {
			if p.Missing {
				sum.Missing++
			}
		}
	}

	sum.Filled = max(total-sum.Input, 0)
	sum.Low, sum.High = series.Extent(result)

	return sum
}

// String renders the summary as a single line.
func (s Summary) String() string {
	parts := []string{
		humanize.Comma(int64(s.Series)) + " series",
		humanize.Comma(int64(s.Positions)) + " positions",
		humanize.Comma(int64(s.Input)) + " input points",
		humanize.Comma(int64(s.Filled)) + " filled",
	}

	if s.Missing > 0 {
		parts = append(parts, humanize.Comma(int64(s.Missing))+" missing")
	}

	parts = append(parts, fmt.Sprintf("range [%s, %s]", formatNumber(s.Low), formatNumber(s.High)))

	return strings.Join(parts, " | ")
}

// Fprint writes a colored title, the table and the summary line to w.
func Fprint(w io.Writer, title string, raw, result []series.Series, opts TableOptions) error {
	if title != "" {
		_, err := color.New(color.Bold, color.FgCyan).Fprintln(w, title)
		if err != nil {
			return fmt.Errorf("write title: %w", err)
		}
	}

	_, err := fmt.Fprintln(w, Table(result, opts))
	if err != nil {
		return fmt.Errorf("write table: %w", err)
	}

	_, err = color.New(color.Faint).Fprintln(w, Summarize(raw, result).String())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
