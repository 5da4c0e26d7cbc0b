package seriesio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

// CSV column names. series, position and value are required on input.
const (
	colSeries   = "series"
	colColumn   = "column"
	colColor    = "color"
	colPosition = "position"
	colTime     = "time"
	colValue    = "value"
	colOffset   = "offset"
	colMissing  = "missing"
)

var csvHeader = []string{colSeries, colColumn, colColor, colPosition, colTime, colValue, colOffset, colMissing}

// decodeCSV reads long-format rows. Series keep first-seen order.
func decodeCSV(r io.Reader) (*Chart, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrMalformedCSV, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{colSeries, colPosition, colValue} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", ErrMalformedCSV, required)
		}
	}

	chart := &Chart{}
	bySeries := make(map[string]int)

	for line := 2; ; line++ {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedCSV, line, readErr)
		}

		row := csvRow{record: record, idx: idx}

		point, pointErr := row.point()
		if pointErr != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedCSV, line, pointErr)
		}

		name := row.field(colSeries)

		pos, ok := bySeries[name]
		if !ok {
			pos = len(chart.Series)
			bySeries[name] = pos
			chart.Series = append(chart.Series, series.Series{
				Name:       name,
				ColumnSlug: row.field(colColumn),
				Color:      row.field(colColor),
			})
		}

		chart.Series[pos].Points = append(chart.Series[pos].Points, point)
	}

	return chart, nil
}

type csvRow struct {
	record []string
	idx    map[string]int
}

func (r csvRow) field(name string) string {
	i, ok := r.idx[name]
	if !ok || i >= len(r.record) {
		return ""
	}

	return strings.TrimSpace(r.record[i])
}

func (r csvRow) float(name string) (float64, bool, error) {
	raw := r.field(name)
	if raw == "" {
		return 0, false, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("column %s: %w", name, err)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("column %s: %q is not finite", name, raw)
	}

	return v, true, nil
}

func (r csvRow) point() (series.Point, error) {
	position, ok, err := r.float(colPosition)
	if err != nil {
		return series.Point{}, err
	}

	if !ok {
		return series.Point{}, fmt.Errorf("column %s: empty", colPosition)
	}

	p := series.Point{Position: position, Time: position}

	var present bool

	p.Value, present, err = r.float(colValue)
	if err != nil {
		return series.Point{}, err
	}

	// An empty value cell is an explicit missing marker.
	p.Missing = !present

	if t, hasTime, timeErr := r.float(colTime); timeErr != nil {
		return series.Point{}, timeErr
	} else if hasTime {
		p.Time = t
	}

	if p.Offset, _, err = r.float(colOffset); err != nil {
		return series.Point{}, err
	}

	if raw := r.field(colMissing); raw != "" {
		missing, boolErr := strconv.ParseBool(raw)
		if boolErr != nil {
			return series.Point{}, fmt.Errorf("column %s: %w", colMissing, boolErr)
		}

		p.Missing = p.Missing || missing
	}

	return p, nil
}

func encodeCSV(w io.Writer, c *Chart) error {
	writer := csv.NewWriter(w)

	err := writer.Write(csvHeader)
	if err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, s := range c.Series {
		for _, p := range s.Points {
			value := formatFloat(p.Value)
			if p.Missing {
				value = ""
			}

			err = writer.Write([]string{
				s.Name,
				s.ColumnSlug,
				s.Color,
				formatFloat(p.Position),
				formatFloat(p.Time),
				value,
				formatFloat(p.Offset),
				strconv.FormatBool(p.Missing),
			})
			if err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	writer.Flush()

	err = writer.Error()
	if err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
