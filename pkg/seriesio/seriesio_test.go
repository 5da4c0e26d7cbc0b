package seriesio_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
)

const sampleJSON = `{
  "title": "Energy mix",
  "uniform_spacing": true,
  "series": [
    {"name": "Canada", "column": "var", "color": "red",
     "points": [{"position": 2000, "value": 10}, {"position": 2002, "value": 12}]},
    {"name": "USA", "column": "var",
     "points": [{"position": 2000, "time": 1999.5, "value": 2}]}
  ]
}`

const sampleYAML = `
title: Energy mix
series:
  - name: Canada
    column: var
    points:
      - {position: 2000, value: 10}
      - {position: 2002, value: 12}
  - name: USA
    points:
      - {position: 2000, value: 2}
`

const sampleCSV = `series,position,value,column,color
Canada,2000,10,var,red
USA,2000,2,var,
Canada,2002,12,var,red
France,2003,,var,
`

func TestDecode_JSON(t *testing.T) {
	t.Parallel()

	chart, err := seriesio.Decode(strings.NewReader(sampleJSON), seriesio.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, "Energy mix", chart.Title)
	assert.True(t, chart.UniformSpacing)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "red", chart.Series[0].Color)
	assert.Equal(t, 2002.0, chart.Series[0].Points[1].Time, "time defaults to position")
	assert.Equal(t, 1999.5, chart.Series[1].Points[0].Time)
	require.NoError(t, chart.Check())

	opts := chart.AlignOptions(series.FillZero)
	assert.True(t, opts.EnforceUniformSpacing)
}

func TestDecode_YAML(t *testing.T) {
	t.Parallel()

	chart, err := seriesio.Decode(strings.NewReader(sampleYAML), seriesio.FormatYAML)
	require.NoError(t, err)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, "var", chart.Series[0].ColumnSlug)
	assert.Equal(t, 12.0, chart.Series[0].Points[1].Value)
}

func TestDecode_CSV(t *testing.T) {
	t.Parallel()

	chart, err := seriesio.Decode(strings.NewReader(sampleCSV), seriesio.FormatCSV)
	require.NoError(t, err)
	require.Len(t, chart.Series, 3)

	names := []string{chart.Series[0].Name, chart.Series[1].Name, chart.Series[2].Name}
	assert.Equal(t, []string{"Canada", "USA", "France"}, names)
	assert.Len(t, chart.Series[0].Points, 2)
	assert.True(t, chart.Series[2].Points[0].Missing, "empty value cell is missing")
}

func TestDecode_CSVErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"no header":        "",
		"missing position": "series,value\nA,1\n",
		"bad number":       "series,position,value\nA,x,1\n",
		"empty position":   "series,position,value\nA,,1\n",
		"inf position":     "series,position,value\nA,Inf,1\n",
		"nan position":     "series,position,value\nA,NaN,1\n",
	}

	for name, input := range tests {
		_, err := seriesio.Decode(strings.NewReader(input), seriesio.FormatCSV)
		require.ErrorIs(t, err, seriesio.ErrMalformedCSV, name)
	}
}

func TestEncodeDecode_CSVKeepsOffsets(t *testing.T) {
	t.Parallel()

	chart, err := seriesio.Decode(strings.NewReader(sampleJSON), seriesio.FormatJSON)
	require.NoError(t, err)

	chart.Series = series.AlignAndStack(chart.Series, chart.AlignOptions(series.FillZero))

	var buf bytes.Buffer
	require.NoError(t, seriesio.Encode(&buf, chart, seriesio.FormatCSV))

	back, err := seriesio.Decode(&buf, seriesio.FormatCSV)
	require.NoError(t, err)
	require.Len(t, back.Series, 2)
	assert.Equal(t, 10.0, back.Series[1].Points[0].Offset)
	assert.Len(t, back.Series[1].Points, 3)
}

func TestChartCheck(t *testing.T) {
	t.Parallel()

	unnamed := &seriesio.Chart{Series: []series.Series{{Name: ""}}}
	require.ErrorIs(t, unnamed.Check(), seriesio.ErrMissingName)

	dup := &seriesio.Chart{Series: []series.Series{{Name: "a"}, {Name: "a"}}}
	require.ErrorIs(t, dup.Check(), seriesio.ErrDuplicateName)
}

func TestFormatFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path       string
		format     seriesio.Format
		compressed bool
	}{
		{"chart.json", seriesio.FormatJSON, false},
		{"chart.YAML", seriesio.FormatYAML, false},
		{"chart.yml.lz4", seriesio.FormatYAML, true},
		{"data/chart.csv.lz4", seriesio.FormatCSV, true},
	}

	for _, tt := range tests {
		format, compressed, err := seriesio.FormatFromPath(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.format, format, tt.path)
		assert.Equal(t, tt.compressed, compressed, tt.path)
	}

	_, _, err := seriesio.FormatFromPath("chart.txt")
	require.ErrorIs(t, err, seriesio.ErrUnknownFormat)

	_, err = seriesio.ParseFormat("xml")
	require.ErrorIs(t, err, seriesio.ErrUnknownFormat)

	f, err := seriesio.ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, seriesio.FormatYAML, f)
}

func TestWriteReadFile_LZ4(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	chart, err := seriesio.Decode(strings.NewReader(sampleJSON), seriesio.FormatJSON)
	require.NoError(t, err)

	for _, name := range []string{"chart.json.lz4", "chart.yaml", "chart.csv.lz4"} {
		path := filepath.Join(dir, name)
		require.NoError(t, seriesio.WriteFile(path, chart), name)

		back, readErr := seriesio.ReadFile(path, seriesio.ReadOptions{Schema: true})
		require.NoError(t, readErr, name)
		require.Len(t, back.Series, 2, name)
		assert.Equal(t, 12.0, back.Series[0].Points[1].Value, name)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "chart.json.lz4"))
	require.NoError(t, err)
	assert.False(t, bytes.HasPrefix(raw, []byte("{")), "lz4 output is framed")
}

func TestReadFile_SizeLimit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chart.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o600))

	_, err := seriesio.ReadFile(path, seriesio.ReadOptions{MaxBytes: 16})
	require.ErrorIs(t, err, seriesio.ErrInputTooLarge)
}

func TestValidateJSON(t *testing.T) {
	t.Parallel()

	require.NoError(t, seriesio.ValidateJSON([]byte(sampleJSON)))

	err := seriesio.ValidateJSON([]byte(`{"series": [{"name": "a", "points": [{"position": "x", "value": 1}]}]}`))
	require.ErrorIs(t, err, seriesio.ErrSchemaMismatch)

	var schemaErr *seriesio.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.NotEmpty(t, schemaErr.Violations)

	require.ErrorIs(t, seriesio.ValidateJSON([]byte(`{"title": "no series"}`)), seriesio.ErrSchemaMismatch)
	assert.NotEmpty(t, seriesio.Schema())
}

func TestParse_SchemaOnlyForJSON(t *testing.T) {
	t.Parallel()

	_, err := seriesio.Parse([]byte(`{"series": [], "extra": 1}`), seriesio.FormatJSON, true)
	require.ErrorIs(t, err, seriesio.ErrSchemaMismatch)

	chart, err := seriesio.Parse([]byte(`{"series": [], "extra": 1}`), seriesio.FormatJSON, false)
	require.NoError(t, err)
	assert.Empty(t, chart.Series)

	chart, err = seriesio.Parse([]byte(sampleYAML), seriesio.FormatYAML, true)
	require.NoError(t, err)
	assert.Len(t, chart.Series, 2)
}

func TestChartNormalize(t *testing.T) {
	t.Parallel()

	unsorted := func() *seriesio.Chart {
		return &seriesio.Chart{Series: []series.Series{{
			Name:   "a",
			Points: []series.Point{{Position: 2, Value: 1}, {Position: 1, Value: 2}},
		}}}
	}

	require.ErrorIs(t, unsorted().Normalize(true), series.ErrUnsortedPositions)

	chart := unsorted()
	require.NoError(t, chart.Normalize(false))
	assert.Equal(t, []float64{1, 2}, series.Positions(chart.Series[0]))

	dup := &seriesio.Chart{Series: []series.Series{{Name: "a"}, {Name: "a"}}}
	require.ErrorIs(t, dup.Normalize(false), seriesio.ErrDuplicateName)

	for _, strict := range []bool{true, false} {
		inf := &seriesio.Chart{Series: []series.Series{{
			Name:   "a",
			Points: []series.Point{{Position: 0}, {Position: math.Inf(1)}},
		}}}
		require.ErrorIs(t, inf.Normalize(strict), series.ErrNonFinitePosition)
	}
}

func TestDecode_YAMLInfinityRejectedOnNormalize(t *testing.T) {
	t.Parallel()

	doc := "series:\n  - name: a\n    points:\n      - {position: 0, value: 1}\n      - {position: .inf, value: 2}\n"

	chart, err := seriesio.Decode(strings.NewReader(doc), seriesio.FormatYAML)
	require.NoError(t, err)
	require.ErrorIs(t, chart.Normalize(false), series.ErrNonFinitePosition)
}
