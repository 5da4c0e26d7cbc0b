package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackline/cmd/stackline/commands"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
	"github.com/Sumatoshi-tech/stackline/pkg/store"
)

const energyDoc = `{
  "title": "Energy",
  "slug": "energy",
  "series": [
    {"name": "A", "column": "var", "points": [{"position": 2000, "value": 10}, {"position": 2002, "value": 12}]},
    {"name": "B", "column": "var", "points": [{"position": 2000, "value": 2}]},
    {"name": "C", "column": "var", "points": [{"position": 2000, "value": 6}, {"position": 2003, "value": 4}]}
  ]
}`

const duplicateDoc = `{
  "series": [
    {"name": "A", "points": [{"position": 1, "value": 1}, {"position": 1, "value": 2}]}
  ]
}`

type env struct {
	dir     string
	globals *commands.Globals
}

func newEnv(t *testing.T, extraConfig string) env {
	t.Helper()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "stackline.yaml")

	content := fmt.Sprintf("store:\n  path: %s\nlogging:\n  level: error\n%s",
		filepath.Join(dir, "stackline.db"), extraConfig)
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	return env{dir: dir, globals: &commands.Globals{ConfigPath: cfgPath}}
}

func (e env) file(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func decode(t *testing.T, out string) *seriesio.Chart {
	t.Helper()

	chart, err := seriesio.Parse([]byte(out), seriesio.FormatJSON, false)
	require.NoError(t, err)

	return chart
}

func TestAlignCommand(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)

	out, err := execute(commands.NewAlignCommand(e.globals), doc)
	require.NoError(t, err)

	chart := decode(t, out)
	require.Len(t, chart.Series, 3)

	b := chart.Series[1]
	require.Len(t, b.Points, 3)
	assert.InDelta(t, 2002, b.Points[1].Position, 0)
	assert.InDelta(t, 0, b.Points[1].Value, 0)
	assert.Equal(t, "Energy", chart.Title)
}

func TestAlignCommand_Uniform(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)

	out, err := execute(commands.NewAlignCommand(e.globals), "--uniform", "--fill", "missing", doc)
	require.NoError(t, err)

	b := decode(t, out).Series[1]
	require.Len(t, b.Points, 4)
	assert.False(t, b.Points[0].Missing)
	assert.True(t, b.Points[1].Missing)
	assert.True(t, b.Points[3].Missing)
}

func TestAlignCommand_WritesFile(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)
	dst := filepath.Join(e.dir, "aligned.yaml")

	_, err := execute(commands.NewAlignCommand(e.globals), "-o", dst, doc)
	require.NoError(t, err)

	chart, err := seriesio.ReadFile(dst, seriesio.ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, chart.Series[2].Points, 3)
}

func TestAlignCommand_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config string
		args   []string
		want   string
	}{
		{name: "bad fill", args: []string{"--fill", "bogus"}, want: "fill must be zero or missing"},
		{name: "bad size", args: []string{"--max-input", "lots"}, want: "invalid size"},
		{name: "too small limit", args: []string{"--max-input", "10B"}, want: "read"},
		{
			name:   "domain too large",
			config: "align:\n  max_steps: 2\n",
			args:   []string{"--uniform"},
			want:   "uniform domain too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t, tt.config)
			doc := e.file(t, "energy.json", energyDoc)

			_, err := execute(commands.NewAlignCommand(e.globals), append(tt.args, doc)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAlignCommand_RejectsUnboundedUniformDomain(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		name, content, want string
	}{
		"huge span":    {"wide.json", `{"series": [{"name": "a", "points": [{"position": 0, "value": 1}, {"position": 1e300, "value": 2}]}]}`, "uniform domain too large"},
		"csv infinity": {"wide.csv", "series,position,value\na,0,1\na,Inf,2\n", "not finite"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := newEnv(t, "")
			doc := e.file(t, tt.name, tt.content)

			_, err := execute(commands.NewAlignCommand(e.globals), "--uniform", doc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStackCommand(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)

	out, err := execute(commands.NewStackCommand(e.globals), "--uniform", doc)
	require.NoError(t, err)

	chart := decode(t, out)
	require.Len(t, chart.Series, 3)

	assert.InDelta(t, 10, chart.Series[1].Points[0].Offset, 0)
	assert.InDelta(t, 12, chart.Series[2].Points[0].Offset, 0)
	assert.InDelta(t, 12, chart.Series[1].Points[2].Offset, 0)
	assert.InDelta(t, 0, chart.Series[2].Points[3].Offset, 0)
}

func TestStackCommand_Table(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)

	out, err := execute(commands.NewStackCommand(e.globals), "--uniform", "--table", "--totals", doc)
	require.NoError(t, err)

	assert.Contains(t, out, "Energy")
	assert.Contains(t, out, "2001")
	assert.Contains(t, out, "(+10)")
	assert.Contains(t, out, "4 positions")
}

func TestStackCommand_PrealignedStrict(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "stack:\n  strict: true\n")
	doc := e.file(t, "energy.json", energyDoc)

	_, err := execute(commands.NewStackCommand(e.globals), "--prealigned", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not aligned")
}

func TestRenderCommand(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)
	dst := filepath.Join(e.dir, "energy.html")

	_, err := execute(commands.NewRenderCommand(e.globals), "--kind", "bar", "--theme", "light", "-o", dst, doc)
	require.NoError(t, err)

	html, err := os.ReadFile(dst)
	require.NoError(t, err)

	assert.Contains(t, string(html), "<title>Energy</title>")
	assert.Contains(t, string(html), "echarts")
	assert.Contains(t, string(html), "3 series")
}

func TestRenderCommand_Errors(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)

	_, err := execute(commands.NewRenderCommand(e.globals), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output file is required")

	_, err = execute(commands.NewRenderCommand(e.globals), "--kind", "pie", "-o", "-", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pie")
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")

	out, err := execute(commands.NewValidateCommand(e.globals), e.file(t, "energy.json", energyDoc))
	require.NoError(t, err)
	assert.Contains(t, out, "Chart is valid")
	assert.Contains(t, out, "Series: 3")

	out, err = execute(commands.NewValidateCommand(e.globals), e.file(t, "dup.json", duplicateDoc))
	require.Error(t, err)
	assert.Equal(t, commands.ExitCodeValidationFailure, commands.ExitCode(err))
	assert.Contains(t, out, "Chart validation failed")

	out, err = execute(commands.NewValidateCommand(e.globals), e.file(t, "extra.json", `{"series": [], "colour": 1}`))
	require.Error(t, err)
	assert.Equal(t, commands.ExitCodeValidationFailure, commands.ExitCode(err))
	assert.Contains(t, out, "colour")
}

func TestImportAndBatchCommands(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "energy.json", energyDoc)
	db := filepath.Join(e.dir, "batch.db")

	out, err := execute(commands.NewImportCommand(e.globals), "--db", db, doc)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported energy")

	out, err = execute(commands.NewBatchCommand(e.globals), "--db", db, "--concurrency", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Batch complete")

	ctx := context.Background()

	st, err := store.Open(ctx, db)
	require.NoError(t, err)

	defer st.Close()

	// Three series over the union domain {2000, 2002, 2003}.
	count, err := st.CountStacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, count)
}

func TestImportCommand_RequiresSlug(t *testing.T) {
	t.Parallel()

	e := newEnv(t, "")
	doc := e.file(t, "dup.json", `{"series": [{"name": "A", "points": [{"position": 1, "value": 1}]}]}`)

	_, err := execute(commands.NewImportCommand(e.globals), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chart slug is required")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")

	assert.Equal(t, 0, commands.ExitCode(nil))
	assert.Equal(t, 1, commands.ExitCode(base))
	assert.Equal(t, 2, commands.ExitCode(&commands.ExitError{Code: 2, Err: base}))
	assert.Equal(t, 2, commands.ExitCode(fmt.Errorf("wrapped: %w", &commands.ExitError{Code: 2, Err: base})))
	assert.ErrorIs(t, &commands.ExitError{Code: 2, Err: base}, base)
}

func TestCommandMetadata(t *testing.T) {
	t.Parallel()

	g := &commands.Globals{}

	for _, cmd := range []*cobra.Command{
		commands.NewAlignCommand(g),
		commands.NewStackCommand(g),
		commands.NewRenderCommand(g),
		commands.NewValidateCommand(g),
		commands.NewImportCommand(g),
		commands.NewBatchCommand(g),
		commands.NewMCPCommand(g),
	} {
		assert.NotEmpty(t, cmd.Use)
		assert.NotEmpty(t, cmd.Short)
		assert.NotNil(t, cmd.RunE)
	}
}
