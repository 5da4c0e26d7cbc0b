package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/report"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
)

// NewAlignCommand creates the align subcommand.
func NewAlignCommand(g *Globals) *cobra.Command {
	var (
		flags chartFlags
		table bool
	)

	cmd := &cobra.Command{
		Use:   "align <chart-file|->",
		Short: "Align chart series onto a shared position domain",
		Long: `Align every series of a chart onto the sorted union of their positions.
Positions a series lacks are filled with zero-valued (or missing) points.

Examples:
  stackline align energy.json
  stackline align --uniform --fill missing energy.yaml -o aligned.csv
  stackline align --table energy.csv.lz4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, err := setup(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer rt.close()

			_, done := rt.track(cmd.Context(), "align")
			defer func() { done(err) }()

			chart, opts, err := rt.loadChart(cmd, args[0], &flags)
			if err != nil {
				return err
			}

			raw := chart.Series
			chart.Series = series.Align(raw, opts)

			rt.recordTransform(cmd, raw, chart.Series)
			rt.logger.Debug("aligned chart", "series", len(chart.Series), "uniform", opts.EnforceUniformSpacing)

			if table {
				return report.Fprint(rt.stdout, chart.Title, raw, chart.Series, report.TableOptions{})
			}

			return rt.writeChart(flags.output, chart)
		},
	}

	flags.register(cmd, seriesio.StdioPath)
	cmd.Flags().BoolVar(&table, "table", false, "print a terminal table instead of a chart document")

	return cmd
}

func (rt *runtime) writeChart(path string, chart *seriesio.Chart) error {
	if path == seriesio.StdioPath {
		return seriesio.Encode(rt.stdout, chart, seriesio.FormatJSON)
	}

	return seriesio.WriteFile(path, chart)
}

func (rt *runtime) recordTransform(cmd *cobra.Command, raw, out []series.Series) {
	positions := 0
	if len(out) > 0 {
		positions = len(out[0].Points)
	}

	summary := report.Summarize(raw, out)
	rt.series.RecordTransform(cmd.Context(), len(out), positions, summary.Filled)
}
