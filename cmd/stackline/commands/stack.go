package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/report"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
)

// NewStackCommand creates the stack subcommand.
func NewStackCommand(g *Globals) *cobra.Command {
	var (
		flags      chartFlags
		table      bool
		totals     bool
		prealigned bool
	)

	cmd := &cobra.Command{
		Use:   "stack <chart-file|->",
		Short: "Align chart series and compute stacking offsets",
		Long: `Align the series of a chart, then give every point an offset equal to the
sum of the values of the series below it at the same position.

With --prealigned the input is stacked as-is; with stack.strict set in the
config, unaligned input is rejected instead of stacked best-effort.

Examples:
  stackline stack energy.json -o stacked.json
  stackline stack --uniform --table --totals energy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, err := setup(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer rt.close()

			_, done := rt.track(cmd.Context(), "stack")
			defer func() { done(err) }()

			chart, opts, err := rt.loadChart(cmd, args[0], &flags)
			if err != nil {
				return err
			}

			raw := chart.Series

			switch {
			case !prealigned:
				chart.Series = series.AlignAndStack(raw, opts)
			case rt.cfg.Stack.Strict:
				chart.Series, err = series.StackStrict(raw)
				if err != nil {
					return err
				}
			default:
				chart.Series = series.Stack(raw)
			}

			rt.recordTransform(cmd, raw, chart.Series)

			if table {
				return report.Fprint(rt.stdout, chart.Title, raw, chart.Series,
					report.TableOptions{ShowOffsets: true, ShowTotals: totals})
			}

			return rt.writeChart(flags.output, chart)
		},
	}

	flags.register(cmd, seriesio.StdioPath)
	cmd.Flags().BoolVar(&table, "table", false, "print a terminal table instead of a chart document")
	cmd.Flags().BoolVar(&totals, "totals", false, "add a stack total column to --table output")
	cmd.Flags().BoolVar(&prealigned, "prealigned", false, "skip alignment; input series are already aligned")

	return cmd
}
