package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
)

var errInvalidChart = errors.New("chart is invalid")

// NewValidateCommand creates the validate subcommand.
func NewValidateCommand(g *Globals) *cobra.Command {
	var (
		maxInput          string
		colorize, nocolor bool
	)

	cmd := &cobra.Command{
		Use:   "validate <chart-file|->",
		Short: "Validate a chart document",
		Long: `Validate a chart document: JSON documents are checked against the chart
schema, then series names must be unique and positions strictly ascending.
Exits with status 2 when the document is invalid.

Examples:
  stackline validate energy.json
  stackline validate - < energy.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if nocolor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			} else if colorize {
				color.NoColor = false //nolint:reassign // intentional override of library global
			}

			rt, err := setup(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer rt.close()

			limit := rt.cfg.InputMaxBytes()
			if maxInput != "" {
				limit, err = parseSize(maxInput)
				if err != nil {
					return err
				}
			}

			return rt.validate(args[0], limit, g.Quiet)
		},
	}

	cmd.Flags().StringVar(&maxInput, flagMaxInput, "", "maximum input size, e.g. 64MB (default from config)")
	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func (rt *runtime) validate(path string, limit int64, quiet bool) error {
	chart, err := seriesio.ReadFile(path, seriesio.ReadOptions{MaxBytes: limit, Schema: true})
	if err == nil {
		err = chart.Normalize(true)
	}

	if err == nil {
		if !quiet {
			color.New(color.FgGreen).Fprintf(rt.stdout, "Chart is valid (%s)\n", path)
			color.New(color.FgGreen).Fprintf(rt.stdout, "  Series: %d, uniform domain: %d steps\n",
				len(chart.Series), series.UniformSteps(chart.Series))
		}

		return nil
	}

	color.New(color.FgRed).Fprintf(rt.stdout, "Chart validation failed (%s)\n", path)
	fmt.Fprintf(rt.stdout, "\nErrors:\n")

	for _, line := range violations(err) {
		color.New(color.FgRed).Fprintf(rt.stdout, "  - %s\n", line)
	}

	return &ExitError{Code: ExitCodeValidationFailure, Err: fmt.Errorf("%w: %s", errInvalidChart, path)}
}

// violations flattens schema violations and joined errors into lines.
func violations(err error) []string {
	var schemaErr *seriesio.SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr.Violations
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, e.Error())
		}

		return lines
	}

	return []string{err.Error()}
}
