package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/seriesio"
)

const (
	flagUniform  = "uniform"
	flagFill     = "fill"
	flagMaxInput = "max-input"
	flagOutput   = "output"
)

// chartFlags are the input and alignment flags shared by align, stack and
// render.
type chartFlags struct {
	uniform  bool
	fill     string
	maxInput string
	output   string
}

func (f *chartFlags) register(cmd *cobra.Command, defaultOutput string) {
	cmd.Flags().BoolVar(&f.uniform, flagUniform, false, "fill every unit step between the smallest and largest position")
	cmd.Flags().StringVar(&f.fill, flagFill, "", "synthesized point policy: zero or missing (default from config)")
	cmd.Flags().StringVar(&f.maxInput, flagMaxInput, "", "maximum input size, e.g. 64MB (default from config)")
	cmd.Flags().StringVarP(&f.output, flagOutput, "o", defaultOutput, "output file, - for stdout")
}

// loadChart reads and normalizes the chart at path and resolves the align
// options: flags override the document, which overrides config.
func (rt *runtime) loadChart(cmd *cobra.Command, path string, f *chartFlags) (*seriesio.Chart, series.AlignOptions, error) {
	maxBytes := rt.cfg.InputMaxBytes()

	if f.maxInput != "" {
		parsed, err := parseSize(f.maxInput)
		if err != nil {
			return nil, series.AlignOptions{}, err
		}

		maxBytes = parsed
	}

	chart, err := seriesio.ReadFile(path, seriesio.ReadOptions{MaxBytes: maxBytes, Schema: rt.cfg.Input.Schema})
	if err != nil {
		return nil, series.AlignOptions{}, fmt.Errorf("read %s: %w", path, err)
	}

	err = chart.Normalize(rt.cfg.Stack.Strict)
	if err != nil {
		return nil, series.AlignOptions{}, fmt.Errorf("read %s: %w", path, err)
	}

	opts := rt.cfg.AlignOptions()
	opts.EnforceUniformSpacing = opts.EnforceUniformSpacing || chart.UniformSpacing

	if cmd.Flags().Changed(flagUniform) {
		opts.EnforceUniformSpacing = f.uniform
	}

	if f.fill != "" {
		fill, ok := series.ParseFillPolicy(f.fill)
		if !ok {
			return nil, series.AlignOptions{}, fmt.Errorf("%w: %q", errInvalidFill, f.fill)
		}

		opts.Fill = fill
	}

	if opts.EnforceUniformSpacing {
		if steps := series.UniformSteps(chart.Series); steps > rt.cfg.Align.MaxSteps {
			return nil, series.AlignOptions{}, fmt.Errorf("%w: %d steps (max %d)", errDomainTooLarge, steps, rt.cfg.Align.MaxSteps)
		}
	}

	return chart, opts, nil
}
