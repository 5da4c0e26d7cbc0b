package commands

import (
	"bytes"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/plotpage"
	"github.com/Sumatoshi-tech/stackline/pkg/report"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

const renderFilePerm = 0o644

// NewRenderCommand creates the render subcommand.
func NewRenderCommand(g *Globals) *cobra.Command {
	var (
		flags chartFlags
		kind  string
		theme string
		title string
	)

	cmd := &cobra.Command{
		Use:   "render <chart-file|-> -o page.html",
		Short: "Render a stacked area or bar chart as a self-contained HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if flags.output == "" {
				return errNoOutput
			}

			rt, err := setup(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer rt.close()

			_, done := rt.track(cmd.Context(), "render")
			defer func() { done(err) }()

			chart, opts, err := rt.loadChart(cmd, args[0], &flags)
			if err != nil {
				return err
			}

			cfg, chartKind, err := rt.chartConfig(kind, theme)
			if err != nil {
				return err
			}

			stacked := series.AlignAndStack(chart.Series, opts)
			rt.recordTransform(cmd, chart.Series, stacked)

			view, err := plotpage.Stacked(cfg, chartKind, stacked)
			if err != nil {
				return err
			}

			pageTitle := firstNonEmpty(title, chart.Title, rt.cfg.Render.Title)
			summary := report.Summarize(chart.Series, stacked)

			page := plotpage.NewPage(pageTitle, summary.String()).WithTheme(cfg.Theme)
			page.AddStat("Series", humanize.Comma(int64(summary.Series)))
			page.AddStat("Positions", humanize.Comma(int64(summary.Positions)))
			page.AddStat("Filled", humanize.Comma(int64(summary.Filled)))
			page.Add(plotpage.Section{Title: pageTitle, Chart: view})

			var buf bytes.Buffer

			err = page.Render(&buf)
			if err != nil {
				return err
			}

			if flags.output == "-" {
				_, err = rt.stdout.Write(buf.Bytes())

				return err
			}

			err = os.WriteFile(flags.output, buf.Bytes(), renderFilePerm)
			if err != nil {
				return fmt.Errorf("write %s: %w", flags.output, err)
			}

			rt.logger.Info("rendered chart", "output", flags.output, "size", humanize.Bytes(uint64(buf.Len())))

			return nil
		},
	}

	flags.register(cmd, "")
	cmd.Flags().StringVar(&kind, "kind", "", "chart kind: area or bar (default from config)")
	cmd.Flags().StringVar(&theme, "theme", "", "page theme: dark or light (default from config)")
	cmd.Flags().StringVar(&title, "title", "", "page title (default: document title)")

	return cmd
}

func (rt *runtime) chartConfig(kindFlag, themeFlag string) (plotpage.ChartConfig, plotpage.Kind, error) {
	kind, err := plotpage.ParseKind(firstNonEmpty(kindFlag, rt.cfg.Render.Kind))
	if err != nil {
		return plotpage.ChartConfig{}, "", err
	}

	theme, err := plotpage.ParseTheme(firstNonEmpty(themeFlag, rt.cfg.Render.Theme))
	if err != nil {
		return plotpage.ChartConfig{}, "", fmt.Errorf("%w: %q", err, themeFlag)
	}

	cfg := plotpage.DefaultChartConfig()
	cfg.Theme = theme
	cfg.Style.Width = rt.cfg.Render.Width
	cfg.Style.Height = rt.cfg.Render.Height

	return cfg, kind, nil
}
