package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/mcp"
	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/plotpage"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand(g *Globals) *cobra.Command {
	var (
		debug       bool
		metricsAddr string
		memoEntries int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes stackline as tools that AI agents can discover and
invoke:
  - series_align: align chart series onto a shared position domain
  - series_stack: align and compute stacking offsets
  - series_render: render a stacked area or bar chart as HTML`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if debug {
				g.Verbose = true
			}

			rt, err := setup(cmd, g, observability.ModeMCP, metricsAddr != "")
			if err != nil {
				return err
			}
			defer rt.close()

			if metricsAddr != "" {
				srv, srvErr := observability.NewMetricsServer(metricsAddr, rt.providers.MetricsHandler, rt.logger)
				if srvErr != nil {
					return srvErr
				}

				defer func() { _ = srv.Close(context.Background()) }()
			}

			srv := mcp.NewServer(rt.mcpDeps(memoEntries))

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	cmd.Flags().IntVar(&memoEntries, "memo-entries", series.DefaultMemoEntries, "align+stack results cached across calls")

	return cmd
}

func (rt *runtime) mcpDeps(memoEntries int) mcp.ServerDeps {
	fill, _ := series.ParseFillPolicy(rt.cfg.Align.Fill)

	return mcp.ServerDeps{
		Logger:        rt.logger,
		Metrics:       rt.red,
		SeriesMetrics: rt.series,
		Tracer:        rt.providers.Tracer,
		Memo:          series.NewMemo(memoEntries),
		Defaults: mcp.Defaults{
			Fill:     fill,
			MaxSteps: rt.cfg.Align.MaxSteps,
			Schema:   rt.cfg.Input.Schema,
			Strict:   rt.cfg.Stack.Strict,
			Theme:    plotpage.Theme(rt.cfg.Render.Theme),
			Kind:     plotpage.Kind(rt.cfg.Render.Kind),
			Title:    rt.cfg.Render.Title,
		},
	}
}
