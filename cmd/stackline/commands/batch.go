package commands

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/stackline/pkg/batch"
	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/store"
)

const flagDB = "db"

// NewBatchCommand creates the batch subcommand.
func NewBatchCommand(g *Globals) *cobra.Command {
	var (
		dbPath      string
		concurrency int
		prefetch    int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Recompute stacked rows for every published chart in the store",
		Long: `Load every published chart from the SQLite store, align and stack its
series, and replace the chart_stacks table in a single transaction.

The most referenced columns are prefetched into an in-memory cache first.
Series whose column data is missing are logged and skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			rt, err := setup(cmd, g, observability.ModeBatch, true)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, done := rt.track(cmd.Context(), "batch")
			defer func() { done(err) }()

			st, err := store.Open(ctx, firstNonEmpty(dbPath, rt.cfg.Store.Path))
			if err != nil {
				return err
			}
			defer st.Close()

			addr := firstNonEmpty(metricsAddr, rt.cfg.Telemetry.MetricsAddr)
			if addr != "" {
				srv, srvErr := observability.NewMetricsServer(addr, rt.providers.MetricsHandler, rt.logger, st.Ping)
				if srvErr != nil {
					return srvErr
				}

				defer func() { _ = srv.Close(context.Background()) }()

				rt.logger.Info("serving metrics", "addr", srv.Addr())
			}

			fill, _ := series.ParseFillPolicy(rt.cfg.Align.Fill)

			opts := batch.Options{
				Concurrency:  rt.cfg.Batch.Concurrency,
				Prefetch:     rt.cfg.Batch.Prefetch,
				CacheEntries: rt.cfg.Batch.CacheEntries,
				CacheBytes:   rt.cfg.BatchCacheBytes(),
				Fill:         fill,
				MaxSteps:     rt.cfg.Align.MaxSteps,
			}

			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}

			if cmd.Flags().Changed("prefetch") {
				opts.Prefetch = prefetch
			}

			runner := batch.New(st, opts,
				batch.WithLogger(rt.logger),
				batch.WithTracer(rt.providers.Tracer),
				batch.WithMetrics(rt.series),
			)

			res, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			if !g.Quiet {
				color.New(color.FgGreen).Fprintf(rt.stdout, "Batch complete: %s\n", res)

				if res.Failed > 0 || res.SeriesSkipped > 0 {
					color.New(color.FgYellow).Fprintf(rt.stdout, "  %d charts failed, %d series skipped (see log)\n",
						res.Failed, res.SeriesSkipped)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, flagDB, "", "SQLite store path (default from config)")
	cmd.Flags().IntVar(&concurrency, "concurrency", batch.DefaultConcurrency, "charts processed in parallel")
	cmd.Flags().IntVar(&prefetch, "prefetch", batch.DefaultPrefetch, "most used columns to load before processing")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")

	return cmd
}

// NewImportCommand creates the import subcommand.
func NewImportCommand(g *Globals) *cobra.Command {
	var (
		dbPath  string
		slug    string
		column  string
		publish bool
	)

	cmd := &cobra.Command{
		Use:   "import <chart-file|->",
		Short: "Store a chart document and its column data in the SQLite store",
		Long: `Store a chart document as a chart definition plus column data. Each series
becomes an entity of its column (the series column, or --column, or the chart
slug), so later batch runs can restack it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			rt, err := setup(cmd, g, observability.ModeCLI, false)
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, done := rt.track(cmd.Context(), "import")
			defer func() { done(err) }()

			var flags chartFlags

			chart, _, err := rt.loadChart(cmd, args[0], &flags)
			if err != nil {
				return err
			}

			chartSlug := firstNonEmpty(slug, chart.Slug)
			if chartSlug == "" {
				return fmt.Errorf("%w: set --slug or the document slug", errNoSlug)
			}

			st, err := store.Open(ctx, firstNonEmpty(dbPath, rt.cfg.Store.Path))
			if err != nil {
				return err
			}
			defer st.Close()

			refs := make([]store.ChartSeries, len(chart.Series))

			for i, s := range chart.Series {
				col := firstNonEmpty(column, s.ColumnSlug, chartSlug)
				refs[i] = store.ChartSeries{Entity: s.Name, ColumnSlug: col, Color: s.Color}

				samples := make([]store.Sample, 0, len(s.Points))
				for _, p := range s.Points {
					if !p.Missing {
						samples = append(samples, store.Sample{Position: p.Position, Value: p.Value})
					}
				}

				err = st.PutColumn(ctx, col, s.Name, samples)
				if err != nil {
					return err
				}
			}

			id, err := st.PutChart(ctx, store.Chart{
				Slug:           chartSlug,
				Title:          chart.Title,
				Published:      publish,
				UniformSpacing: chart.UniformSpacing,
			}, refs)
			if err != nil {
				return err
			}

			rt.logger.Info("imported chart", "slug", chartSlug, "id", id, "series", len(refs))

			if !g.Quiet {
				fmt.Fprintf(rt.stdout, "Imported %s (id %d, %d series)\n", chartSlug, id, len(refs))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, flagDB, "", "SQLite store path (default from config)")
	cmd.Flags().StringVar(&slug, "slug", "", "chart slug (default: document slug)")
	cmd.Flags().StringVar(&column, "column", "", "column slug for every series (default: series column)")
	cmd.Flags().BoolVar(&publish, "publish", true, "mark the chart published so batch runs include it")

	return cmd
}
