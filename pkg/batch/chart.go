package batch

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/store"
)

type chartOutcome struct {
	result        string
	seriesSkipped int
	rows          []store.StackRow
}

// processChart builds, aligns and stacks one chart. Only store failures are
// returned as errors; data problems are reflected in the outcome.
func (r *Runner) processChart(ctx context.Context, chart store.Chart) (chartOutcome, error) {
	ctx, span := r.tracer.Start(ctx, "stackline.batch.chart", trace.WithAttributes(
		attribute.String("stackline.chart.slug", chart.Slug),
		attribute.Int64("stackline.chart.id", chart.ID),
	))
	defer span.End()

	ctx = observability.ChartScope(ctx, chart.Slug)

	refs, err := r.src.ChartSeries(ctx, chart.ID)
	if err != nil {
		return chartOutcome{}, fmt.Errorf("chart %s: %w", chart.Slug, err)
	}

	var (
		raw     []series.Series
		skipped int
	)

	for _, ref := range refs {
		col, colErr := r.column(ctx, ref.ColumnSlug)
		if colErr != nil {
			return chartOutcome{}, fmt.Errorf("chart %s: %w", chart.Slug, colErr)
		}

		samples, ok := col.Samples(ref.Entity)
		if !ok {
			r.logger.WarnContext(ctx, "missing data for series", "entity", ref.Entity, "column", ref.ColumnSlug)

			skipped++

			continue
		}

		raw = append(raw, toSeries(ref, samples))
	}

	if len(raw) == 0 {
		r.logger.InfoContext(ctx, "chart has no data, skipping")
		r.recordChart(ctx, resultSkipped)

		return chartOutcome{result: resultSkipped, seriesSkipped: skipped}, nil
	}

	err = series.CheckFinite(raw)
	if err != nil {
		r.logger.ErrorContext(ctx, "chart not stacked", "error", err)
		r.recordChart(ctx, resultFailed)

		return chartOutcome{result: resultFailed, seriesSkipped: skipped}, nil
	}

	opts := series.AlignOptions{EnforceUniformSpacing: chart.UniformSpacing, Fill: r.opts.Fill}

	if opts.EnforceUniformSpacing && r.opts.MaxSteps > 0 {
		if steps := series.UniformSteps(raw); steps > r.opts.MaxSteps {
			r.logger.ErrorContext(ctx, "chart not stacked", "error", ErrDomainTooLarge, "steps", steps, "max_steps", r.opts.MaxSteps)
			r.recordChart(ctx, resultFailed)

			return chartOutcome{result: resultFailed, seriesSkipped: skipped}, nil
		}
	}

	stacked := series.AlignAndStack(raw, opts)
	rows := toRows(chart.ID, stacked)

	if r.metrics != nil {
		r.metrics.RecordTransform(ctx, len(stacked), len(stacked[0].Points), len(rows)-countPoints(raw))
	}

	r.recordChart(ctx, resultOK)
	r.logger.DebugContext(ctx, "chart stacked", "series", len(stacked), "rows", len(rows))

	return chartOutcome{result: resultOK, seriesSkipped: skipped, rows: rows}, nil
}

func (r *Runner) recordChart(ctx context.Context, result string) {
	if r.metrics != nil {
		r.metrics.RecordChart(ctx, result)
	}
}

func toSeries(ref store.ChartSeries, samples []store.Sample) series.Series {
	points := make([]series.Point, len(samples))

	for i, smp := range samples {
		points[i] = series.Point{Position: smp.Position, Time: smp.Position, Value: smp.Value}
	}

	return series.Series{Name: ref.Entity, ColumnSlug: ref.ColumnSlug, Color: ref.Color, Points: points}
}

func toRows(chartID int64, stacked []series.Series) []store.StackRow {
	var rows []store.StackRow

	for _, s := range stacked {
		for _, p := range s.Points {
			rows = append(rows, store.StackRow{
				ChartID:    chartID,
				SeriesName: s.Name,
				Position:   p.Position,
				Value:      p.Value,
				Offset:     p.Offset,
				Missing:    p.Missing,
			})
		}
	}

	return rows
}

func countPoints(in []series.Series) int {
	n := 0
	for _, s := range in {
		n += len(s.Points)
	}

	return n
}
