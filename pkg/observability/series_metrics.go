package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSeriesTotal      = "stackline.series.total"
	metricPointsFilled     = "stackline.points.filled.total"
	metricDomainSize       = "stackline.domain.size"
	metricChartsTotal      = "stackline.batch.charts.total"
	metricColumnLoadsTotal = "stackline.batch.column.loads.total"

	attrSource = "source"
	attrResult = "result"
)

// Column load sources for RecordColumnLoad.
const (
	SourceCached  = "cached"
	SourceFetched = "fetched"
)

// domainBucketBoundaries covers charts from a handful of years to long
// daily series.
var domainBucketBoundaries = []float64{1, 10, 50, 100, 250, 500, 1000, 5000, 10000, 100000}

// SeriesMetrics holds instruments describing align/stack work.
type SeriesMetrics struct {
	seriesTotal  metric.Int64Counter
	pointsFilled metric.Int64Counter
	domainSize   metric.Int64Histogram
	chartsTotal  metric.Int64Counter
	columnLoads  metric.Int64Counter
}

// NewSeriesMetrics creates the series instruments from mt.
func NewSeriesMetrics(mt metric.Meter) (*SeriesMetrics, error) {
	seriesTotal, err := mt.Int64Counter(metricSeriesTotal,
		metric.WithDescription("Series aligned and stacked"),
		metric.WithUnit("{series}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSeriesTotal, err)
	}

	pointsFilled, err := mt.Int64Counter(metricPointsFilled,
		metric.WithDescription("Points synthesized by alignment"),
		metric.WithUnit("{point}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPointsFilled, err)
	}

	domainSize, err := mt.Int64Histogram(metricDomainSize,
		metric.WithDescription("Positions in the shared domain of a chart"),
		metric.WithUnit("{position}"),
		metric.WithExplicitBucketBoundaries(domainBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDomainSize, err)
	}

	chartsTotal, err := mt.Int64Counter(metricChartsTotal,
		metric.WithDescription("Charts processed by the batch job"),
		metric.WithUnit("{chart}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChartsTotal, err)
	}

	columnLoads, err := mt.Int64Counter(metricColumnLoadsTotal,
		metric.WithDescription("Column data loads by source"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricColumnLoadsTotal, err)
	}

	return &SeriesMetrics{
		seriesTotal:  seriesTotal,
		pointsFilled: pointsFilled,
		domainSize:   domainSize,
		chartsTotal:  chartsTotal,
		columnLoads:  columnLoads,
	}, nil
}

// RecordTransform records one align+stack of a chart.
func (sm *SeriesMetrics) RecordTransform(ctx context.Context, seriesCount, domain, filled int) {
	sm.seriesTotal.Add(ctx, int64(seriesCount))
	sm.pointsFilled.Add(ctx, int64(filled))
	sm.domainSize.Record(ctx, int64(domain))
}

// RecordChart records a batch chart outcome ("ok", "skipped", "error").
func (sm *SeriesMetrics) RecordChart(ctx context.Context, result string) {
	sm.chartsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordColumnLoad records where a column's data came from.
func (sm *SeriesMetrics) RecordColumnLoad(ctx context.Context, source string) {
	sm.columnLoads.Add(ctx, 1, metric.WithAttributes(attribute.String(attrSource, source)))
}
