// Package batch recomputes the derived chart_stacks table for every
// published chart in a store.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Sumatoshi-tech/stackline/pkg/lru"
	"github.com/Sumatoshi-tech/stackline/pkg/observability"
	"github.com/Sumatoshi-tech/stackline/pkg/series"
	"github.com/Sumatoshi-tech/stackline/pkg/store"
)

// ErrDomainTooLarge is returned for a chart whose uniform domain exceeds
// Options.MaxSteps.
var ErrDomainTooLarge = errors.New("uniform domain too large")

// Chart outcomes recorded in metrics.
const (
	resultOK      = "ok"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

// Defaults mirror the config package.
const (
	DefaultConcurrency  = 10
	DefaultPrefetch     = 300
	DefaultCacheEntries = 1000
)

// Source is the store surface the batch job reads and writes.
type Source interface {
	PublishedCharts(ctx context.Context) ([]store.Chart, error)
	ChartSeries(ctx context.Context, chartID int64) ([]store.ChartSeries, error)
	TopColumns(ctx context.Context, n int) ([]string, error)
	LoadColumn(ctx context.Context, slug string) (store.Column, error)
	ReplaceStacks(ctx context.Context, rows []store.StackRow) error
}

// Options configures a Runner.
type Options struct {
	Concurrency  int
	Prefetch     int
	CacheEntries int
	// CacheBytes bounds the column cache by store.Column.Size; zero leaves
	// only the entry bound.
	CacheBytes int64
	Fill         series.FillPolicy
	// MaxSteps bounds uniform domains; zero disables the check.
	MaxSteps int
}

// Result summarizes one run.
type Result struct {
	Charts         int
	Skipped        int
	Failed         int
	SeriesSkipped  int
	Rows           int
	ColumnsCached  int64
	ColumnsFetched int64
	Cache          lru.Stats
	Duration       time.Duration
}

// Runner executes batch runs against a Source.
type Runner struct {
	src     Source
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.SeriesMetrics

	cache   *lru.Cache[string, store.Column]
	loads   singleflight.Group
	cached  atomic.Int64
	fetched atomic.Int64
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithTracer sets the tracer used for run and chart spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics sets the series metrics recorder.
func WithMetrics(metrics *observability.SeriesMetrics) Option {
	return func(r *Runner) { r.metrics = metrics }
}

// New creates a Runner. Non-positive options fall back to the defaults.
func New(src Source, opts Options, options ...Option) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	if opts.Prefetch < 0 {
		opts.Prefetch = 0
	}

	if opts.CacheEntries <= 0 {
		opts.CacheEntries = DefaultCacheEntries
	}

	if opts.Fill == "" {
		opts.Fill = series.FillZero
	}

	cacheOpts := []lru.Option[string, store.Column]{lru.WithMaxEntries[string, store.Column](opts.CacheEntries)}
	if opts.CacheBytes > 0 {
		cacheOpts = append(cacheOpts, lru.WithMaxBytes[string](opts.CacheBytes, store.Column.Size))
	}

	r := &Runner{
		src:    src,
		opts:   opts,
		logger: slog.New(slog.DiscardHandler),
		tracer: tracenoop.NewTracerProvider().Tracer("batch"),
		cache:  lru.New(cacheOpts...),
	}

	for _, o := range options {
		o(r)
	}

	return r
}

// Run prefetches popular columns, aligns and stacks every published chart,
// then replaces chart_stacks in one transaction. Missing column data skips
// the affected series and is logged; store errors abort the run.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "stackline.batch.run")
	defer span.End()

	charts, err := r.src.PublishedCharts(ctx)
	if err != nil {
		return r.fail(span, Result{}, err)
	}

	r.logger.InfoContext(ctx, "batch started", "charts", len(charts), "concurrency", r.opts.Concurrency)

	err = r.prefetch(ctx)
	if err != nil {
		return r.fail(span, Result{}, err)
	}

	outcomes := make([]chartOutcome, len(charts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Concurrency)

	for idx, chart := range charts {
		group.Go(func() error {
			outcome, chartErr := r.processChart(groupCtx, chart)
			outcomes[idx] = outcome

			return chartErr
		})
	}

	err = group.Wait()
	if err != nil {
		return r.fail(span, Result{}, err)
	}

	res, rows := r.collect(outcomes)

	err = r.src.ReplaceStacks(ctx, rows)
	if err != nil {
		return r.fail(span, res, err)
	}

	res.ColumnsCached = r.cached.Load()
	res.ColumnsFetched = r.fetched.Load()
	res.Cache = r.cache.Stats()
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("stackline.batch.charts", res.Charts),
		attribute.Int("stackline.batch.rows", res.Rows),
	)

	r.logger.InfoContext(ctx, "batch finished",
		"charts", res.Charts,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"rows", humanize.Comma(int64(res.Rows)),
		"columns_cached", res.ColumnsCached,
		"columns_fetched", res.ColumnsFetched,
		"cache_entries", res.Cache.Entries,
		"cache_size", humanize.Bytes(uint64(res.Cache.CurrentSize)), //nolint:gosec // sizes are non-negative.
		"cache_hit_rate", fmt.Sprintf("%.2f", res.Cache.HitRate()),
		"duration", res.Duration.Round(time.Millisecond),
	)

	return res, nil
}

func (r *Runner) fail(span trace.Span, res Result, err error) (Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return res, fmt.Errorf("batch: %w", err)
}

func (r *Runner) collect(outcomes []chartOutcome) (Result, []store.StackRow) {
	var (
		res  Result
		rows []store.StackRow
	)

	for _, oc := range outcomes {
		switch oc.result {
		case resultOK:
			res.Charts++
		case resultSkipped:
			res.Skipped++
		case resultFailed:
			res.Failed++
		}

		res.SeriesSkipped += oc.seriesSkipped
		rows = append(rows, oc.rows...)
	}

	res.Rows = len(rows)

	return res, rows
}

// prefetch loads the most referenced columns into the cache.
func (r *Runner) prefetch(ctx context.Context) error {
	if r.opts.Prefetch == 0 {
		return nil
	}

	slugs, err := r.src.TopColumns(ctx, r.opts.Prefetch)
	if err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.opts.Concurrency)

	for _, slug := range slugs {
		group.Go(func() error {
			col, loadErr := r.src.LoadColumn(groupCtx, slug)
			if loadErr != nil {
				return fmt.Errorf("prefetch %s: %w", slug, loadErr)
			}

			r.cache.Put(slug, col)

			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "prefetched columns", "columns", len(slugs))

	return nil
}

// column returns a column from the cache, loading it on a miss. Concurrent
// misses for the same slug share one query.
func (r *Runner) column(ctx context.Context, slug string) (store.Column, error) {
	if col, ok := r.cache.Get(slug); ok {
		r.cached.Add(1)
		r.recordLoad(ctx, observability.SourceCached)

		return col, nil
	}

	v, err, _ := r.loads.Do(slug, func() (any, error) {
		col, loadErr := r.src.LoadColumn(ctx, slug)
		if loadErr != nil {
			return nil, loadErr
		}

		r.cache.Put(slug, col)

		return col, nil
	})
	if err != nil {
		return store.Column{}, fmt.Errorf("load column %s: %w", slug, err)
	}

	r.fetched.Add(1)
	r.recordLoad(ctx, observability.SourceFetched)

	col, _ := v.(store.Column)

	return col, nil
}

func (r *Runner) recordLoad(ctx context.Context, source string) {
	if r.metrics != nil {
		r.metrics.RecordColumnLoad(ctx, source)
	}
}

// String renders the result on one line.
func (res Result) String() string {
	return fmt.Sprintf("%d charts, %d skipped, %d failed, %s rows, columns %d cached / %d fetched (hit rate %.0f%%)",
		res.Charts, res.Skipped, res.Failed, humanize.Comma(int64(res.Rows)), res.ColumnsCached, res.ColumnsFetched,
		res.Cache.HitRate()*100)
}
