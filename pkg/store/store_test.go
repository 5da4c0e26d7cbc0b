package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/stackline/pkg/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "nested", "stackline.db"))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, st.Close()) })

	return st
}

func TestOpen_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	st := openStore(t)

	require.NoError(t, st.Migrate(context.Background()))
	assert.Equal(t, "stackline.db", filepath.Base(st.Path()))
}

func TestPing(t *testing.T) {
	t.Parallel()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "ping.db"))
	require.NoError(t, err)

	require.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Close())
	assert.Error(t, st.Ping(context.Background()))
}

func TestPutChart_Upserts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openStore(t)

	id, err := st.PutChart(ctx, store.Chart{Slug: "energy", Title: "Energy", Published: true}, []store.ChartSeries{
		{Entity: "Canada", ColumnSlug: "primary_energy"},
		{Entity: "USA", ColumnSlug: "primary_energy", Color: "blue"},
	})
	require.NoError(t, err)

	again, err := st.PutChart(ctx, store.Chart{Slug: "energy", Title: "Energy mix", UniformSpacing: true}, []store.ChartSeries{
		{Entity: "France", ColumnSlug: "primary_energy"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	chart, err := st.ChartBySlug(ctx, "energy")
	require.NoError(t, err)
	assert.Equal(t, "Energy mix", chart.Title)
	assert.False(t, chart.Published)
	assert.True(t, chart.UniformSpacing)

	cs, err := st.ChartSeries(ctx, id)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "France", cs[0].Entity)
	assert.Equal(t, 0, cs[0].Order)
}

func TestChartBySlug_NotFound(t *testing.T) {
	t.Parallel()

	_, err := openStore(t).ChartBySlug(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPublishedChartsAndTopColumns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openStore(t)

	_, err := st.PutChart(ctx, store.Chart{Slug: "a", Published: true}, []store.ChartSeries{
		{Entity: "x", ColumnSlug: "gdp"},
		{Entity: "y", ColumnSlug: "gdp"},
		{Entity: "x", ColumnSlug: "pop"},
	})
	require.NoError(t, err)

	_, err = st.PutChart(ctx, store.Chart{Slug: "b", Published: true}, []store.ChartSeries{
		{Entity: "x", ColumnSlug: "pop"},
		{Entity: "x", ColumnSlug: "co2"},
	})
	require.NoError(t, err)

	_, err = st.PutChart(ctx, store.Chart{Slug: "draft"}, []store.ChartSeries{
		{Entity: "x", ColumnSlug: "co2"},
		{Entity: "y", ColumnSlug: "co2"},
	})
	require.NoError(t, err)

	charts, err := st.PublishedCharts(ctx)
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Equal(t, "a", charts[0].Slug)
	assert.Equal(t, "b", charts[1].Slug)

	top, err := st.TopColumns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"gdp", "pop"}, top)

	none, err := st.TopColumns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPutAndLoadColumn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openStore(t)

	require.NoError(t, st.PutColumn(ctx, "gdp", "Canada", []store.Sample{{Position: 2001, Value: 2}, {Position: 2000, Value: 1}}))
	require.NoError(t, st.PutColumn(ctx, "gdp", "USA", []store.Sample{{Position: 2000, Value: 5}}))
	require.NoError(t, st.PutColumn(ctx, "gdp", "USA", []store.Sample{{Position: 2002, Value: 7}}))

	col, err := st.LoadColumn(ctx, "gdp")
	require.NoError(t, err)

	canada, ok := col.Samples("Canada")
	require.True(t, ok)
	assert.Equal(t, []store.Sample{{Position: 2000, Value: 1}, {Position: 2001, Value: 2}}, canada)

	usa, ok := col.Samples("USA")
	require.True(t, ok)
	assert.Equal(t, []store.Sample{{Position: 2002, Value: 7}}, usa)

	_, ok = col.Samples("France")
	assert.False(t, ok)

	// slug + entity names + 16 bytes per sample.
	assert.Equal(t, int64(3+6+2*16+3+16), col.Size())

	empty, err := st.LoadColumn(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, empty.Entities)
}

func TestReplaceStacks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := openStore(t)

	require.NoError(t, st.ReplaceStacks(ctx, []store.StackRow{
		{ChartID: 1, SeriesName: "a", Position: 1, Value: 2},
		{ChartID: 2, SeriesName: "b", Position: 1, Value: 3},
	}))

	rows := []store.StackRow{
		{ChartID: 1, SeriesName: "a", Position: 1, Value: 2, Offset: 0},
		{ChartID: 1, SeriesName: "b", Position: 1, Value: 0, Offset: 2, Missing: true},
	}
	require.NoError(t, st.ReplaceStacks(ctx, rows))

	n, err := st.CountStacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := st.Stacks(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	other, err := st.Stacks(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, other)
}
