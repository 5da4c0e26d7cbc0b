package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Chart is a stored chart definition.
type Chart struct {
	ID             int64
	Slug           string
	Title          string
	Published      bool
	UniformSpacing bool
}

// ChartSeries references the column data one series of a chart draws.
type ChartSeries struct {
	ChartID    int64
	Order      int
	Entity     string
	ColumnSlug string
	Color      string
}

const chartColumns = `id, slug, title, published, uniform_spacing`

func scanChart(row interface{ Scan(dest ...any) error }) (Chart, error) {
	var c Chart

	err := row.Scan(&c.ID, &c.Slug, &c.Title, &c.Published, &c.UniformSpacing)

	return c, err
}

// PutChart inserts or replaces a chart and its series list, returning the
// chart id.
func (s *Store) PutChart(ctx context.Context, chart Chart, chartSeries []ChartSeries) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin put chart: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	var id int64

	err = tx.QueryRowContext(ctx, `
		INSERT INTO charts (slug, title, published, uniform_spacing) VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			published = excluded.published,
			uniform_spacing = excluded.uniform_spacing
		RETURNING id`,
		chart.Slug, chart.Title, chart.Published, chart.UniformSpacing,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert chart %s: %w", chart.Slug, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM chart_series WHERE chart_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("clear series of chart %s: %w", chart.Slug, err)
	}

	for idx, cs := range chartSeries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chart_series (chart_id, ord, entity, column_slug, color) VALUES (?, ?, ?, ?, ?)`,
			id, idx, cs.Entity, cs.ColumnSlug, cs.Color,
		)
		if err != nil {
			return 0, fmt.Errorf("insert series %s of chart %s: %w", cs.Entity, chart.Slug, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("commit put chart: %w", err)
	}

	return id, nil
}

// ChartBySlug looks a chart up by slug.
func (s *Store) ChartBySlug(ctx context.Context, slug string) (Chart, error) {
	c, err := scanChart(s.db.QueryRowContext(ctx,
		`SELECT `+chartColumns+` FROM charts WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return Chart{}, fmt.Errorf("chart %s: %w", slug, ErrNotFound)
	}

	if err != nil {
		return Chart{}, fmt.Errorf("chart %s: %w", slug, err)
	}

	return c, nil
}

// PublishedCharts lists published charts ordered by id.
func (s *Store) PublishedCharts(ctx context.Context) ([]Chart, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chartColumns+` FROM charts WHERE published = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query published charts: %w", err)
	}
	defer rows.Close()

	var out []Chart

	for rows.Next() {
		c, scanErr := scanChart(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan chart: %w", scanErr)
		}

		out = append(out, c)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate charts: %w", err)
	}

	return out, nil
}

// ChartSeries lists a chart's series in stacking order.
func (s *Store) ChartSeries(ctx context.Context, chartID int64) ([]ChartSeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chart_id, ord, entity, column_slug, color
		FROM chart_series WHERE chart_id = ? ORDER BY ord`, chartID)
	if err != nil {
		return nil, fmt.Errorf("query series of chart %d: %w", chartID, err)
	}
	defer rows.Close()

	var out []ChartSeries

	for rows.Next() {
		var cs ChartSeries

		err = rows.Scan(&cs.ChartID, &cs.Order, &cs.Entity, &cs.ColumnSlug, &cs.Color)
		if err != nil {
			return nil, fmt.Errorf("scan chart series: %w", err)
		}

		out = append(out, cs)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate chart series: %w", err)
	}

	return out, nil
}

// TopColumns returns up to n column slugs ordered by how many series of
// published charts reference them.
func (s *Store) TopColumns(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.column_slug, COUNT(*) AS uses
		FROM chart_series cs JOIN charts c ON c.id = cs.chart_id
		WHERE c.published = 1
		GROUP BY cs.column_slug
		ORDER BY uses DESC, cs.column_slug
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query top columns: %w", err)
	}
	defer rows.Close()

	var out []string

	for rows.Next() {
		var (
			slug string
			uses int
		)

		err = rows.Scan(&slug, &uses)
		if err != nil {
			return nil, fmt.Errorf("scan top column: %w", err)
		}

		out = append(out, slug)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate top columns: %w", err)
	}

	return out, nil
}
