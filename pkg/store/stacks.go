package store

import (
	"context"
	"fmt"
)

// StackRow is one derived point of a stacked chart.
type StackRow struct {
	ChartID    int64
	SeriesName string
	Position   float64
	Value      float64
	Offset     float64
	Missing    bool
}

// ReplaceStacks clears chart_stacks and inserts rows in a single
// transaction, so readers never observe a partial table.
func (s *Store) ReplaceStacks(ctx context.Context, rows []StackRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace stacks: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `DELETE FROM chart_stacks`)
	if err != nil {
		return fmt.Errorf("clear chart stacks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chart_stacks (chart_id, series_name, position, value, value_offset, missing)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare stack insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err = stmt.ExecContext(ctx, row.ChartID, row.SeriesName, row.Position, row.Value, row.Offset, row.Missing)
		if err != nil {
			return fmt.Errorf("insert stack row for chart %d: %w", row.ChartID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit replace stacks: %w", err)
	}

	return nil
}

// Stacks returns the derived rows of one chart in insertion order.
func (s *Store) Stacks(ctx context.Context, chartID int64) ([]StackRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chart_id, series_name, position, value, value_offset, missing
		FROM chart_stacks WHERE chart_id = ? ORDER BY rowid`, chartID)
	if err != nil {
		return nil, fmt.Errorf("query stacks of chart %d: %w", chartID, err)
	}
	defer rows.Close()

	var out []StackRow

	for rows.Next() {
		var row StackRow

		err = rows.Scan(&row.ChartID, &row.SeriesName, &row.Position, &row.Value, &row.Offset, &row.Missing)
		if err != nil {
			return nil, fmt.Errorf("scan stack row: %w", err)
		}

		out = append(out, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate stacks: %w", err)
	}

	return out, nil
}

// CountStacks returns the number of rows in chart_stacks.
func (s *Store) CountStacks(ctx context.Context) (int, error) {
	var n int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chart_stacks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stacks: %w", err)
	}

	return n, nil
}
