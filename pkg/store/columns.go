package store

import (
	"context"
	"fmt"
)

// Sample is one stored observation of an entity in a column.
type Sample struct {
	Position float64
	Value    float64
}

// Column holds a column's samples grouped by entity, ordered by position.
type Column struct {
	Slug     string
	Entities map[string][]Sample
}

// sampleBytes approximates the in-memory size of one Sample.
const sampleBytes = 16

// Size approximates the memory held by the column, for cache accounting.
func (c Column) Size() int64 {
	size := int64(len(c.Slug))

	for entity, samples := range c.Entities {
		size += int64(len(entity)) + int64(len(samples))*sampleBytes
	}

	return size
}

// Samples returns the samples of entity and whether any exist.
func (c Column) Samples(entity string) ([]Sample, bool) {
	samples, ok := c.Entities[entity]

	return samples, ok && len(samples) > 0
}

// PutColumn replaces every sample of the given entity in a column.
func (s *Store) PutColumn(ctx context.Context, slug, entity string, samples []Sample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put column: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM column_points WHERE column_slug = ? AND entity = ?`, slug, entity)
	if err != nil {
		return fmt.Errorf("clear column %s/%s: %w", slug, entity, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO column_points (column_slug, entity, position, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare column insert: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		_, err = stmt.ExecContext(ctx, slug, entity, smp.Position, smp.Value)
		if err != nil {
			return fmt.Errorf("insert column %s/%s: %w", slug, entity, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit put column: %w", err)
	}

	return nil
}

// LoadColumn reads all samples of a column. A column with no rows loads as
// empty, not as an error.
func (s *Store) LoadColumn(ctx context.Context, slug string) (Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity, position, value FROM column_points
		WHERE column_slug = ? ORDER BY entity, position`, slug)
	if err != nil {
		return Column{}, fmt.Errorf("query column %s: %w", slug, err)
	}
	defer rows.Close()

	col := Column{Slug: slug, Entities: make(map[string][]Sample)}

	for rows.Next() {
		var (
			entity string
			smp    Sample
		)

		err = rows.Scan(&entity, &smp.Position, &smp.Value)
		if err != nil {
			return Column{}, fmt.Errorf("scan column %s: %w", slug, err)
		}

		col.Entities[entity] = append(col.Entities[entity], smp)
	}

	err = rows.Err()
	if err != nil {
		return Column{}, fmt.Errorf("iterate column %s: %w", slug, err)
	}

	return col, nil
}
