// database/stats.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/models"
)

// categoryColumn picks the column used for "top categories" per dataset.
var categoryColumn = map[datasets.Kind]string{
	datasets.KindCrime:                "offense_code_group",
	datasets.KindServiceRequest:       "subject",
	datasets.KindServiceRequestLegacy: "subject",
	datasets.KindBuildingViolation:    "status",
	datasets.KindFoodInspection:       "viollevel",
}

// Summary reports row count, event-date range, and top categories for one
// dataset's table. Used by the verify command and the stats endpoint.
func (s *Store) Summary(ctx context.Context, d *datasets.Descriptor) (*models.DatasetSummary, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is not initialized")
	}

	summary := &models.DatasetSummary{Dataset: string(d.Kind)}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM `%s`", d.Table)
	if err := s.db.QueryRowContext(ctx, countQuery).Scan(&summary.TotalRows); err != nil {
		return nil, fmt.Errorf("failed to count rows in %s: %w", d.Table, err)
	}

	if d.SecondaryTime != "" {
		rangeQuery := fmt.Sprintf("SELECT MIN(`%s`), MAX(`%s`) FROM `%s`",
			d.SecondaryTime, d.SecondaryTime, d.Table)
		var earliest, latest sql.NullTime
		if err := s.db.QueryRowContext(ctx, rangeQuery).Scan(&earliest, &latest); err != nil {
			return nil, fmt.Errorf("failed to query date range for %s: %w", d.Table, err)
		}
		if earliest.Valid {
			summary.EarliestEvent = &earliest.Time
		}
		if latest.Valid {
			summary.LatestEvent = &latest.Time
		}
	}

	if col, ok := categoryColumn[d.Kind]; ok {
		top, err := s.topCategories(ctx, d.Table, col, 10)
		if err != nil {
			return nil, err
		}
		summary.TopCategories = top
	}

	return summary, nil
}

func (s *Store) topCategories(ctx context.Context, table, column string, limit int) ([]models.CategoryCount, error) {
	query := fmt.Sprintf(
		"SELECT `%s`, COUNT(*) AS cnt FROM `%s` WHERE `%s` IS NOT NULL GROUP BY `%s` ORDER BY cnt DESC LIMIT ?",
		column, table, column, column)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top %s for %s: %w", column, table, err)
	}
	defer rows.Close()

	var out []models.CategoryCount
	for rows.Next() {
		var cc models.CategoryCount
		var category sql.NullString
		if err := rows.Scan(&category, &cc.Count); err != nil {
			log.Printf("ERROR Store: failed to scan category row for %s: %v\n", table, err)
			continue
		}
		if category.Valid {
			cc.Category = category.String
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category rows for %s: %w", table, err)
	}
	return out, nil
}

// KeyCount returns how many stored rows exist for one natural key. Zero or
// one in practice; anything above one indicates a broken upsert path.
func (s *Store) KeyCount(ctx context.Context, d *datasets.Descriptor, key string) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is not initialized")
	}
	query := fmt.Sprintf("SELECT COUNT(*) FROM `%s` WHERE `%s` = ?", d.Table, d.NaturalKey)
	var n int64
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count key %s in %s: %w", key, d.Table, err)
	}
	return n, nil
}
