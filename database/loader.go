// database/loader.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/models"
)

// DefaultBatchSize bounds how many rows go into one upsert statement.
const DefaultBatchSize = 1000

// Store writes canonical rows into the dataset tables and answers summary
// queries about them. It holds the connection it was given; callers share
// one Store across connectors.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LoadRows writes rows in consecutive batches. Each batch is one transaction
// around one multi-row INSERT ... ON DUPLICATE KEY UPDATE statement, so a
// re-run for the same natural keys updates attributes in place and never
// produces a second row. created_at is excluded from the update set.
//
// A failed batch is rolled back, logged, and skipped; later batches still
// commit. The returned count covers committed rows only.
func (s *Store) LoadRows(ctx context.Context, d *datasets.Descriptor, rows []datasets.Row, batchSize int) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database connection is not initialized")
	}
	if len(rows) == 0 {
		log.Printf("INFO Store: no rows to load into %s.\n", d.Table)
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	written := 0
	failedBatches := 0
	var lastErr error

	for batchNum, batch := range chunkRows(rows, batchSize) {
		// Cancellation is honored between batches, never inside one.
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("load interrupted before batch %d: %w", batchNum+1, err)
		}

		if err := s.upsertBatch(ctx, d, batch); err != nil {
			failedBatches++
			lastErr = err
			log.Printf("ERROR Store: batch %d (%d rows) for %s failed and was rolled back: %v\n",
				batchNum+1, len(batch), d.Table, err)
			continue
		}
		written += len(batch)
	}

	if written == 0 && failedBatches > 0 {
		return 0, fmt.Errorf("all %d batch(es) for %s failed: %w", failedBatches, d.Table, lastErr)
	}

	log.Printf("INFO Store: loaded %d/%d rows into %s (%d failed batch(es)).\n",
		written, len(rows), d.Table, failedBatches)
	return written, nil
}

func (s *Store) upsertBatch(ctx context.Context, d *datasets.Descriptor, batch []datasets.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := buildUpsertSQL(d, len(batch))
	args := make([]any, 0, len(batch)*len(d.Columns))
	for _, row := range batch {
		args = append(args, rowArgs(d, row)...)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute upsert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// buildUpsertSQL renders the single atomic statement for one batch:
//
//	INSERT INTO t (...) VALUES (...),(...)
//	ON DUPLICATE KEY UPDATE col = VALUES(col), ...
//
// The location column goes through ST_GeomFromText so the point lands with
// the right SRID. The update set covers every column except the natural key
// and created_at.
func buildUpsertSQL(d *datasets.Descriptor, batchLen int) string {
	quoted := make([]string, len(d.Columns))
	valueExprs := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		quoted[i] = "`" + col + "`"
		if col == "location" {
			valueExprs[i] = fmt.Sprintf("ST_GeomFromText(?, %d)", models.SRID)
		} else {
			valueExprs[i] = "?"
		}
	}
	tuple := "(" + strings.Join(valueExprs, ", ") + ")"

	tuples := make([]string, batchLen)
	for i := range tuples {
		tuples[i] = tuple
	}

	var updates []string
	for _, col := range d.Columns {
		if col == d.NaturalKey || col == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("`%s` = VALUES(`%s`)", col, col))
	}

	return fmt.Sprintf("INSERT INTO `%s` (%s) VALUES %s ON DUPLICATE KEY UPDATE %s",
		d.Table,
		strings.Join(quoted, ", "),
		strings.Join(tuples, ", "),
		strings.Join(updates, ", "),
	)
}

// rowArgs flattens one row into driver arguments in column order. Missing
// fields become NULL; the geo point becomes its WKT text (or NULL, which
// ST_GeomFromText passes through).
func rowArgs(d *datasets.Descriptor, row datasets.Row) []any {
	args := make([]any, 0, len(d.Columns))
	for _, col := range d.Columns {
		v, present := row[col]
		if !present || v == nil {
			args = append(args, nil)
			continue
		}
		if col == "location" {
			if point, ok := v.(*models.GeoPoint); ok && point != nil {
				args = append(args, point.WKT())
			} else {
				args = append(args, nil)
			}
			continue
		}
		args = append(args, v)
	}
	return args
}

func chunkRows(rows []datasets.Row, size int) [][]datasets.Row {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]datasets.Row
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
