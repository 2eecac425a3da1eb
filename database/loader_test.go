// database/loader_test.go
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/models"
)

func violationDescriptor(t *testing.T) *datasets.Descriptor {
	t.Helper()
	d, err := datasets.ByKind(datasets.KindBuildingViolation)
	if err != nil {
		t.Fatalf("ByKind: %v", err)
	}
	return d
}

func TestBuildUpsertSQL(t *testing.T) {
	d := violationDescriptor(t)
	query := buildUpsertSQL(d, 2)

	if !strings.HasPrefix(query, "INSERT INTO `building_violations` (") {
		t.Errorf("query does not target the dataset table: %s", query)
	}
	if got := strings.Count(query, "ST_GeomFromText(?, 4326)"); got != 2 {
		t.Errorf("ST_GeomFromText appears %d times, want once per tuple", got)
	}
	if !strings.Contains(query, "ON DUPLICATE KEY UPDATE") {
		t.Errorf("query is not an upsert: %s", query)
	}

	updateSet := query[strings.Index(query, "ON DUPLICATE KEY UPDATE"):]
	if strings.Contains(updateSet, "`"+d.NaturalKey+"` = VALUES(") {
		t.Errorf("update set touches the natural key: %s", updateSet)
	}
	if strings.Contains(updateSet, "`created_at` = VALUES(") {
		t.Errorf("update set touches created_at: %s", updateSet)
	}
	if !strings.Contains(updateSet, "`updated_at` = VALUES(`updated_at`)") {
		t.Errorf("update set misses updated_at: %s", updateSet)
	}

	// Two tuples, each with one placeholder per column.
	wantPlaceholders := 2 * len(d.Columns)
	if got := strings.Count(query, "?"); got != wantPlaceholders {
		t.Errorf("got %d placeholders, want %d", got, wantPlaceholders)
	}
}

func TestRowArgs(t *testing.T) {
	d := violationDescriptor(t)
	point, _ := models.NewGeoPoint(42.31, -71.06)
	row := datasets.Row{
		"case_no":     "V-1",
		"status":      "Open",
		"status_dttm": time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		"location":    point,
	}

	args := rowArgs(d, row)
	if len(args) != len(d.Columns) {
		t.Fatalf("got %d args, want %d (one per column)", len(args), len(d.Columns))
	}

	byColumn := make(map[string]any, len(args))
	for i, col := range d.Columns {
		byColumn[col] = args[i]
	}

	if byColumn["case_no"] != "V-1" {
		t.Errorf("case_no arg = %v", byColumn["case_no"])
	}
	if byColumn["location"] != "POINT(-71.060000 42.310000)" {
		t.Errorf("location arg = %v, want WKT text", byColumn["location"])
	}
	// Columns absent from the row become NULL.
	if byColumn["description"] != nil {
		t.Errorf("description arg = %v, want nil", byColumn["description"])
	}
}

func TestRowArgsNilPoint(t *testing.T) {
	d := violationDescriptor(t)
	args := rowArgs(d, datasets.Row{"case_no": "V-2"})

	for i, col := range d.Columns {
		if col == "location" {
			if args[i] != nil {
				t.Errorf("location arg = %v, want nil when no point was built", args[i])
			}
			return
		}
	}
	t.Fatal("descriptor has no location column")
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	// Exact-string matching so the tests pin the statement LoadRows executes,
	// not just a fragment of it.
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func violationRows(n int) []datasets.Row {
	rows := make([]datasets.Row, n)
	for i := range rows {
		rows[i] = datasets.Row{"case_no": fmt.Sprintf("V-%d", i+1), "status": "Open"}
	}
	return rows
}

func expectBatchCommit(mock sqlmock.Sqlmock, d *datasets.Descriptor, batchLen int) {
	mock.ExpectBegin()
	mock.ExpectExec(buildUpsertSQL(d, batchLen)).
		WillReturnResult(sqlmock.NewResult(0, int64(batchLen)))
	mock.ExpectCommit()
}

func expectBatchFailure(mock sqlmock.Sqlmock, d *datasets.Descriptor, batchLen int, cause error) {
	mock.ExpectBegin()
	mock.ExpectExec(buildUpsertSQL(d, batchLen)).WillReturnError(cause)
	mock.ExpectRollback()
}

func TestLoadRowsSkipsFailedBatch(t *testing.T) {
	d := violationDescriptor(t)
	store, mock := newMockStore(t)

	// 5 rows at batch size 2: batches of 2, 2, 1. The middle batch fails and
	// is rolled back; the other two still commit.
	expectBatchCommit(mock, d, 2)
	expectBatchFailure(mock, d, 2, errors.New("deadlock found when trying to get lock"))
	expectBatchCommit(mock, d, 1)

	written, err := store.LoadRows(context.Background(), d, violationRows(5), 2)
	if err != nil {
		t.Fatalf("LoadRows returned error: %v", err)
	}
	if written != 3 {
		t.Errorf("written = %d, want 3 (committed batches only)", written)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoadRowsAllBatchesFailed(t *testing.T) {
	d := violationDescriptor(t)
	store, mock := newMockStore(t)

	cause := errors.New("table is read only")
	expectBatchFailure(mock, d, 2, cause)
	expectBatchFailure(mock, d, 1, cause)

	written, err := store.LoadRows(context.Background(), d, violationRows(3), 2)
	if err == nil {
		t.Fatal("expected error when every batch failed, got nil")
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLoadRowsHonorsCancellationBetweenBatches(t *testing.T) {
	d := violationDescriptor(t)
	store, mock := newMockStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	written, err := store.LoadRows(ctx, d, violationRows(3), 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if written != 0 {
		t.Errorf("written = %d, want 0", written)
	}
	// No transaction may have started.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("statements ran after cancellation: %v", err)
	}
}

func TestLoadRowsRepeatRunIssuesSameUpsert(t *testing.T) {
	d := violationDescriptor(t)
	store, mock := newMockStore(t)
	rows := violationRows(2)

	// Loading the same rows twice executes the identical ON DUPLICATE KEY
	// statement both times, so the second run updates in place instead of
	// inserting a second copy.
	expectBatchCommit(mock, d, 2)
	expectBatchCommit(mock, d, 2)

	for run := 1; run <= 2; run++ {
		written, err := store.LoadRows(context.Background(), d, rows, 2)
		if err != nil {
			t.Fatalf("run %d: LoadRows returned error: %v", run, err)
		}
		if written != 2 {
			t.Errorf("run %d: written = %d, want 2", run, written)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestChunkRows(t *testing.T) {
	rows := make([]datasets.Row, 2500)
	for i := range rows {
		rows[i] = datasets.Row{}
	}

	tests := []struct {
		name     string
		size     int
		wantLens []int
	}{
		{"even split with remainder", 1000, []int{1000, 1000, 500}},
		{"single chunk", 5000, []int{2500}},
		{"non-positive falls back to default", 0, []int{1000, 1000, 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := chunkRows(rows, tt.size)
			if len(chunks) != len(tt.wantLens) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.wantLens))
			}
			for i, want := range tt.wantLens {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d has %d rows, want %d", i, len(chunks[i]), want)
				}
			}
		})
	}

	if chunks := chunkRows(nil, 1000); len(chunks) != 0 {
		t.Errorf("chunking no rows produced %d chunks", len(chunks))
	}
}
