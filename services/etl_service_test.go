// services/etl_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/gewnthar/bostondata/ckan"
	"github.com/gewnthar/bostondata/datasets"
)

type fakeFetcher struct {
	records    []ckan.Record
	err        error
	searchHits int
	sqlHits    int
	lastQuery  ckan.SQLQuery
}

func (f *fakeFetcher) Search(ctx context.Context, resourceID string, opts ckan.SearchOptions) ([]ckan.Record, error) {
	f.searchHits++
	return f.records, f.err
}

func (f *fakeFetcher) SearchSQL(ctx context.Context, resourceID string, q ckan.SQLQuery) ([]ckan.Record, error) {
	f.sqlHits++
	f.lastQuery = q
	return f.records, f.err
}

type fakeLoader struct {
	err       error
	loaded    int
	callCount int
	gotRows   []datasets.Row
}

func (f *fakeLoader) LoadRows(ctx context.Context, d *datasets.Descriptor, rows []datasets.Row, batchSize int) (int, error) {
	f.callCount++
	f.gotRows = rows
	if f.err != nil {
		return f.loaded, f.err
	}
	return len(rows), nil
}

func crimeDescriptor(t *testing.T) *datasets.Descriptor {
	t.Helper()
	d, err := datasets.ByKind(datasets.KindCrime)
	if err != nil {
		t.Fatalf("ByKind: %v", err)
	}
	return d
}

func rawCrimeRecord(id string) ckan.Record {
	return ckan.Record{
		"INCIDENT_NUMBER":  id,
		"OCCURRED_ON_DATE": "2024-06-01 14:30:00",
		"Lat":              "42.31",
		"Long":             "-71.06",
	}
}

func defaultRunOptions() RunOptions {
	return RunOptions{Clean: true, Upsert: true}
}

func TestRunFullPipeline(t *testing.T) {
	fetcher := &fakeFetcher{records: []ckan.Record{rawCrimeRecord("I-1"), rawCrimeRecord("I-2")}}
	loader := &fakeLoader{}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	result, err := svc.Run(context.Background(), defaultRunOptions())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone {
		t.Errorf("state = %s, want %s", result.State, StateDone)
	}
	if result.RowsFetched != 2 || result.RowsCleaned != 2 || result.RowsLoaded != 2 {
		t.Errorf("counts = fetched %d cleaned %d loaded %d, want 2/2/2",
			result.RowsFetched, result.RowsCleaned, result.RowsLoaded)
	}
	if loader.callCount != 1 {
		t.Errorf("loader called %d times, want 1", loader.callCount)
	}
	if result.Elapsed < 0 {
		t.Errorf("elapsed = %v", result.Elapsed)
	}
}

func TestRunZeroRowsIsDone(t *testing.T) {
	fetcher := &fakeFetcher{}
	loader := &fakeLoader{}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	result, err := svc.Run(context.Background(), defaultRunOptions())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone {
		t.Errorf("state = %s, want %s for an empty upstream", result.State, StateDone)
	}
	if loader.callCount != 0 {
		t.Errorf("loader called %d times for zero rows, want 0", loader.callCount)
	}
}

func TestRunFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("portal unreachable")}
	loader := &fakeLoader{}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	result, err := svc.Run(context.Background(), defaultRunOptions())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result.State != StateFailed {
		t.Errorf("state = %s, want %s", result.State, StateFailed)
	}
	if loader.callCount != 0 {
		t.Errorf("loader called after a failed fetch")
	}
}

func TestRunLoadFailure(t *testing.T) {
	fetcher := &fakeFetcher{records: []ckan.Record{rawCrimeRecord("I-1")}}
	loader := &fakeLoader{err: errors.New("all batches failed")}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	result, err := svc.Run(context.Background(), defaultRunOptions())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result.State != StateFailed {
		t.Errorf("state = %s, want %s", result.State, StateFailed)
	}
}

func TestRunRecentUsesSortedQuery(t *testing.T) {
	fetcher := &fakeFetcher{records: []ckan.Record{rawCrimeRecord("I-1")}}
	loader := &fakeLoader{}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	opts := defaultRunOptions()
	opts.Recent = true
	opts.Limit = 50

	if _, err := svc.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if fetcher.sqlHits != 1 || fetcher.searchHits != 0 {
		t.Errorf("recent run used search=%d sql=%d, want the sorted query path only",
			fetcher.searchHits, fetcher.sqlHits)
	}
	if fetcher.lastQuery.SortField != "OCCURRED_ON_DATE" || fetcher.lastQuery.SortOrder != "DESC" {
		t.Errorf("sorted query = %+v, want newest-first on the event timestamp", fetcher.lastQuery)
	}
	if fetcher.lastQuery.Limit != 50 {
		t.Errorf("sorted query limit = %d, want 50", fetcher.lastQuery.Limit)
	}
}

func TestRunUpsertDisabledSkipsLoad(t *testing.T) {
	fetcher := &fakeFetcher{records: []ckan.Record{rawCrimeRecord("I-1")}}
	loader := &fakeLoader{}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	opts := defaultRunOptions()
	opts.Upsert = false

	result, err := svc.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone {
		t.Errorf("state = %s, want %s", result.State, StateDone)
	}
	if result.RowsCleaned != 1 {
		t.Errorf("RowsCleaned = %d, want 1", result.RowsCleaned)
	}
	if loader.callCount != 0 {
		t.Errorf("loader called with upsert disabled")
	}
}

func TestRunCleanDisabledSkipsNormalizeAndLoad(t *testing.T) {
	fetcher := &fakeFetcher{records: []ckan.Record{rawCrimeRecord("I-1")}}
	loader := &fakeLoader{}
	svc := NewEtlService(fetcher, loader, crimeDescriptor(t), 1000)

	opts := defaultRunOptions()
	opts.Clean = false

	result, err := svc.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != StateDone {
		t.Errorf("state = %s, want %s", result.State, StateDone)
	}
	if result.RowsFetched != 1 {
		t.Errorf("RowsFetched = %d, want 1", result.RowsFetched)
	}
	if result.RowsCleaned != 0 || result.RowsLoaded != 0 {
		t.Errorf("cleaned=%d loaded=%d, want 0/0 with cleaning disabled",
			result.RowsCleaned, result.RowsLoaded)
	}
	if loader.callCount != 0 {
		t.Errorf("loader called with cleaning disabled")
	}
}
