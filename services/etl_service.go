// services/etl_service.go
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gewnthar/bostondata/ckan"
	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/metrics"
)

// RunState is where an ETL run currently is, or how it ended.
type RunState string

const (
	StateFetching RunState = "fetching"
	StateCleaning RunState = "cleaning"
	StateLoading  RunState = "loading"
	StateDone     RunState = "done"
	StateFailed   RunState = "failed"
)

// Fetcher is the slice of the portal client the orchestrator needs.
type Fetcher interface {
	Search(ctx context.Context, resourceID string, opts ckan.SearchOptions) ([]ckan.Record, error)
	SearchSQL(ctx context.Context, resourceID string, q ckan.SQLQuery) ([]ckan.Record, error)
}

// RowLoader is the slice of the store the orchestrator needs.
type RowLoader interface {
	LoadRows(ctx context.Context, d *datasets.Descriptor, rows []datasets.Row, batchSize int) (int, error)
}

// EtlService runs the fetch -> normalize -> load pipeline for one dataset.
// Stages run strictly in sequence; datasets are independent, so callers may
// run one EtlService per dataset concurrently.
type EtlService struct {
	fetcher    Fetcher
	loader     RowLoader
	descriptor *datasets.Descriptor
	batchSize  int
	now        func() time.Time
}

func NewEtlService(fetcher Fetcher, loader RowLoader, d *datasets.Descriptor, batchSize int) *EtlService {
	return &EtlService{
		fetcher:    fetcher,
		loader:     loader,
		descriptor: d,
		batchSize:  batchSize,
		now:        time.Now,
	}
}

// RunOptions control one ETL run.
type RunOptions struct {
	// Limit caps how many records to fetch; 0 means everything upstream has.
	Limit int
	// Filters are upstream equality filters applied at fetch time.
	Filters map[string]string
	// Recent fetches the most recent Limit records through the SQL-sort
	// path instead of offset pagination.
	Recent bool
	// Clean runs normalization (on by default from the CLI). Raw records
	// are not loadable, so Clean=false also skips the load stage.
	Clean bool
	// Upsert runs the load stage (on by default from the CLI).
	Upsert bool
}

// RunResult reports what one run did.
type RunResult struct {
	Dataset     string
	State       RunState
	RowsFetched int
	RowsCleaned int
	RowsLoaded  int
	Stats       datasets.Stats
	StartedAt   time.Time
	Elapsed     time.Duration
}

// Run executes one idempotent ETL run. A run with zero fetched rows ends in
// StateDone with zero loaded; only unrecoverable fetch or load failures end
// in StateFailed and return an error.
func (s *EtlService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	d := s.descriptor
	result := &RunResult{Dataset: string(d.Kind), StartedAt: s.now()}

	finish := func(state RunState, err error) (*RunResult, error) {
		result.State = state
		result.Elapsed = time.Since(result.StartedAt)
		metrics.ObserveRun(result.Dataset, string(state), result.Elapsed)
		log.Printf("INFO EtlService: [%s] run finished in %s: state=%s fetched=%d cleaned=%d loaded=%d\n",
			d.Kind, result.Elapsed.Round(time.Millisecond), state,
			result.RowsFetched, result.RowsCleaned, result.RowsLoaded)
		return result, err
	}

	log.Printf("INFO EtlService: [%s] state -> %s (limit=%d, recent=%t)\n", d.Kind, StateFetching, opts.Limit, opts.Recent)
	result.State = StateFetching

	raws, err := s.fetch(ctx, opts)
	if err != nil {
		return finish(StateFailed, fmt.Errorf("fetch for %s failed: %w", d.Kind, err))
	}
	result.RowsFetched = len(raws)
	metrics.AddFetched(result.Dataset, len(raws))

	if len(raws) == 0 {
		log.Printf("INFO EtlService: [%s] upstream returned no records; nothing to do.\n", d.Kind)
		return finish(StateDone, nil)
	}

	if !opts.Clean {
		log.Printf("WARN EtlService: [%s] cleaning disabled; raw records are not loadable, skipping load stage.\n", d.Kind)
		return finish(StateDone, nil)
	}

	log.Printf("INFO EtlService: [%s] state -> %s\n", d.Kind, StateCleaning)
	result.State = StateCleaning

	rows, stats := datasets.Normalize(raws, d, s.now().UTC())
	result.RowsCleaned = len(rows)
	result.Stats = stats
	metrics.AddDropped(result.Dataset, "missing_key", stats.MissingKey)
	metrics.AddDropped(result.Dataset, "missing_required_time", stats.MissingRequiredTime)
	metrics.AddDropped(result.Dataset, "duplicate", stats.Duplicates)
	metrics.AddDropped(result.Dataset, "row_failure", stats.RowFailures)
	if d.DropInvalidCoords {
		metrics.AddDropped(result.Dataset, "invalid_coordinates", stats.InvalidCoordinates)
	}

	if !opts.Upsert {
		log.Printf("INFO EtlService: [%s] upsert disabled; stopping after normalization.\n", d.Kind)
		return finish(StateDone, nil)
	}

	log.Printf("INFO EtlService: [%s] state -> %s\n", d.Kind, StateLoading)
	result.State = StateLoading

	loaded, err := s.loader.LoadRows(ctx, d, rows, s.batchSize)
	result.RowsLoaded = loaded
	metrics.AddLoaded(result.Dataset, loaded)
	if err != nil {
		return finish(StateFailed, fmt.Errorf("load for %s failed: %w", d.Kind, err))
	}

	return finish(StateDone, nil)
}

func (s *EtlService) fetch(ctx context.Context, opts RunOptions) ([]ckan.Record, error) {
	d := s.descriptor
	if opts.Recent && d.DefaultSortField != "" {
		// Offset pagination has no stable order across pages; "most recent
		// N" must go through the server-side sorted query.
		return s.fetcher.SearchSQL(ctx, d.ResourceID, ckan.SQLQuery{
			Limit:     opts.Limit,
			Filters:   opts.Filters,
			SortField: d.DefaultSortField,
			SortOrder: "DESC",
		})
	}
	return s.fetcher.Search(ctx, d.ResourceID, ckan.SearchOptions{
		Limit:   opts.Limit,
		Filters: opts.Filters,
	})
}
