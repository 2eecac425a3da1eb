// services/backfill_service.go
package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/gewnthar/bostondata/ckan"
	"github.com/gewnthar/bostondata/datasets"
	"github.com/gewnthar/bostondata/models"
)

// BackfillService loads a dataset's yearly CSV snapshot through the same
// normalize -> upsert path the API fetch uses. Bulk historical loads go
// through snapshots instead of hammering the paginated API.
//
// Food inspections have no stable key column in their snapshot export, so
// only crime, 311, and violations are backfillable.
type BackfillService struct {
	loader    RowLoader
	batchSize int
	now       func() time.Time
}

func NewBackfillService(loader RowLoader, batchSize int) *BackfillService {
	return &BackfillService{loader: loader, batchSize: batchSize, now: time.Now}
}

// FromURL downloads a snapshot to a temp file and backfills from it.
func (b *BackfillService) FromURL(ctx context.Context, kind datasets.Kind, csvURL string) (*RunResult, error) {
	if csvURL == "" {
		return nil, fmt.Errorf("snapshot CSV URL is not configured for %s", kind)
	}

	log.Printf("INFO BackfillService: downloading snapshot for %s from %s\n", kind, csvURL)
	localPath, err := downloadSnapshot(ctx, csvURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot for %s: %w", kind, err)
	}
	defer func() {
		if err := os.Remove(localPath); err != nil {
			log.Printf("ERROR BackfillService: failed to remove temporary file %s: %v\n", localPath, err)
		}
	}()

	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open downloaded snapshot %s: %w", localPath, err)
	}
	defer file.Close()

	return b.FromCSV(ctx, kind, file)
}

// FromCSV decodes snapshot rows and runs them through normalize and load.
func (b *BackfillService) FromCSV(ctx context.Context, kind datasets.Kind, r io.Reader) (*RunResult, error) {
	d, err := datasets.ByKind(kind)
	if err != nil {
		return nil, err
	}

	result := &RunResult{Dataset: string(kind), StartedAt: b.now()}
	result.State = StateFetching

	raws, err := decodeSnapshot(kind, r)
	if err != nil {
		result.State = StateFailed
		result.Elapsed = time.Since(result.StartedAt)
		return result, err
	}
	result.RowsFetched = len(raws)

	result.State = StateCleaning
	rows, stats := datasets.Normalize(raws, d, b.now().UTC())
	result.RowsCleaned = len(rows)
	result.Stats = stats

	result.State = StateLoading
	loaded, err := b.loader.LoadRows(ctx, d, rows, b.batchSize)
	result.RowsLoaded = loaded
	result.Elapsed = time.Since(result.StartedAt)
	if err != nil {
		result.State = StateFailed
		return result, fmt.Errorf("backfill load for %s failed: %w", kind, err)
	}

	result.State = StateDone
	log.Printf("INFO BackfillService: [%s] snapshot backfill done in %s: %d decoded, %d cleaned, %d loaded\n",
		kind, result.Elapsed.Round(time.Millisecond), result.RowsFetched, result.RowsCleaned, result.RowsLoaded)
	return result, nil
}

// decodeSnapshot reads the header-tagged CSV into raw records. A bad line
// only costs that line.
func decodeSnapshot(kind datasets.Kind, r io.Reader) ([]ckan.Record, error) {
	csvReader := csv.NewReader(r)
	csvReader.FieldsPerRecord = -1

	decoder, err := csvutil.NewDecoder(csvReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV decoder for %s: %w", kind, err)
	}

	var records []ckan.Record
	badLines := 0
	for {
		var rec map[string]any
		var decErr error

		switch kind {
		case datasets.KindCrime:
			var row models.CrimeSnapshotRow
			decErr = decoder.Decode(&row)
			rec = row.ToRecord()
		case datasets.KindServiceRequest, datasets.KindServiceRequestLegacy:
			var row models.ServiceRequestSnapshotRow
			decErr = decoder.Decode(&row)
			rec = row.ToRecord()
		case datasets.KindBuildingViolation:
			var row models.ViolationSnapshotRow
			decErr = decoder.Decode(&row)
			rec = row.ToRecord()
		default:
			return nil, fmt.Errorf("dataset %s has no snapshot format", kind)
		}

		if errors.Is(decErr, io.EOF) {
			break
		}
		if decErr != nil {
			badLines++
			if badLines <= 5 {
				log.Printf("WARN BackfillService: skipping malformed CSV line for %s: %v\n", kind, decErr)
			}
			continue
		}
		records = append(records, ckan.Record(rec))
	}
	if badLines > 0 {
		log.Printf("WARN BackfillService: skipped %d malformed CSV line(s) for %s.\n", badLines, kind)
	}

	log.Printf("INFO BackfillService: decoded %d snapshot rows for %s.\n", len(records), kind)
	return records, nil
}

func downloadSnapshot(ctx context.Context, csvURL string) (string, error) {
	client := http.Client{Timeout: 5 * time.Minute}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", csvURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make GET request to %s: %w", csvURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download snapshot from %s: received status code %d", csvURL, resp.StatusCode)
	}

	outFile, err := os.CreateTemp("", "bostondata-snapshot-*.csv")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary snapshot file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		os.Remove(outFile.Name())
		return "", fmt.Errorf("failed to copy downloaded content to %s: %w", outFile.Name(), err)
	}

	log.Printf("INFO BackfillService: downloaded %s to %s\n", csvURL, filepath.Base(outFile.Name()))
	return outFile.Name(), nil
}
