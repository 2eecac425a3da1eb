// ckan/search.go
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SearchOptions control an offset-paginated datastore_search fetch.
type SearchOptions struct {
	Limit   int // 0 means fetch everything the datastore reports
	Offset  int
	Filters map[string]string // rendered as CKAN equality filters
}

// Search pulls records for a resource via offset pagination. Pages are
// requested at maxRecordsPerRequest (or the remaining limit, whichever is
// smaller) until the limit is reached, the datastore returns an empty or
// short page, or the reported total is exhausted.
//
// Each page has its own retry budget. If a page fails after retries but at
// least one earlier page succeeded, the partial record set is returned with
// a nil error: one bad page should not discard otherwise-valid data.
func (c *Client) Search(ctx context.Context, resourceID string, opts SearchOptions) ([]Record, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource ID is required for datastore_search")
	}

	var records []Record
	offset := opts.Offset
	pages := 0

	for {
		pageSize := c.maxPerRequest
		if opts.Limit > 0 {
			remaining := opts.Limit - len(records)
			if remaining <= 0 {
				break
			}
			if remaining < pageSize {
				pageSize = remaining
			}
		}

		params := url.Values{}
		params.Set("resource_id", resourceID)
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))
		if len(opts.Filters) > 0 {
			filterJSON, err := json.Marshal(opts.Filters)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal filters: %w", err)
			}
			params.Set("filters", string(filterJSON))
		}

		result, err := c.withRetry(ctx, "datastore_search", params)
		if err != nil {
			if len(records) > 0 {
				log.Printf("WARN Ckan: page at offset %d for resource %s failed after retries, returning %d records fetched so far: %v\n",
					offset, resourceID, len(records), err)
				return records, nil
			}
			return nil, fmt.Errorf("datastore_search for resource %s: %w", resourceID, err)
		}
		pages++

		if len(result.Records) == 0 {
			break
		}
		records = append(records, result.Records...)
		offset += len(result.Records)

		if result.Total > 0 && offset >= result.Total {
			break
		}
		if len(result.Records) < pageSize {
			// Short page: the datastore has nothing more for us.
			break
		}
	}

	log.Printf("INFO Ckan: fetched %d records for resource %s in %d page(s)\n", len(records), resourceID, pages)
	return records, nil
}

// SQLQuery describes a single sorted ad-hoc query against the resource as a
// table. The offset-pagination endpoint does not guarantee a stable order
// across pages, so "most recent N" fetches must go through this path.
type SQLQuery struct {
	Limit     int
	Filters   map[string]string
	SortField string
	SortOrder string // "ASC" or "DESC"; anything else falls back to DESC
}

// SearchSQL issues one datastore_search_sql call. Malformed queries come back
// as 4xx and are not retried; transient failures use the normal retry policy.
func (c *Client) SearchSQL(ctx context.Context, resourceID string, q SQLQuery) ([]Record, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource ID is required for datastore_search_sql")
	}
	if q.SortField == "" {
		return nil, fmt.Errorf("sort field is required for datastore_search_sql")
	}

	params := url.Values{}
	params.Set("sql", buildSQL(resourceID, q))

	result, err := c.withRetry(ctx, "datastore_search_sql", params)
	if err != nil {
		return nil, fmt.Errorf("datastore_search_sql for resource %s: %w", resourceID, err)
	}

	log.Printf("INFO Ckan: fetched %d records for resource %s via SQL sort on %q\n",
		len(result.Records), resourceID, q.SortField)
	return result.Records, nil
}

func buildSQL(resourceID string, q SQLQuery) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `SELECT * FROM "%s"`, resourceID)

	if len(q.Filters) > 0 {
		// Deterministic clause order keeps queries reproducible in logs.
		keys := make([]string, 0, len(q.Filters))
		for k := range q.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		clauses := make([]string, 0, len(keys))
		for _, k := range keys {
			clauses = append(clauses, fmt.Sprintf(`"%s" = '%s'`, k, escapeSQLValue(q.Filters[k])))
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	order := strings.ToUpper(q.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	fmt.Fprintf(&sb, ` ORDER BY "%s" %s`, q.SortField, order)

	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	return sb.String()
}

// escapeSQLValue doubles single quotes; filter values are user-supplied
// equality matches, never raw SQL.
func escapeSQLValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
