// models/api_models.go
package models

import "time"

// EtlRunResponse is the JSON body returned by the /api/etl/run endpoint.
type EtlRunResponse struct {
	Dataset     string    `json:"dataset"`
	State       string    `json:"state"`
	RowsFetched int       `json:"rows_fetched"`
	RowsCleaned int       `json:"rows_cleaned"`
	RowsLoaded  int       `json:"rows_loaded"`
	Elapsed     string    `json:"elapsed"`
	StartedAt   time.Time `json:"started_at"`
}

// DatasetSummary is the JSON body returned by the /api/stats endpoint.
type DatasetSummary struct {
	Dataset       string          `json:"dataset"`
	TotalRows     int64           `json:"total_rows"`
	EarliestEvent *time.Time      `json:"earliest_event,omitempty"`
	LatestEvent   *time.Time      `json:"latest_event,omitempty"`
	TopCategories []CategoryCount `json:"top_categories,omitempty"`
}

// CategoryCount is one entry of a grouped count (e.g. top offense groups).
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}
