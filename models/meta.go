// models/meta.go
package models

import "time"

// DatasetFreshnessInfo is what the catalog scraper learns about a dataset
// from its portal page: when the portal last refreshed it and which
// datastore resources the page links to.
type DatasetFreshnessInfo struct {
	DatasetName string    `json:"dataset_name"`
	PageURL     string    `json:"page_url"`
	LastUpdated time.Time `json:"last_updated"`
	RawDateText string    `json:"raw_date_text"`
	ResourceIDs []string  `json:"resource_ids"`
	LastChecked time.Time `json:"last_checked"`
}
