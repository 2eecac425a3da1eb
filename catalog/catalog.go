// catalog/catalog.go
package catalog

import (
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/gewnthar/bostondata/models"
)

// Regex to pull resource UUIDs out of dataset page links
// (e.g. /dataset/311-service-requests/resource/<uuid>).
var resourceLinkRegex = regexp.MustCompile(`/resource/([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})`)

// Date layouts the portal uses for its "Last Updated" field.
var lastUpdatedLayouts = []string{
	"January 2, 2006, 15:04 (MST)",
	"January 2, 2006",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CheckDataset scrapes one dataset's portal page for its last-updated date
// and the datastore resources it links to. Connectors use this to confirm a
// configured resource ID still exists and to skip runs when the portal has
// nothing new.
func CheckDataset(datasetName, pageURL, lastUpdatedSelector string) (*models.DatasetFreshnessInfo, error) {
	log.Printf("Catalog: checking portal page for %s at %s\n", datasetName, pageURL)

	if pageURL == "" {
		return nil, fmt.Errorf("no portal page URL configured for %s", datasetName)
	}

	client := http.Client{Timeout: 20 * time.Second}
	res, err := client.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get URL %s: status code %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	info := &models.DatasetFreshnessInfo{
		DatasetName: datasetName,
		PageURL:     pageURL,
		LastChecked: time.Now().UTC(),
	}

	info.ResourceIDs = extractResourceIDs(doc)
	if len(info.ResourceIDs) == 0 {
		log.Printf("WARN Catalog: no datastore resource links found on %s. QC: Verify the page still lists resources.\n", pageURL)
	}

	rawDate := findLastUpdatedText(doc, lastUpdatedSelector)
	if rawDate == "" {
		return info, fmt.Errorf("last-updated field not found on %s. QC: Verify selector and page structure", pageURL)
	}
	info.RawDateText = rawDate

	parsed, err := parseLastUpdated(rawDate)
	if err != nil {
		return info, fmt.Errorf("failed to parse last-updated date for %s from text '%s': %w", datasetName, rawDate, err)
	}
	info.LastUpdated = parsed

	log.Printf("Catalog: %s last updated %s, %d resource(s) listed\n",
		datasetName, parsed.Format("2006-01-02"), len(info.ResourceIDs))
	return info, nil
}

// ContainsResource reports whether the scraped page still lists the given
// datastore resource.
func ContainsResource(info *models.DatasetFreshnessInfo, id string) bool {
	if info == nil {
		return false
	}
	for _, rid := range info.ResourceIDs {
		if strings.EqualFold(rid, id) {
			return true
		}
	}
	return false
}

func extractResourceIDs(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	var ids []string
	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		matches := resourceLinkRegex.FindStringSubmatch(href)
		if len(matches) < 2 {
			return
		}
		id := matches[1]
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	})
	return ids
}

// findLastUpdatedText walks table rows inside the selector looking for the
// "Last Updated" header and returns its value cell.
func findLastUpdatedText(doc *goquery.Document, containerSelector string) string {
	if containerSelector == "" {
		containerSelector = "table"
	}

	var found string
	doc.Find(containerSelector).Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		header := strings.TrimSpace(row.Find("th").First().Text())
		if !strings.EqualFold(header, "Last Updated") {
			return true
		}
		found = strings.TrimSpace(row.Find("td").First().Text())
		return false
	})
	return found
}

func parseLastUpdated(raw string) (time.Time, error) {
	cleaned := strings.TrimSpace(raw)
	for _, layout := range lastUpdatedLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no known layout matched %q", cleaned)
}
