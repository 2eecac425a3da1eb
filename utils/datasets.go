// utils/datasets.go
package utils

import "strings"

// NormalizeDatasetArg maps the short names people type on the command line
// (e.g. "crime", "311", "food") to canonical dataset kind names. Unknown
// input is returned lowercased as is.
func NormalizeDatasetArg(arg string) string {
	lower := strings.ToLower(strings.TrimSpace(arg))
	switch lower {
	case "crime", "crimes", "crime-incidents":
		return "crime-incidents"
	case "311", "requests", "service-requests":
		return "service-requests"
	case "311-legacy", "legacy-311", "service-requests-legacy":
		return "service-requests-legacy"
	case "violations", "building-violations":
		return "building-violations"
	case "food", "inspections", "food-inspections":
		return "food-inspections"
	}
	return lower
}
