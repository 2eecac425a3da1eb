// datasets/coerce.go
package datasets

import (
	"strconv"
	"strings"
	"time"
)

// maxStorableYear guards against garbage dates the storage layer rejects
// (the portal has shipped violation dates in year 10000+).
const maxStorableYear = 9999

// Layouts seen across the portal's datasets. The datastore mostly emits
// ISO-8601 without zone; CSV snapshots use space-separated datetimes.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// toString renders a raw value as a trimmed string; numbers come back from
// JSON as float64 and are formatted without a trailing ".0".
func toString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		trimmed := strings.TrimSpace(s)
		return trimmed, trimmed != ""
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10), true
		}
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return i, true
		}
		// Some numeric columns arrive as "2015.0".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// toBool normalizes flag fields from the portal's vocabulary:
// Y/y/1 mean true; N/n/0 and absent values mean false; anything
// unexpected defaults to false rather than failing the row.
func toBool(v any) bool {
	s, ok := toString(v)
	if !ok {
		return false
	}
	switch s {
	case "Y", "y", "1":
		return true
	default:
		return false
	}
}

// yearOverflows reports whether a date-like string starts with a year the
// storage layer cannot hold. Fixed-width layouts read exactly four year
// digits, so a five-digit year never parses and has to be caught here.
func yearOverflows(v any) bool {
	s, ok := toString(v)
	if !ok {
		return false
	}
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	return digits > 4 && digits < len(s)
}

// toTime tries the known layouts in order. Returns false for unparsable
// values; the caller turns that into "no value", never an error.
func toTime(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s, ok := toString(v)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
