// datasets/normalize_test.go
package datasets

import (
	"reflect"
	"testing"
	"time"

	"github.com/gewnthar/bostondata/ckan"
	"github.com/gewnthar/bostondata/models"
)

var testNow = time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)

func mustDescriptor(t *testing.T, kind Kind) *Descriptor {
	t.Helper()
	d, err := ByKind(kind)
	if err != nil {
		t.Fatalf("ByKind(%s): %v", kind, err)
	}
	return d
}

func crimeRecord(overrides ckan.Record) ckan.Record {
	rec := ckan.Record{
		"INCIDENT_NUMBER":     "I2024-001",
		"OFFENSE_CODE":        "619",
		"OFFENSE_CODE_GROUP":  "Larceny",
		"OFFENSE_DESCRIPTION": "LARCENY ALL OTHERS",
		"DISTRICT":            "D4",
		"SHOOTING":            "N",
		"OCCURRED_ON_DATE":    "2024-06-01 14:30:00",
		"YEAR":                "2024",
		"MONTH":               "6",
		"DAY_OF_WEEK":         "Saturday",
		"HOUR":                "14",
		"STREET":              "BOYLSTON ST",
		"Lat":                 "42.3480",
		"Long":                "-71.0810",
	}
	for k, v := range overrides {
		if v == nil {
			delete(rec, k)
		} else {
			rec[k] = v
		}
	}
	return rec
}

func TestNormalizeCrimeHappyPath(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	rows, stats := Normalize([]ckan.Record{crimeRecord(nil)}, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (stats: %+v)", len(rows), stats)
	}
	row := rows[0]

	if row["incident_number"] != "I2024-001" {
		t.Errorf("incident_number = %v", row["incident_number"])
	}
	if got := row["occurred_on_date"].(time.Time); !got.Equal(time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("occurred_on_date = %v", got)
	}
	if row["offense_code"] != int64(619) {
		t.Errorf("offense_code = %v (%T)", row["offense_code"], row["offense_code"])
	}
	if row["shooting"] != false {
		t.Errorf("shooting = %v", row["shooting"])
	}
	point, ok := row["location"].(*models.GeoPoint)
	if !ok || point == nil {
		t.Fatalf("location missing: %v", row["location"])
	}
	if point.Lat != 42.3480 || point.Lon != -71.0810 {
		t.Errorf("location = %+v", point)
	}
	if row["created_at"] != testNow || row["updated_at"] != testNow {
		t.Errorf("timestamps not stamped: created=%v updated=%v", row["created_at"], row["updated_at"])
	}
}

func TestNormalizeDropsRowsMissingNaturalKey(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	records := []ckan.Record{
		crimeRecord(nil),
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": nil}),
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": "   "}),
	}
	rows, stats := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
	if stats.MissingKey != 2 {
		t.Errorf("MissingKey = %d, want 2", stats.MissingKey)
	}
}

func TestNormalizeDropsRowsMissingRequiredTimestamp(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	records := []ckan.Record{
		crimeRecord(ckan.Record{"OCCURRED_ON_DATE": "not a date"}),
		crimeRecord(ckan.Record{"OCCURRED_ON_DATE": nil}),
	}
	rows, stats := Normalize(records, d, testNow)
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
	if stats.MissingRequiredTime != 2 {
		t.Errorf("MissingRequiredTime = %d, want 2", stats.MissingRequiredTime)
	}
}

func TestNormalizeDeduplicatesByLatestSecondaryTimestamp(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	records := []ckan.Record{
		crimeRecord(ckan.Record{
			"INCIDENT_NUMBER":  "A1",
			"OCCURRED_ON_DATE": "2024-01-01 00:00:00",
			"Lat":              "42.30",
			"Long":             "-71.05",
		}),
		crimeRecord(ckan.Record{
			"INCIDENT_NUMBER":  "A1",
			"OCCURRED_ON_DATE": "2024-06-01 00:00:00",
			"Lat":              "42.31",
			"Long":             "-71.06",
		}),
	}

	rows, stats := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}

	row := rows[0]
	if got := row["occurred_on_date"].(time.Time); !got.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("kept wrong duplicate: occurred_on_date = %v", got)
	}
	point := row["location"].(*models.GeoPoint)
	if point.Lat != 42.31 || point.Lon != -71.06 {
		t.Errorf("kept wrong duplicate: location = %+v", point)
	}
}

func TestNormalizeDedupFirstWinsOnTie(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	records := []ckan.Record{
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": "A1", "STREET": "FIRST ST"}),
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": "A1", "STREET": "SECOND ST"}),
	}
	rows, _ := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0]["street"] != "FIRST ST" {
		t.Errorf("street = %v, want the first record on a timestamp tie", rows[0]["street"])
	}
}

func TestNormalizeCrimeDropsOutOfBoxCoordinates(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	records := []ckan.Record{
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": "NY-1", "Lat": "40.71", "Long": "-74.00"}),
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": "NOLOC", "Lat": nil, "Long": nil}),
		crimeRecord(nil),
	}
	rows, stats := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
	if stats.InvalidCoordinates != 2 {
		t.Errorf("InvalidCoordinates = %d, want 2", stats.InvalidCoordinates)
	}
}

func TestNormalizeViolationKeepsInvalidCoordinatesWithoutPoint(t *testing.T) {
	d := mustDescriptor(t, KindBuildingViolation)

	records := []ckan.Record{{
		"case_no":     "V-1",
		"status":      "Open",
		"status_dttm": "2024-03-01 09:00:00",
		"latitude":    "95.0",
		"longitude":   "-71.05",
	}}

	rows, _ := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (keep policy)", len(rows))
	}
	row := rows[0]
	if row["latitude"] != 95.0 {
		t.Errorf("latitude = %v, want the raw numeric retained", row["latitude"])
	}
	if _, present := row["location"]; present {
		t.Errorf("location = %v, want no geo point", row["location"])
	}
}

func TestNormalizeNullsUnstorableDates(t *testing.T) {
	d := mustDescriptor(t, KindBuildingViolation)

	records := []ckan.Record{{
		"case_no":     "V-2",
		"status_dttm": "10000-01-01 00:00:00",
	}}
	rows, stats := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if _, present := rows[0]["status_dttm"]; present {
		t.Errorf("status_dttm = %v, want dropped", rows[0]["status_dttm"])
	}
	if stats.OutOfRangeDates != 1 {
		t.Errorf("OutOfRangeDates = %d, want 1", stats.OutOfRangeDates)
	}
}

func TestNormalizeLegacy311Fallbacks(t *testing.T) {
	d := mustDescriptor(t, KindServiceRequestLegacy)

	records := []ckan.Record{{
		"case_enquiry_id": float64(101004453),
		"open_dt":         "2023-02-01 08:00:00",
		"case_title":      "Pothole Repair",
		"closure_reason":  "Case resolved",
		"location":        "1 City Hall Sq",
	}}

	rows, _ := Normalize(records, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row["case_enquiry_id"] != "101004453" {
		t.Errorf("case_enquiry_id = %v", row["case_enquiry_id"])
	}
	if row["type"] != "Pothole Repair" {
		t.Errorf("type fallback = %v, want case_title value", row["type"])
	}
	if row["reason"] != "Case resolved" {
		t.Errorf("reason fallback = %v, want closure_reason value", row["reason"])
	}
	if row["address"] != "1 City Hall Sq" {
		t.Errorf("address = %v", row["address"])
	}
}

func TestNormalizeProjectsOntoCanonicalColumns(t *testing.T) {
	d := mustDescriptor(t, KindCrime)

	rows, _ := Normalize([]ckan.Record{
		crimeRecord(ckan.Record{"UCR_PART": "Part One", "_full_count": "12345"}),
	}, d, testNow)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	for col := range rows[0] {
		found := false
		for _, want := range d.Columns {
			if col == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("column %q survived projection", col)
		}
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	d := mustDescriptor(t, KindCrime)
	records := []ckan.Record{
		crimeRecord(nil),
		crimeRecord(ckan.Record{"INCIDENT_NUMBER": "I2024-002", "Lat": "40.0"}),
	}

	first, statsA := Normalize(records, d, testNow)
	second, statsB := Normalize(records, d, testNow)

	if !reflect.DeepEqual(first, second) {
		t.Error("two passes over the same input produced different rows")
	}
	if statsA != statsB {
		t.Errorf("stats differ: %+v vs %+v", statsA, statsB)
	}
}
