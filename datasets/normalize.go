// datasets/normalize.go
package datasets

import (
	"log"
	"time"

	"github.com/gewnthar/bostondata/ckan"
	"github.com/gewnthar/bostondata/models"
)

// Row is one canonical row keyed by canonical column name. Values are typed
// (string, int64, float64, time.Time, bool, *models.GeoPoint); a missing key
// means NULL at load time.
type Row map[string]any

// Stats summarizes what one normalization pass did with its input.
type Stats struct {
	Input               int
	MissingKey          int
	MissingRequiredTime int
	OutOfRangeDates     int
	Duplicates          int
	InvalidCoordinates  int // dropped or kept-without-point, per policy
	RowFailures         int
	Output              int
}

// Normalize turns raw upstream records into canonical rows for the given
// descriptor. It is deterministic for a fixed input and "now" value, and a
// bad row never aborts the rest of the batch.
func Normalize(raws []ckan.Record, d *Descriptor, now time.Time) ([]Row, Stats) {
	stats := Stats{Input: len(raws)}

	rows := make([]Row, 0, len(raws))
	for _, raw := range raws {
		row, ok := normalizeOne(raw, d, &stats)
		if ok {
			rows = append(rows, row)
		}
	}

	rows = dedupe(rows, d, &stats)

	kept := rows[:0]
	for _, row := range rows {
		if keep := applyCoordinatePolicy(row, d, &stats); !keep {
			continue
		}
		if _, present := row["created_at"]; !present {
			row["created_at"] = now
		}
		if _, present := row["updated_at"]; !present {
			row["updated_at"] = now
		}
		kept = append(kept, project(row, d))
	}
	rows = kept

	stats.Output = len(rows)
	log.Printf("INFO Normalize: %s: %d raw -> %d canonical (missing key: %d, missing required time: %d, duplicates: %d, coordinate policy: %d)\n",
		d.Kind, stats.Input, stats.Output, stats.MissingKey, stats.MissingRequiredTime, stats.Duplicates, stats.InvalidCoordinates)
	return rows, stats
}

// normalizeOne renames and coerces a single record. Returns false when the
// row must be dropped.
func normalizeOne(raw ckan.Record, d *Descriptor, stats *Stats) (row Row, ok bool) {
	// A malformed record must only cost us that record.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARN Normalize: %s: dropping row after unexpected failure: %v\n", d.Kind, r)
			stats.RowFailures++
			row, ok = nil, false
		}
	}()

	row = make(Row, len(raw))
	for field, value := range raw {
		if canonical, mapped := d.FieldMap[field]; mapped {
			row[canonical] = value
		} else {
			row[field] = value
		}
	}

	for target, source := range d.Fallbacks {
		if _, present := row[target]; present {
			if s, nonEmpty := toString(row[target]); nonEmpty && s != "" {
				continue
			}
		}
		if v, present := row[source]; present {
			row[target] = v
		}
	}

	for _, field := range d.TimeFields {
		v, present := row[field]
		if !present {
			continue
		}
		t, parsed := toTime(v)
		if !parsed {
			if yearOverflows(v) {
				stats.OutOfRangeDates++
			}
			delete(row, field)
			continue
		}
		if t.Year() > maxStorableYear {
			stats.OutOfRangeDates++
			delete(row, field)
			continue
		}
		row[field] = t
	}

	for _, field := range d.FloatFields {
		v, present := row[field]
		if !present {
			continue
		}
		f, parsed := toFloat(v)
		if !parsed {
			delete(row, field)
			continue
		}
		row[field] = f
	}

	for _, field := range d.IntFields {
		v, present := row[field]
		if !present {
			continue
		}
		i, parsed := toInt(v)
		if !parsed {
			delete(row, field)
			continue
		}
		row[field] = i
	}

	for _, field := range d.BoolFields {
		// Absent flag means false, matching the upstream convention.
		row[field] = toBool(row[field])
	}

	key, hasKey := toString(row[d.NaturalKey])
	if !hasKey {
		stats.MissingKey++
		return nil, false
	}
	row[d.NaturalKey] = key

	if d.RequiredTime != "" {
		if _, present := row[d.RequiredTime].(time.Time); !present {
			stats.MissingRequiredTime++
			return nil, false
		}
	}

	return row, true
}

// dedupe keeps one row per natural key: the one with the latest secondary
// timestamp, first-seen winning ties. Input order is preserved for winners.
func dedupe(rows []Row, d *Descriptor, stats *Stats) []Row {
	winners := make(map[string]int, len(rows))
	out := make([]Row, 0, len(rows))

	for _, row := range rows {
		key, _ := row[d.NaturalKey].(string)
		idx, seen := winners[key]
		if !seen {
			winners[key] = len(out)
			out = append(out, row)
			continue
		}
		stats.Duplicates++
		if d.SecondaryTime == "" {
			continue
		}
		current, curOK := out[idx][d.SecondaryTime].(time.Time)
		challenger, chalOK := row[d.SecondaryTime].(time.Time)
		if chalOK && (!curOK || challenger.After(current)) {
			out[idx] = row
		}
	}
	return out
}

// applyCoordinatePolicy validates the coordinate pair against the serviced
// bounding box and attaches the geo point. Returns false when the dataset's
// policy drops rows without a usable location.
func applyCoordinatePolicy(row Row, d *Descriptor, stats *Stats) bool {
	lat, hasLat := row["latitude"].(float64)
	lon, hasLon := row["longitude"].(float64)

	valid := hasLat && hasLon && models.InBostonBounds(lat, lon)
	if valid {
		// In-box implies in global range, but the point constructor is the
		// single authority on what makes a representable point.
		if point, pointOK := models.NewGeoPoint(lat, lon); pointOK {
			row["location"] = point
			return true
		}
		valid = false
	}

	stats.InvalidCoordinates++
	if d.DropInvalidCoords {
		return false
	}
	// Kept without a point; plain numeric fields stay as fetched.
	return true
}

// project keeps exactly the destination table's columns.
func project(row Row, d *Descriptor) Row {
	out := make(Row, len(d.Columns))
	for _, col := range d.Columns {
		if v, present := row[col]; present {
			out[col] = v
		}
	}
	return out
}
