// datasets/descriptor.go
package datasets

import "fmt"

// Kind identifies one supported dataset. The set is closed: every Kind has a
// Descriptor below and a destination table in the schema.
type Kind string

const (
	KindCrime                Kind = "crime-incidents"
	KindServiceRequest       Kind = "service-requests"
	KindServiceRequestLegacy Kind = "service-requests-legacy"
	KindBuildingViolation    Kind = "building-violations"
	KindFoodInspection       Kind = "food-inspections"
)

// Descriptor carries everything dataset-specific as data: the resource to
// fetch, the destination table, the field-name mapping, which canonical
// fields get which coercion, and the per-dataset coordinate policy. One
// generic normalizer and one generic loader consume these uniformly; there
// is no per-dataset pipeline code.
type Descriptor struct {
	Kind       Kind
	ResourceID string
	Table      string

	// NaturalKey is the canonical field used as the destination primary key.
	NaturalKey string
	// RequiredTime, when set, names a canonical timestamp field a row must
	// have to survive normalization.
	RequiredTime string
	// SecondaryTime names the canonical timestamp used to pick the winner
	// when several raw records share a natural key.
	SecondaryTime string
	// DefaultSortField is the upstream field name used for "most recent N"
	// fetches through the SQL-sort path.
	DefaultSortField string

	// FieldMap renames upstream field names to canonical ones. Upstream
	// fields without an entry keep their name and are discarded by the
	// final projection unless they happen to be canonical already.
	FieldMap map[string]string
	// Fallbacks fills a canonical field from another canonical field when
	// the first is empty (e.g. 311 "type" falls back to "case_title").
	Fallbacks map[string]string

	TimeFields  []string
	FloatFields []string
	IntFields   []string
	BoolFields  []string

	// DropInvalidCoords drops rows whose coordinates are missing or outside
	// the serviced bounding box. When false such rows are kept with a null
	// location.
	DropInvalidCoords bool

	// Columns is the canonical column set of the destination table, in
	// insert order. The projection step discards everything else.
	Columns []string
}

// WithResourceID returns a copy of the descriptor pointing at a different
// datastore resource (deployments can override IDs in config).
func (d *Descriptor) WithResourceID(id string) *Descriptor {
	if id == "" || id == d.ResourceID {
		return d
	}
	copied := *d
	copied.ResourceID = id
	return &copied
}

var crimeDescriptor = Descriptor{
	Kind:             KindCrime,
	ResourceID:       "b973d8cb-eeb2-4e7e-99da-c92938efc9c0",
	Table:            "crime_incidents",
	NaturalKey:       "incident_number",
	RequiredTime:     "occurred_on_date",
	SecondaryTime:    "occurred_on_date",
	DefaultSortField: "OCCURRED_ON_DATE",
	FieldMap: map[string]string{
		"INCIDENT_NUMBER":     "incident_number",
		"OFFENSE_CODE":        "offense_code",
		"OFFENSE_CODE_GROUP":  "offense_code_group",
		"OFFENSE_DESCRIPTION": "offense_description",
		"DISTRICT":            "district",
		"REPORTING_AREA":      "reporting_area",
		"SHOOTING":            "shooting",
		"OCCURRED_ON_DATE":    "occurred_on_date",
		"YEAR":                "year",
		"MONTH":               "month",
		"DAY_OF_WEEK":         "day_of_week",
		"HOUR":                "hour",
		"STREET":              "street",
		"Lat":                 "latitude",
		"Long":                "longitude",
	},
	TimeFields:  []string{"occurred_on_date"},
	FloatFields: []string{"latitude", "longitude"},
	IntFields:   []string{"offense_code", "year", "month", "hour"},
	BoolFields:  []string{"shooting"},
	// Police data without a usable location is not served; drop it.
	DropInvalidCoords: true,
	Columns: []string{
		"incident_number", "offense_code", "offense_code_group",
		"offense_description", "district", "reporting_area", "shooting",
		"occurred_on_date", "year", "month", "day_of_week", "hour", "street",
		"latitude", "longitude", "location", "created_at", "updated_at",
	},
}

var serviceRequestColumns = []string{
	"case_enquiry_id", "open_dt", "target_dt", "closed_dt", "case_status",
	"case_title", "subject", "reason", "type", "department",
	"submittedphoto", "closedphoto", "ward", "neighborhood", "address",
	"zipcode", "latitude", "longitude", "location", "created_at", "updated_at",
}

// The 311 feed exists in two generations with different upstream schemas
// that land in the same table. Each generation gets its own descriptor.
var serviceRequestDescriptor = Descriptor{
	Kind:             KindServiceRequest,
	ResourceID:       "254adca6-64ab-4c5c-9fc0-a6da622be185",
	Table:            "service_requests",
	NaturalKey:       "case_enquiry_id",
	RequiredTime:     "open_dt",
	SecondaryTime:    "open_dt",
	DefaultSortField: "open_date",
	FieldMap: map[string]string{
		"case_id":             "case_enquiry_id",
		"open_date":           "open_dt",
		"target_close_date":   "target_dt",
		"close_date":          "closed_dt",
		"case_status":         "case_status",
		"case_topic":          "case_title",
		"service_name":        "subject",
		"closure_reason":      "reason",
		"assigned_department": "department",
		"submitted_photo":     "submittedphoto",
		"closed_photo":        "closedphoto",
		"latitude":            "latitude",
		"longitude":           "longitude",
		"ward":                "ward",
		"neighborhood":        "neighborhood",
		"full_address":        "address",
		"zip_code":            "zipcode",
	},
	Fallbacks:   map[string]string{"type": "case_title"},
	TimeFields:  []string{"open_dt", "target_dt", "closed_dt"},
	FloatFields: []string{"latitude", "longitude"},
	Columns:     serviceRequestColumns,
}

var serviceRequestLegacyDescriptor = Descriptor{
	Kind:             KindServiceRequestLegacy,
	ResourceID:       "9d7c2214-4709-478a-a2e8-fb2020a5bb94",
	Table:            "service_requests",
	NaturalKey:       "case_enquiry_id",
	RequiredTime:     "open_dt",
	SecondaryTime:    "open_dt",
	DefaultSortField: "open_dt",
	FieldMap: map[string]string{
		"case_enquiry_id":  "case_enquiry_id",
		"open_dt":          "open_dt",
		"sla_target_dt":    "target_dt",
		"closed_dt":        "closed_dt",
		"case_status":      "case_status",
		"case_title":       "case_title",
		"subject":          "subject",
		"reason":           "reason",
		"type":             "type",
		"department":       "department",
		"location":         "address",
		"location_zipcode": "zipcode",
		"latitude":         "latitude",
		"longitude":        "longitude",
		"ward":             "ward",
		"neighborhood":     "neighborhood",
		"submitted_photo":  "submittedphoto",
		"closed_photo":     "closedphoto",
		"closure_reason":   "closure_reason_old",
	},
	Fallbacks: map[string]string{
		"type":   "case_title",
		"reason": "closure_reason_old",
	},
	TimeFields:  []string{"open_dt", "target_dt", "closed_dt"},
	FloatFields: []string{"latitude", "longitude"},
	Columns:     serviceRequestColumns,
}

var violationDescriptor = Descriptor{
	Kind:             KindBuildingViolation,
	ResourceID:       "800a2663-1d6a-46e7-9356-bedb70f5332c",
	Table:            "building_violations",
	NaturalKey:       "case_no",
	SecondaryTime:    "status_dttm",
	DefaultSortField: "status_dttm",
	FieldMap: map[string]string{
		"case_no":     "case_no",
		"status":      "status",
		"status_dttm": "status_dttm",
		"code":        "code",
		"description": "description",
		"address":     "address",
		"ward":        "ward",
		"sam_id":      "sam_id",
		"value":       "value",
		"latitude":    "latitude",
		"longitude":   "longitude",
	},
	TimeFields:  []string{"status_dttm"},
	FloatFields: []string{"value", "latitude", "longitude"},
	Columns: []string{
		"case_no", "status", "status_dttm", "code", "description", "address",
		"ward", "sam_id", "value", "latitude", "longitude", "location",
		"created_at", "updated_at",
	},
}

var foodInspectionDescriptor = Descriptor{
	Kind:             KindFoodInspection,
	ResourceID:       "4582bec6-2b4f-4f9e-bc55-cbaa73117f4c",
	Table:            "food_inspections",
	NaturalKey:       "record_id",
	SecondaryTime:    "statusdate",
	DefaultSortField: "statusdate",
	FieldMap: map[string]string{
		"_id":          "record_id",
		"businessname": "businessname",
		"licenseno":    "licenseno",
		"violstatus":   "violstatus",
		"violdesc":     "violdesc",
		"viollevel":    "viollevel",
		"statusdate":   "statusdate",
		"address":      "address",
		"city":         "city",
		"state":        "state",
		"zip":          "zip",
		"latitude":     "latitude",
		"longitude":    "longitude",
	},
	TimeFields:  []string{"statusdate"},
	FloatFields: []string{"latitude", "longitude"},
	Columns: []string{
		"record_id", "businessname", "licenseno", "violstatus", "violdesc",
		"viollevel", "statusdate", "address", "city", "state", "zip",
		"latitude", "longitude", "location", "created_at", "updated_at",
	},
}

var descriptors = map[Kind]*Descriptor{
	KindCrime:                &crimeDescriptor,
	KindServiceRequest:       &serviceRequestDescriptor,
	KindServiceRequestLegacy: &serviceRequestLegacyDescriptor,
	KindBuildingViolation:    &violationDescriptor,
	KindFoodInspection:       &foodInspectionDescriptor,
}

// ByKind returns the descriptor for a dataset kind.
func ByKind(k Kind) (*Descriptor, error) {
	d, ok := descriptors[k]
	if !ok {
		return nil, fmt.Errorf("unknown dataset kind %q", k)
	}
	return d, nil
}

// All returns the descriptors in a stable order.
func All() []*Descriptor {
	return []*Descriptor{
		&crimeDescriptor,
		&serviceRequestDescriptor,
		&serviceRequestLegacyDescriptor,
		&violationDescriptor,
		&foodInspectionDescriptor,
	}
}
