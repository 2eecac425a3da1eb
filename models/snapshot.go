// models/snapshot.go
package models

// The portal publishes yearly CSV snapshots of the bigger datasets. These
// structs mirror the snapshot headers exactly (csv tags must match the file
// header row). Values stay strings here; type coercion happens in the
// normalizer, same as for API records.

// CrimeSnapshotRow is one line of the crime incident CSV export.
type CrimeSnapshotRow struct {
	IncidentNumber     string `csv:"INCIDENT_NUMBER"`
	OffenseCode        string `csv:"OFFENSE_CODE"`
	OffenseCodeGroup   string `csv:"OFFENSE_CODE_GROUP"`
	OffenseDescription string `csv:"OFFENSE_DESCRIPTION"`
	District           string `csv:"DISTRICT"`
	ReportingArea      string `csv:"REPORTING_AREA"`
	Shooting           string `csv:"SHOOTING"`
	OccurredOnDate     string `csv:"OCCURRED_ON_DATE"`
	Year               string `csv:"YEAR"`
	Month              string `csv:"MONTH"`
	DayOfWeek          string `csv:"DAY_OF_WEEK"`
	Hour               string `csv:"HOUR"`
	Street             string `csv:"STREET"`
	Lat                string `csv:"Lat"`
	Long               string `csv:"Long"`
}

// ToRecord converts the row back to the upstream field names the normalizer
// expects from the API.
func (r CrimeSnapshotRow) ToRecord() map[string]any {
	return map[string]any{
		"INCIDENT_NUMBER":     r.IncidentNumber,
		"OFFENSE_CODE":        r.OffenseCode,
		"OFFENSE_CODE_GROUP":  r.OffenseCodeGroup,
		"OFFENSE_DESCRIPTION": r.OffenseDescription,
		"DISTRICT":            r.District,
		"REPORTING_AREA":      r.ReportingArea,
		"SHOOTING":            r.Shooting,
		"OCCURRED_ON_DATE":    r.OccurredOnDate,
		"YEAR":                r.Year,
		"MONTH":               r.Month,
		"DAY_OF_WEEK":         r.DayOfWeek,
		"HOUR":                r.Hour,
		"STREET":              r.Street,
		"Lat":                 r.Lat,
		"Long":                r.Long,
	}
}

// ServiceRequestSnapshotRow is one line of the 311 CSV export. The snapshot
// uses the legacy system's field names regardless of year.
type ServiceRequestSnapshotRow struct {
	CaseEnquiryID  string `csv:"case_enquiry_id"`
	OpenDt         string `csv:"open_dt"`
	SLATargetDt    string `csv:"sla_target_dt"`
	ClosedDt       string `csv:"closed_dt"`
	CaseStatus     string `csv:"case_status"`
	ClosureReason  string `csv:"closure_reason"`
	CaseTitle      string `csv:"case_title"`
	Subject        string `csv:"subject"`
	Reason         string `csv:"reason"`
	Type           string `csv:"type"`
	Department     string `csv:"department"`
	SubmittedPhoto string `csv:"submitted_photo"`
	ClosedPhoto    string `csv:"closed_photo"`
	Location       string `csv:"location"`
	StreetName     string `csv:"location_street_name"`
	Zipcode        string `csv:"location_zipcode"`
	Latitude       string `csv:"latitude"`
	Longitude      string `csv:"longitude"`
	Ward           string `csv:"ward"`
	Neighborhood   string `csv:"neighborhood"`
}

func (r ServiceRequestSnapshotRow) ToRecord() map[string]any {
	return map[string]any{
		"case_enquiry_id":      r.CaseEnquiryID,
		"open_dt":              r.OpenDt,
		"sla_target_dt":        r.SLATargetDt,
		"closed_dt":            r.ClosedDt,
		"case_status":          r.CaseStatus,
		"closure_reason":       r.ClosureReason,
		"case_title":           r.CaseTitle,
		"subject":              r.Subject,
		"reason":               r.Reason,
		"type":                 r.Type,
		"department":           r.Department,
		"submitted_photo":      r.SubmittedPhoto,
		"closed_photo":         r.ClosedPhoto,
		"location":             r.Location,
		"location_street_name": r.StreetName,
		"location_zipcode":     r.Zipcode,
		"latitude":             r.Latitude,
		"longitude":            r.Longitude,
		"ward":                 r.Ward,
		"neighborhood":         r.Neighborhood,
	}
}

// ViolationSnapshotRow is one line of the building violations CSV export.
type ViolationSnapshotRow struct {
	CaseNo      string `csv:"case_no"`
	Status      string `csv:"status"`
	StatusDttm  string `csv:"status_dttm"`
	Code        string `csv:"code"`
	Value       string `csv:"value"`
	Description string `csv:"description"`
	Address     string `csv:"address"`
	Ward        string `csv:"ward"`
	SamID       string `csv:"sam_id"`
	Latitude    string `csv:"latitude"`
	Longitude   string `csv:"longitude"`
}

func (r ViolationSnapshotRow) ToRecord() map[string]any {
	return map[string]any{
		"case_no":     r.CaseNo,
		"status":      r.Status,
		"status_dttm": r.StatusDttm,
		"code":        r.Code,
		"value":       r.Value,
		"description": r.Description,
		"address":     r.Address,
		"ward":        r.Ward,
		"sam_id":      r.SamID,
		"latitude":    r.Latitude,
		"longitude":   r.Longitude,
	}
}
