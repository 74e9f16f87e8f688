package rate

import (
	"fmt"
	"time"
)

// timestampLayouts are the lastUpdated shapes seen from the feed.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a feed lastUpdated value. Values without a zone are
// read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// SourceTime returns the record's lastUpdated as a time. An absent value
// yields the zero time.
func (f FeedRecord) SourceTime() (time.Time, error) {
	if !f.LastUpdated.Truthy() {
		return time.Time{}, nil
	}
	return ParseTimestamp(f.LastUpdated.String())
}

// Apply patches r with the values supplied by f.
//
// Only truthy feed values are written, so a payload with an empty college
// never erases a stored college. AmountPerTerm is always written (zero when
// absent) and the two indicator fields are true only for the literal "Y".
// Apply does not touch Active or LocalID.
//
// On error r is left unmodified.
func (r *Record) Apply(f FeedRecord) error {
	updated, err := f.SourceTime()
	if err != nil {
		return fmt.Errorf("apply %s: %w", f.ID, err)
	}

	if name := f.Name(); name != "" && name != "0" {
		r.Title = name
		r.Program = name
	}

	patch(&r.ExternalID, f.ID)
	patch(&r.AcademicYear, f.AcademicYear)
	patch(&r.AcademicTerm, f.AcademicTerm)
	patch(&r.TermCode, f.AcademicTermCode)
	patch(&r.CohortCode, f.CohortCode)
	patch(&r.College, f.College)
	patch(&r.CollegeCode, f.CollegeCode)
	patch(&r.Department, f.Department)
	patch(&r.DepartmentCode, f.DepartmentCode)
	patch(&r.Degree, f.Degree)
	patch(&r.DegreeCode, f.DegreeCode)
	patch(&r.DetailCode, f.DetailCode)
	patch(&r.Level, f.Level)
	patch(&r.LevelCode, f.LevelCode)
	patch(&r.Major, f.Major)
	patch(&r.MajorCode, f.MajorCode)
	patch(&r.ProgramCode, f.ProgramCode)

	if f.CostPerCredit.Truthy() {
		r.PerCreditAmount = f.CostPerCredit.Value
	}
	if f.AverageCreditsPerYear.Truthy() {
		r.AverageCreditsPerYear = f.AverageCreditsPerYear.Value
	}
	r.AmountPerTerm = f.AmountPerTerm.OrZero()

	r.BilledPerTerm = f.BilledPerTerm == "Y"
	r.FlatRate = f.FlatRate == "Y"

	if !updated.IsZero() {
		r.SourceUpdatedAt = updated
	}
	return nil
}

func patch(dst *string, v Text) {
	if v.Truthy() {
		*dst = v.String()
	}
}
