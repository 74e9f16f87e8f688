package resolve

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/tuition/internal/rate"
)

// record builds an active per-credit record for program "ACTG" in the
// College of Business.
func record(academicYear, termCode string, opts ...func(*rate.Record)) rate.Record {
	r := rate.Record{
		ExternalID:            academicYear + "_" + termCode + "_ACTG",
		AcademicYear:          academicYear,
		AcademicTerm:          "Term " + termCode,
		TermCode:              termCode,
		Program:               "Accountancy",
		ProgramCode:           "ACTG",
		College:               "Daniels College of Business",
		CollegeCode:           "BU",
		PerCreditAmount:       decimal.NewFromInt(1500),
		AverageCreditsPerYear: decimal.NewFromInt(45),
		Active:                true,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func billed(amount int64) func(*rate.Record) {
	return func(r *rate.Record) {
		r.BilledPerTerm = true
		r.AmountPerTerm = decimal.NewFromInt(amount)
	}
}

func flatRate(r *rate.Record) { r.FlatRate = true }

func inactive(r *rate.Record) { r.Active = false }

func program(id, name, code, college, collegeCode string) func(*rate.Record) {
	return func(r *rate.Record) {
		r.ExternalID = r.AcademicYear + "_" + r.TermCode + "_" + id
		r.Program = name
		r.ProgramCode = code
		r.College = college
		r.CollegeCode = collegeCode
	}
}

func testYears(t *testing.T) Years {
	t.Helper()
	current, err := rate.ParseAcademicYear("2023-2024")
	if err != nil {
		t.Fatal(err)
	}
	return Years{Current: current, Next: current.Next()}
}
