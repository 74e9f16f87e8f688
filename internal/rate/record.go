package rate

import (
	"time"

	"github.com/shopspring/decimal"
)

// Key is the natural key of a rate among active records.
type Key struct {
	ExternalID   string
	AcademicTerm string
	TermCode     string
}

// Record is one tuition rate for one program, academic year and term.
type Record struct {
	// LocalID is assigned by the store; zero until first persisted.
	LocalID int64

	ExternalID   string
	AcademicYear string
	AcademicTerm string
	TermCode     string

	Title          string
	Program        string
	ProgramCode    string
	College        string
	CollegeCode    string
	Department     string
	DepartmentCode string
	Degree         string
	DegreeCode     string
	Level          string
	LevelCode      string
	Major          string
	MajorCode      string
	CohortCode     string
	DetailCode     string

	PerCreditAmount       decimal.Decimal
	AverageCreditsPerYear decimal.Decimal
	AmountPerTerm         decimal.Decimal
	BilledPerTerm         bool
	FlatRate              bool

	// Active=false marks a soft-deleted record.
	Active bool

	// SourceUpdatedAt is the feed's own timestamp; zero when the feed never
	// reported one. It arbitrates conflicting updates.
	SourceUpdatedAt time.Time
	LocalUpdatedAt  time.Time
}

// Key returns the record's natural key.
func (r Record) Key() Key {
	return Key{
		ExternalID:   r.ExternalID,
		AcademicTerm: r.AcademicTerm,
		TermCode:     r.TermCode,
	}
}

// AcceptsUpdateFrom reports whether an update stamped at incoming may be
// applied. Ties apply (last write wins in favour of the feed).
func (r Record) AcceptsUpdateFrom(incoming time.Time) bool {
	return !incoming.Before(r.SourceUpdatedAt)
}
