package resolve

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tuition/internal/rate"
)

// TermRate is the priced part of one rate record.
type TermRate struct {
	AverageCredits decimal.Decimal `json:"average_credits"`
	PerCredit      decimal.Decimal `json:"per_credit"`
	AmountPerTerm  decimal.Decimal `json:"amount_per_term"`
	BilledPerTerm  bool            `json:"billed_per_term"`
	FlatRate       bool            `json:"flat_rate"`
}

// YearRates holds one program's rates for one academic year, keyed by term
// code.
type YearRates struct {
	Years rate.AcademicYear   `json:"years"`
	Terms map[string]TermRate `json:"terms"`
}

// Program is the per-program aggregation of active rate records.
type Program struct {
	ID          string                `json:"-"`
	Name        string                `json:"program"`
	Code        string                `json:"program_code"`
	College     string                `json:"college"`
	CollegeCode string                `json:"college_code"`
	Years       map[string]*YearRates `json:"academic_years"`
}

// Catalog is the read-only program projection used for resolution.
type Catalog struct {
	programs map[string]*Program
}

// ProgramID derives the catalog id of a record: the external id with the
// academic year and term code segments removed, so the same program in
// different years and terms collapses to one entry.
func ProgramID(r rate.Record) string {
	id := r.ExternalID
	if r.AcademicYear != "" {
		id = strings.ReplaceAll(id, r.AcademicYear+"_", "")
	}
	if r.TermCode != "" {
		id = strings.ReplaceAll(id, r.TermCode+"_", "")
	}
	return id
}

// BuildCatalog projects records into a Catalog. Inactive records and
// records whose academic year does not parse are left out. When records of
// one program disagree on descriptive attributes the last one wins.
func BuildCatalog(records []rate.Record) *Catalog {
	c := &Catalog{programs: make(map[string]*Program)}
	for _, r := range records {
		if !r.Active {
			continue
		}
		years, err := rate.ParseAcademicYear(r.AcademicYear)
		if err != nil {
			continue
		}

		id := ProgramID(r)
		p, ok := c.programs[id]
		if !ok {
			p = &Program{ID: id, Years: make(map[string]*YearRates)}
			c.programs[id] = p
		}
		p.Name = norm.NFC.String(r.Program)
		p.Code = r.ProgramCode
		p.College = norm.NFC.String(r.College)
		p.CollegeCode = r.CollegeCode

		yr, ok := p.Years[r.AcademicYear]
		if !ok {
			yr = &YearRates{Years: years, Terms: make(map[string]TermRate)}
			p.Years[r.AcademicYear] = yr
		}
		yr.Terms[r.TermCode] = TermRate{
			AverageCredits: r.AverageCreditsPerYear,
			PerCredit:      r.PerCreditAmount,
			AmountPerTerm:  r.AmountPerTerm,
			BilledPerTerm:  r.BilledPerTerm,
			FlatRate:       r.FlatRate,
		}
	}
	return c
}

// Program returns the catalog entry for id.
func (c *Catalog) Program(id string) (*Program, bool) {
	p, ok := c.programs[id]
	return p, ok
}

// Len returns the number of programs.
func (c *Catalog) Len() int {
	return len(c.programs)
}

// MarshalJSON encodes the catalog as an object keyed by program id.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	if c.programs == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.programs)
}

// UnmarshalJSON decodes a catalog written by MarshalJSON.
func (c *Catalog) UnmarshalJSON(b []byte) error {
	programs := make(map[string]*Program)
	if err := json.Unmarshal(b, &programs); err != nil {
		return err
	}
	for id, p := range programs {
		p.ID = id
		if p.Years == nil {
			p.Years = make(map[string]*YearRates)
		}
	}
	c.programs = programs
	return nil
}

// Snapshot is the serialized catalog handed to presentation clients,
// together with the year mapping it was built for.
type Snapshot struct {
	CurrentAcademicYear string   `json:"current_academic_year"`
	NextAcademicYear    string   `json:"next_academic_year"`
	Programs            *Catalog `json:"programs"`
}

// NewSnapshot bundles c with years.
func NewSnapshot(c *Catalog, years Years) Snapshot {
	return Snapshot{
		CurrentAcademicYear: years.Current.String(),
		NextAcademicYear:    years.Next.String(),
		Programs:            c,
	}
}

// Years returns the year mapping recorded in the snapshot.
func (s Snapshot) Years() (Years, error) {
	current, err := rate.ParseAcademicYear(s.CurrentAcademicYear)
	if err != nil {
		return Years{}, err
	}
	next, err := rate.ParseAcademicYear(s.NextAcademicYear)
	if err != nil {
		return Years{}, err
	}
	return Years{Current: current, Next: next}, nil
}
