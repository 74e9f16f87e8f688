package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/tuition/internal/rate"
)

// ErrInvalidCriteria is wrapped by every malformed resolution request.
var ErrInvalidCriteria = errors.New("invalid criteria")

// Label selects the academic year relative to the configured mapping.
type Label string

const (
	Current Label = "current"
	Next    Label = "next"
)

// ParseLabel accepts "current" or "next", case-insensitive.
func ParseLabel(s string) (Label, error) {
	switch l := Label(strings.ToLower(strings.TrimSpace(s))); l {
	case Current, Next:
		return l, nil
	default:
		return "", fmt.Errorf("%w: unknown academic year label %q", ErrInvalidCriteria, s)
	}
}

// Years maps the current and next labels to literal academic years.
type Years struct {
	Current rate.AcademicYear
	Next    rate.AcademicYear
}

// Literal returns the academic year a label stands for.
func (y Years) Literal(l Label) rate.AcademicYear {
	if l == Next {
		return y.Next
	}
	return y.Current
}

// Criteria describes a resolution request.
type Criteria struct {
	ProgramID    string
	AcademicYear Label
	Term         Term

	// EntryYear is the calendar year a continuing student entered the
	// program; zero for a new student.
	EntryYear int
}

// Continuing reports whether the request is for a continuing student.
func (c Criteria) Continuing() bool {
	return c.EntryYear != 0
}

// Validate rejects requests that cannot be resolved as stated.
func (c Criteria) Validate() error {
	switch {
	case strings.TrimSpace(c.ProgramID) == "":
		return fmt.Errorf("%w: missing program", ErrInvalidCriteria)
	case c.AcademicYear != Current && c.AcademicYear != Next:
		return fmt.Errorf("%w: unknown academic year label %q", ErrInvalidCriteria, c.AcademicYear)
	case !c.Term.Valid():
		return fmt.Errorf("%w: unknown term %d", ErrInvalidCriteria, int(c.Term))
	case c.EntryYear < 0:
		return fmt.Errorf("%w: entry year %d", ErrInvalidCriteria, c.EntryYear)
	}
	return nil
}

// Match is a resolved rate annotated with where it was found.
type Match struct {
	Rate TermRate `json:"rate"`
	Slot Slot     `json:"-"`

	// TermCode is Slot.Code(), kept for serialized results.
	TermCode string `json:"term_code"`

	// YearUsed is the academic year actually matched.
	YearUsed rate.AcademicYear `json:"-"`

	// YearSwitch is set when next year had no data and current was used.
	YearSwitch bool `json:"year_switch"`

	ProgramID   string `json:"program_id"`
	Program     string `json:"program"`
	ProgramCode string `json:"program_code"`
	College     string `json:"college"`
	CollegeCode string `json:"college_code"`
}

// NeedsYearDisclaimer reports whether the caller should tell a new student
// that next year's pricing was unavailable.
func (m Match) NeedsYearDisclaimer(c Criteria) bool {
	return m.YearSwitch && !c.Continuing()
}

// Resolve locates the single rate that applies to c.
//
// When the next academic year has no data for the program, the current
// year is used and Match.YearSwitch is set. There is no fallback from the
// current year. Within the academic year the search starts at the entry
// year (or the calendar year the requested term falls in) and walks
// forward term by term; the first slot with a rate wins.
//
// ok is false when nothing matches or c is invalid.
func Resolve(c *Catalog, years Years, cr Criteria) (Match, bool) {
	if c == nil || cr.Validate() != nil {
		return Match{}, false
	}
	p, ok := c.Program(cr.ProgramID)
	if !ok {
		return Match{}, false
	}

	m := Match{}
	year := years.Literal(cr.AcademicYear)
	yr, ok := p.Years[year.String()]
	if !ok && cr.AcademicYear == Next {
		year = years.Current
		m.YearSwitch = true
		yr, ok = p.Years[year.String()]
	}
	if !ok {
		return Match{}, false
	}

	start := yr.Years.First
	switch {
	case cr.Continuing():
		start = cr.EntryYear
	case cr.Term < Fall:
		start++
	}

	for _, slot := range Candidates(start, yr.Years.Second, cr.Term) {
		tr, ok := yr.Terms[slot.Code()]
		if !ok {
			continue
		}
		m.Rate = tr
		m.Slot = slot
		m.TermCode = slot.Code()
		m.YearUsed = year
		m.ProgramID = p.ID
		m.Program = p.Name
		m.ProgramCode = p.Code
		m.College = p.College
		m.CollegeCode = p.CollegeCode
		return m, true
	}
	return Match{}, false
}
