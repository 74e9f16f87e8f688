package rate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Text is a feed string field. The feed is not consistent about JSON types,
// so Text accepts strings, numbers, booleans and null. Surrounding spaces
// are trimmed; null and false decode to the empty string.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0, string(b) == "null", string(b) == "false":
		*t = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected scalar, got %s", b)
	default:
		// number or true literal
		*t = Text(b)
		return nil
	}
}

// String returns the text value.
func (t Text) String() string {
	return string(t)
}

// Truthy reports whether the value should be written by a sparse patch:
// non-empty and not the zero-like "0".
func (t Text) Truthy() bool {
	return t != "" && t != "0"
}

// Amount is a feed decimal field. It accepts JSON numbers, numeric strings
// (thousands separators allowed), the empty string and null. Set is false
// when the feed supplied no value.
type Amount struct {
	Value decimal.Decimal
	Set   bool
}

// NewAmount returns a set Amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*a = Amount{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}

	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	*a = Amount{Value: d, Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler. Unset amounts encode as null.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Set {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value.String())
}

// Truthy reports whether the amount was supplied and is non-zero.
func (a Amount) Truthy() bool {
	return a.Set && !a.Value.IsZero()
}

// OrZero returns the amount, or zero when unset.
func (a Amount) OrZero() decimal.Decimal {
	if !a.Set {
		return decimal.Zero
	}
	return a.Value
}

// FeedRecord is one rate object as delivered by the feed.
type FeedRecord struct {
	ID                    Text   `json:"id" validate:"required"`
	AcademicYear          Text   `json:"academicYear" validate:"omitempty,academic_year"`
	AcademicTerm          Text   `json:"academicTerm"`
	AcademicTermCode      Text   `json:"academicTermCode"`
	CohortCode            Text   `json:"cohortCode"`
	College               Text   `json:"college"`
	CollegeCode           Text   `json:"collegeCode"`
	Department            Text   `json:"department"`
	DepartmentCode        Text   `json:"departmentCode"`
	Degree                Text   `json:"degree"`
	DegreeCode            Text   `json:"degreeCode"`
	DetailCode            Text   `json:"detailCode"`
	Level                 Text   `json:"level"`
	LevelCode             Text   `json:"levelCode"`
	Major                 Text   `json:"major"`
	MajorCode             Text   `json:"majorCode"`
	Program               Text   `json:"program"`
	ProgramCode           Text   `json:"programCode"`
	CostPerCredit         Amount `json:"costPerCredit"`
	AverageCreditsPerYear Amount `json:"averageCreditsPerYear"`
	AmountPerTerm         Amount `json:"amountPerTerm"`
	BilledPerTerm         Text   `json:"billedPerTerm"`
	FlatRate              Text   `json:"flatRate"`
	LastUpdated           Text   `json:"lastUpdated"`
}

// Key returns the natural key the record upserts against.
func (f FeedRecord) Key() Key {
	return Key{
		ExternalID:   f.ID.String(),
		AcademicTerm: f.AcademicTerm.String(),
		TermCode:     f.AcademicTermCode.String(),
	}
}

// Name returns the program name, falling back to the degree.
func (f FeedRecord) Name() string {
	if f.Program.Truthy() {
		return f.Program.String()
	}
	return f.Degree.String()
}
