package resolve

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrCreditsRequired is returned when a per-credit rate is quoted without a
// positive credit load.
var ErrCreditsRequired = errors.New("credits required for per-credit rate")

// FlatRateCutoverYear is the entry year at which continuing students stop
// being priced under the historical flat-rate policy.
const FlatRateCutoverYear = 2020

// termsPerYear is the number of billed terms in an academic year.
var termsPerYear = decimal.NewFromInt(3)

// Unit is what a unit cost is charged per.
type Unit string

const (
	UnitTerm   Unit = "Term"
	UnitCredit Unit = "Credit"
)

// Cost is an annual tuition estimate.
type Cost struct {
	Annual   decimal.Decimal `json:"annual"`
	UnitCost decimal.Decimal `json:"unit_cost"`
	Unit     Unit            `json:"unit"`

	// Credits is zero for per-term rates.
	Credits decimal.Decimal `json:"credits"`
}

// Quote computes the annual cost of m. Per-term rates bill three terms;
// per-credit rates multiply by credits, which must then be positive.
func Quote(m Match, credits decimal.Decimal) (Cost, error) {
	if m.Rate.BilledPerTerm {
		return Cost{
			Annual:   m.Rate.AmountPerTerm.Mul(termsPerYear),
			UnitCost: m.Rate.AmountPerTerm,
			Unit:     UnitTerm,
		}, nil
	}
	if !credits.IsPositive() {
		return Cost{}, ErrCreditsRequired
	}
	return Cost{
		Annual:   m.Rate.PerCredit.Mul(credits),
		UnitCost: m.Rate.PerCredit,
		Unit:     UnitCredit,
		Credits:  credits,
	}, nil
}

// RedirectsToFlatRate reports whether a continuing student must be sent to
// the flat-rate information page instead of a per-credit quote.
//
// Students who entered before the cutover year always qualify; students who
// entered in the cutover year qualify only for terms before fall.
func RedirectsToFlatRate(c Criteria, m Match) bool {
	if !c.Continuing() || !m.Rate.FlatRate || m.Rate.BilledPerTerm {
		return false
	}
	return (c.Term < Fall && c.EntryYear == FlatRateCutoverYear) || c.EntryYear < FlatRateCutoverYear
}
