package resolve

import (
	"fmt"
	"strconv"
	"strings"
)

// Term is a term-in-year ordinal. Ordinals increase through the calendar
// year; the numeric values are the ones the registrar encodes into term
// codes.
type Term int

const (
	Winter Term = 10
	Spring Term = 30
	Summer Term = 50
	Fall   Term = 70
)

// Terms lists every term in calendar order.
var Terms = []Term{Winter, Spring, Summer, Fall}

var termNames = map[Term]string{
	Winter: "winter",
	Spring: "spring",
	Summer: "summer",
	Fall:   "fall",
}

// ParseTerm accepts a term name ("fall", case-insensitive) or its ordinal
// ("70").
func ParseTerm(s string) (Term, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range termNames {
		if s == name {
			return t, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && Term(n).Valid() {
		return Term(n), nil
	}
	return 0, fmt.Errorf("%w: unknown term %q", ErrInvalidCriteria, s)
}

// Valid reports whether t is one of the defined ordinals.
func (t Term) Valid() bool {
	_, ok := termNames[t]
	return ok
}

func (t Term) String() string {
	if name, ok := termNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}

// Slot is one (calendar year, term) position.
type Slot struct {
	Year int
	Term Term
}

// Code returns the catalog key of the slot, e.g. "202370".
func (s Slot) Code() string {
	return strconv.Itoa(s.Year) + strconv.Itoa(int(s.Term))
}

// Candidates returns the slots searched for a rate, in priority order: from
// (start, from) forward through every term of every year up to end. The
// fall term of end opens the following academic year and is excluded.
func Candidates(start, end int, from Term) []Slot {
	var slots []Slot
	for year := start; year <= end; year++ {
		for _, t := range Terms {
			if year == start && t < from {
				continue
			}
			if year == end && t == Fall {
				continue
			}
			slots = append(slots, Slot{Year: year, Term: t})
		}
	}
	return slots
}
