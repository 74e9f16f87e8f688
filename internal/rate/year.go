package rate

import (
	"fmt"
	"regexp"
	"strconv"
)

var academicYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// AcademicYear is a label spanning two consecutive calendar years, written
// "YYYY-YYYY" (e.g. "2023-2024").
type AcademicYear struct {
	First  int `json:"first"`
	Second int `json:"second"`
}

// ParseAcademicYear parses "YYYY-YYYY". The second year must follow the
// first.
func ParseAcademicYear(s string) (AcademicYear, error) {
	m := academicYearPattern.FindStringSubmatch(s)
	if m == nil {
		return AcademicYear{}, fmt.Errorf("invalid academic year %q: want YYYY-YYYY", s)
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second != first+1 {
		return AcademicYear{}, fmt.Errorf("invalid academic year %q: %d does not follow %d", s, second, first)
	}
	return AcademicYear{First: first, Second: second}, nil
}

// AcademicYearStarting returns the academic year whose first calendar year
// is first.
func AcademicYearStarting(first int) AcademicYear {
	return AcademicYear{First: first, Second: first + 1}
}

// Next returns the following academic year.
func (y AcademicYear) Next() AcademicYear {
	return AcademicYearStarting(y.Second)
}

// IsZero reports whether y is the zero value.
func (y AcademicYear) IsZero() bool {
	return y.First == 0 && y.Second == 0
}

func (y AcademicYear) String() string {
	return fmt.Sprintf("%04d-%04d", y.First, y.Second)
}

// IsAcademicYear reports whether s is a well-formed academic year label.
func IsAcademicYear(s string) bool {
	_, err := ParseAcademicYear(s)
	return err == nil
}
