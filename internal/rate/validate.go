package rate

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidFeedRecord is wrapped by every FeedRecord validation failure.
var ErrInvalidFeedRecord = errors.New("invalid feed record")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("academic_year", func(fl validator.FieldLevel) bool {
		return IsAcademicYear(fl.Field().String())
	})
	v.RegisterStructValidation(validateAmounts, FeedRecord{})
	return v
}

func validateAmounts(sl validator.StructLevel) {
	f := sl.Current().Interface().(FeedRecord)
	amounts := []struct {
		name string
		a    Amount
	}{
		{"CostPerCredit", f.CostPerCredit},
		{"AverageCreditsPerYear", f.AverageCreditsPerYear},
		{"AmountPerTerm", f.AmountPerTerm},
	}
	for _, field := range amounts {
		if field.a.Set && field.a.Value.IsNegative() {
			sl.ReportError(field.a, field.name, field.name, "gte_zero", "")
		}
	}
}

// Validate checks that the record has an id, a well-formed academic year
// when one is given, non-negative amounts and a parsable lastUpdated.
func (f FeedRecord) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w %q: field %s failed %s", ErrInvalidFeedRecord, f.ID, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w %q: %v", ErrInvalidFeedRecord, f.ID, err)
	}
	if _, err := f.SourceTime(); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidFeedRecord, f.ID, err)
	}
	return nil
}
