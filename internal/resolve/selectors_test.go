package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tuition/internal/rate"
)

func selectorCatalog() *Catalog {
	return BuildCatalog([]rate.Record{
		record("2023-2024", "202370", program("ACTG", "Accountancy", "ACTG", "Daniels College of Business", "BU")),
		record("2023-2024", "202370", program("FIN", "finance", "FIN", "Daniels College of Business", "BU")),
		record("2023-2024", "202370", program("BIO", "Biology", "BIO", "Arts & Sciences", "AS")),
		record("2023-2024", "202370", program("LAW", "Law", "JD", "Sturm College of Law", "LW")),
	})
}

func TestPrograms(t *testing.T) {
	c := selectorCatalog()

	assert.Equal(t, []Option{
		{Value: "ACTG", Label: "Accountancy (ACTG)"},
		{Value: "BIO", Label: "Biology (BIO)"},
		{Value: "FIN", Label: "finance (FIN)"},
		{Value: "LAW", Label: "Law (JD)"},
	}, c.Programs(""))

	assert.Equal(t, []Option{
		{Value: "ACTG", Label: "Accountancy (ACTG)"},
		{Value: "FIN", Label: "finance (FIN)"},
	}, c.Programs("BU"))

	assert.Empty(t, c.Programs("XX"))
}

func TestColleges(t *testing.T) {
	assert.Equal(t, []Option{
		{Value: "AS", Label: "Arts & Sciences"},
		{Value: "BU", Label: "Daniels College of Business"},
		{Value: "LW", Label: "Sturm College of Law"},
	}, selectorCatalog().Colleges())
}
