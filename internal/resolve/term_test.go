package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Code())
	}
	return out
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		from       Term
		want       []string
	}{
		{"winter entry spans both years", 2023, 2024, Winter, []string{"202310", "202330", "202350", "202370", "202410", "202430", "202450"}},
		{"fall entry", 2023, 2024, Fall, []string{"202370", "202410", "202430", "202450"}},
		{"summer in second year", 2024, 2024, Summer, []string{"202450"}},
		{"fall of second year opens next academic year", 2024, 2024, Fall, []string{}},
		{"entry after window", 2025, 2024, Winter, []string{}},
		{"earlier entry widens window", 2021, 2022, Spring, []string{"202130", "202150", "202170", "202210", "202230", "202250"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Candidates(tt.start, tt.end, tt.from)))
		})
	}
}

func TestParseTerm(t *testing.T) {
	tests := []struct {
		in   string
		want Term
	}{
		{"winter", Winter},
		{"Spring", Spring},
		{" SUMMER ", Summer},
		{"fall", Fall},
		{"70", Fall},
		{"10", Winter},
	}
	for _, tt := range tests {
		got, err := ParseTerm(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "autumn", "20", "80"} {
		_, err := ParseTerm(bad)
		assert.ErrorIs(t, err, ErrInvalidCriteria, bad)
	}
}

func TestTermString(t *testing.T) {
	assert.Equal(t, "fall", Fall.String())
	assert.Equal(t, "40", Term(40).String())
}
