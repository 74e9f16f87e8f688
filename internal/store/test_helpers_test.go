package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tuition/internal/rate"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRate creates an active record with minimal required fields.
func createTestRate(externalID, year, termCode string) rate.Record {
	return rate.Record{
		ExternalID:      externalID,
		AcademicYear:    year,
		AcademicTerm:    "Fall",
		TermCode:        termCode,
		Title:           "Accountancy",
		Program:         "Accountancy",
		ProgramCode:     "ACTG",
		College:         "Daniels College of Business",
		CollegeCode:     "DCB",
		PerCreditAmount: decimal.RequireFromString("1450.75"),
		AmountPerTerm:   decimal.Zero,
		Active:          true,
		SourceUpdatedAt: time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC),
	}
}
