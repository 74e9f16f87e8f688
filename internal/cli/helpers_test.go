package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tuition/internal/config"
	"github.com/roach88/tuition/internal/pipeline"
	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/store"
)

// testNow puts the current academic year at 2023-2024.
var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// isolateEnv clears the settings environment for the duration of the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvFeedURL,
		config.EnvClientID,
		config.EnvClientSecret,
		config.EnvDatabase,
		config.EnvCurrentAcademicYear,
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// testRate builds an active per-credit rate for Accountancy in the
// College of Business.
func testRate(academicYear, termCode string, opts ...func(*rate.Record)) rate.Record {
	r := rate.Record{
		ExternalID:            academicYear + "_" + termCode + "_BU_ACTG",
		AcademicYear:          academicYear,
		AcademicTerm:          "Fall",
		TermCode:              termCode,
		Title:                 "Accountancy",
		Program:               "Accountancy",
		ProgramCode:           "ACTG",
		College:               "Business",
		CollegeCode:           "BU",
		PerCreditAmount:       decimal.NewFromInt(1200),
		AverageCreditsPerYear: decimal.NewFromInt(45),
		Active:                true,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func asProgram(id, name, code, college, collegeCode string) func(*rate.Record) {
	return func(r *rate.Record) {
		r.ExternalID = r.AcademicYear + "_" + r.TermCode + "_" + id
		r.Title = name
		r.Program = name
		r.ProgramCode = code
		r.College = college
		r.CollegeCode = collegeCode
	}
}

func billedPerTerm(amount int64) func(*rate.Record) {
	return func(r *rate.Record) {
		r.BilledPerTerm = true
		r.AmountPerTerm = decimal.NewFromInt(amount)
	}
}

func onFlatRate(r *rate.Record) { r.FlatRate = true }

// seedRates is the catalog most command tests run against:
// per-credit Accountancy, per-term Law and flat-rate MBA, all 2023-2024.
func seedRates() []rate.Record {
	return []rate.Record{
		testRate("2023-2024", "202370"),
		testRate("2023-2024", "202410", func(r *rate.Record) {
			r.AcademicTerm = "Winter"
			r.PerCreditAmount = decimal.NewFromInt(1210)
		}),
		testRate("2023-2024", "202370",
			asProgram("LAW_JD", "Juris Doctor", "JD", "Law", "LAW"),
			billedPerTerm(20000)),
		testRate("2023-2024", "202370",
			asProgram("BU_MBA", "Business Administration", "MBA", "Business", "BU"),
			onFlatRate),
	}
}

// newTestDB creates a database holding records and returns its path.
func newTestDB(t *testing.T, records ...rate.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuition.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	for _, r := range records {
		_, err := st.InsertRate(context.Background(), r, testNow)
		require.NoError(t, err)
	}
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWith(t, &RootOptions{Now: func() time.Time { return testNow }}, args...)
}

// executeWith is execute with caller-supplied options, e.g. a predictable
// task id generator.
func executeWith(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := newRootCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--env-file="}, args...))

	err := cmd.Execute()
	if err != nil {
		t.Logf("stderr: %s", errBuf.String())
	}
	return buf.String(), err
}

func sequentialIDs() *RootOptions {
	return &RootOptions{
		Now: func() time.Time { return testNow },
		IDs: pipeline.NewSequenceGenerator("task"),
	}
}
