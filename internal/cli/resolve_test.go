package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NewStudentFall(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "resolve", "--program", "BU_ACTG", "--term", "fall")

	require.NoError(t, err)
	assert.Contains(t, out, "Accountancy (ACTG)")
	assert.Contains(t, out, "fall (202370)")
	assert.Contains(t, out, "Per credit:      1200.00")
	assert.NotContains(t, out, "Note:")
}

func TestResolve_NewStudentWinterUsesSecondCalendarYear(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "resolve", "-p", "BU_ACTG", "-t", "winter")

	require.NoError(t, err)
	assert.Contains(t, out, "winter (202410)")
	assert.Contains(t, out, "1210.00")
}

func TestResolve_NextYearFallsBackToCurrent(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "--format", "json",
		"resolve", "--program", "BU_ACTG", "--year", "next", "--term", "fall")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			ProgramID      string `json:"program_id"`
			TermCode       string `json:"term_code"`
			AcademicYear   string `json:"academic_year"`
			YearSwitch     bool   `json:"year_switch"`
			YearDisclaimer bool   `json:"year_disclaimer"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "BU_ACTG", resp.Data.ProgramID)
	assert.Equal(t, "202370", resp.Data.TermCode)
	assert.Equal(t, "2023-2024", resp.Data.AcademicYear)
	assert.True(t, resp.Data.YearSwitch)
	assert.True(t, resp.Data.YearDisclaimer)
}

func TestResolve_ContinuingStudentHasNoDisclaimer(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db,
		"resolve", "--program", "BU_ACTG", "--year", "next", "--term", "fall", "--entry-year", "2022")

	require.NoError(t, err)
	assert.Contains(t, out, "202370")
	assert.NotContains(t, out, "Note:")
}

func TestResolve_NoMatch(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "resolve", "--program", "BU_NOPE", "--term", "fall")

	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}

func TestResolve_InvalidCriteria(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	tests := []struct {
		name string
		args []string
	}{
		{"unknown_term", []string{"--program", "BU_ACTG", "--term", "autumn"}},
		{"unknown_label", []string{"--program", "BU_ACTG", "--term", "fall", "--year", "last"}},
		{"negative_entry_year", []string{"--program", "BU_ACTG", "--term", "fall", "--entry-year", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--db", db, "resolve"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E005]")
		})
	}
}

func TestResolve_FromSnapshot(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)
	snapshot := filepath.Join(t.TempDir(), "catalog.json")

	_, err := execute(t, "--db", db, "snapshot", "-o", snapshot)
	require.NoError(t, err)

	// An empty database proves the snapshot is what answers.
	empty := newTestDB(t)
	out, err := execute(t, "--db", empty, "resolve", "--program", "LAW_JD", "--term", "fall", "--snapshot", snapshot)

	require.NoError(t, err)
	assert.Contains(t, out, "Juris Doctor (JD)")
	assert.Contains(t, out, "Billed per term: yes")
}

func TestQuote_PerCredit(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "quote", "--program", "BU_ACTG", "--term", "fall", "--credits", "36")

	require.NoError(t, err)
	assert.Contains(t, out, "1200.00 per Credit x 36 credits")
	assert.Contains(t, out, "Annual: 43200.00")
}

func TestQuote_PerCreditRequiresCredits(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "quote", "--program", "BU_ACTG", "--term", "fall")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "--credits is required")
}

func TestQuote_InvalidCredits(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "quote", "--program", "BU_ACTG", "--term", "fall", "--credits", "lots")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid --credits")
}

func TestQuote_BilledPerTerm(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "--format", "json", "quote", "--program", "LAW_JD", "--term", "fall")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			Cost struct {
				Annual   string `json:"annual"`
				UnitCost string `json:"unit_cost"`
				Unit     string `json:"unit"`
			} `json:"cost"`
			FlatRate bool `json:"flat_rate_redirect"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "60000", resp.Data.Cost.Annual)
	assert.Equal(t, "20000", resp.Data.Cost.UnitCost)
	assert.Equal(t, "Term", resp.Data.Cost.Unit)
	assert.False(t, resp.Data.FlatRate)
}

func TestQuote_FlatRateRedirect(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)
	settings := filepath.Join(t.TempDir(), "tuition.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("flat_rate_link: https://example.edu/flat-rate\n"), 0644))

	out, err := execute(t, "--db", db, "--config", settings,
		"quote", "--program", "BU_MBA", "--term", "fall", "--entry-year", "2019")

	require.NoError(t, err)
	assert.Contains(t, out, "flat-rate plan")
	assert.Contains(t, out, "See https://example.edu/flat-rate")
	assert.NotContains(t, out, "Annual:")
}

func TestQuote_FlatRateAfterCutoverIsQuoted(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db,
		"quote", "--program", "BU_MBA", "--term", "fall", "--entry-year", "2021", "--credits", "10")

	require.NoError(t, err)
	assert.Contains(t, out, "Annual: 12000.00")
}

func TestPrograms(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "programs")

	require.NoError(t, err)
	assert.Equal(t,
		"BU_ACTG\tAccountancy (ACTG)\nBU_MBA\tBusiness Administration (MBA)\nLAW_JD\tJuris Doctor (JD)\n",
		out)
}

func TestPrograms_ByCollege(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "programs", "--college", "LAW")

	require.NoError(t, err)
	assert.Equal(t, "LAW_JD\tJuris Doctor (JD)\n", out)
}

func TestPrograms_Colleges(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "programs", "--colleges")

	require.NoError(t, err)
	assert.Equal(t, "BU\tBusiness\nLAW\tLaw\n", out)
}

func TestPrograms_Empty(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t)

	out, err := execute(t, "--db", db, "programs")

	require.NoError(t, err)
	assert.Equal(t, "(none)\n", out)
}

func TestPrograms_ConflictingFlags(t *testing.T) {
	isolateEnv(t)

	_, err := execute(t, "programs", "--college", "BU", "--colleges")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
