package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/resolve"
)

func TestExport_Stdout(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)

	out, err := execute(t, "--db", db, "export")

	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "\ufeffWSTPTUI_ACAD_YEAR,"))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 1+len(seedRates()))
}

func TestExport_YearFilter(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, append(seedRates(), testRate("2022-2023", "202270"))...)

	out, err := execute(t, "--db", db, "export", "--year", "2022-2023")

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "2022-2023,202270,ACTG,"))
}

func TestExport_ToDirectory(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)
	dir := filepath.Join(t.TempDir(), "exports")

	out, err := execute(t, "--db", db, "--format", "json", "export", "--year", "2023-2024", "-o", dir)
	require.NoError(t, err)

	var resp struct {
		Data ExportResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, filepath.Join(dir, "du_tuition_db_year-20232024_20240301_120000.csv"), resp.Data.Path)
	assert.Equal(t, len(seedRates()), resp.Data.Rows)

	data, err := os.ReadFile(resp.Data.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WSTPTUI_PUBLISH_IND")
}

func TestExport_InvalidYear(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "export", "--year", "2023")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid --year")
}

func TestSnapshot_Stdout(t *testing.T) {
	isolateEnv(t)
	inactive := testRate("2023-2024", "202370", asProgram("BU_OLD", "Retired", "OLD", "Business", "BU"))
	inactive.Active = false
	db := newTestDB(t, append(seedRates(), inactive, testRate("2021-2022", "202170"))...)

	out, err := execute(t, "--db", db, "snapshot")
	require.NoError(t, err)

	var snap resolve.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "2023-2024", snap.CurrentAcademicYear)
	assert.Equal(t, "2024-2025", snap.NextAcademicYear)
	require.NotNil(t, snap.Programs)
	assert.Equal(t, 3, snap.Programs.Len())

	p, ok := snap.Programs.Program("BU_ACTG")
	require.True(t, ok)
	assert.Contains(t, p.Years, "2023-2024")
	assert.NotContains(t, p.Years, "2021-2022")
	assert.Equal(t, rate.AcademicYearStarting(2023), p.Years["2023-2024"].Years)
}

func TestSnapshot_ToFile(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t, seedRates()...)
	path := filepath.Join(t.TempDir(), "public", "catalog.json")

	out, err := execute(t, "--db", db, "snapshot", "-o", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 program(s) to "+path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSnapshot_InvalidFileRejected(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"current_academic_year":"2023"}`), 0644))

	_, err := execute(t, "resolve", "--program", "BU_ACTG", "--term", "fall", "--snapshot", path)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
