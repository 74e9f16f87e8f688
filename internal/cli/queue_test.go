package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tuition/internal/config"
	"github.com/roach88/tuition/internal/pipeline"
	"github.com/roach88/tuition/internal/store"
	"github.com/roach88/tuition/internal/testutil"
)

func feedObject(id, programCode string) map[string]any {
	return map[string]any{
		"id":                    id,
		"academicYear":          "2023-2024",
		"academicTerm":          "Fall",
		"academicTermCode":      "202370",
		"college":               "Business",
		"collegeCode":           "BU",
		"program":               "Program " + programCode,
		"programCode":           programCode,
		"costPerCredit":         1200,
		"averageCreditsPerYear": 30,
		"amountPerTerm":         0,
		"billedPerTerm":         "N",
		"flatRate":              "N",
		"lastUpdated":           "2024-01-01T00:00:00Z",
	}
}

func queueLength(t *testing.T, db, queue string) int {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.QueueLength(context.Background(), queue)
	require.NoError(t, err)
	return n
}

func TestQueue_DefaultYears(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t)

	out, err := executeWith(t, sequentialIDs(), "--db", db, "queue")

	require.NoError(t, err)
	assert.Contains(t, out, "Queued 2 task(s)")
	assert.Contains(t, out, "year 2023-2024 (task-1)")
	assert.Contains(t, out, "year 2024-2025 (task-2)")
	assert.Equal(t, 2, queueLength(t, db, pipeline.QueueYear))
}

func TestQueue_PinnedCurrentYear(t *testing.T) {
	isolateEnv(t)
	t.Setenv(config.EnvCurrentAcademicYear, "2022-2023")
	db := newTestDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "queue")
	require.NoError(t, err)

	var resp struct {
		Data QueueResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Tasks, 2)
	assert.Equal(t, "2022-2023", resp.Data.Tasks[0].AcademicYear)
	assert.Equal(t, "2023-2024", resp.Data.Tasks[1].AcademicYear)
}

func TestQueue_ExplicitYears(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t)

	out, err := execute(t, "--db", db, "queue", "--year", "2023-2024", "--year", "2023-2024")

	require.NoError(t, err)
	assert.Contains(t, out, "Queued 1 task(s)")
	assert.Equal(t, 1, queueLength(t, db, pipeline.QueueYear))
}

func TestQueue_InvalidYear(t *testing.T) {
	isolateEnv(t)
	db := newTestDB(t)

	out, err := execute(t, "--db", db, "queue", "--year", "2023-2025")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
	assert.Equal(t, 0, queueLength(t, db, pipeline.QueueYear))
}

func TestQueueRecord(t *testing.T) {
	isolateEnv(t)
	srv := testutil.NewFeedServer(t)
	t.Setenv(config.EnvFeedURL, srv.URL)
	rec := feedObject("2023-2024_202370_BU_ACTG", "ACTG")
	body, err := json.Marshal(rec)
	require.NoError(t, err)
	srv.SetRecord("2023-2024_202370_BU_ACTG", string(body))
	db := newTestDB(t)

	out, err := executeWith(t, sequentialIDs(), "--db", db, "queue-record", "2023-2024_202370_BU_ACTG")

	require.NoError(t, err)
	assert.Contains(t, out, "record 2023-2024_202370_BU_ACTG (task-1)")
	assert.Equal(t, 1, queueLength(t, db, pipeline.QueueRecord))
}

func TestQueueRecord_Failures(t *testing.T) {
	tests := []struct {
		name     string
		feedURL  bool
		id       string
		wantExit int
		wantCode string
	}{
		{"missing_feed_url", false, "X1", ExitCommandError, ErrCodeConfig},
		{"blank_id", true, "  ", ExitCommandError, ErrCodeInvalidInput},
		{"not_in_feed", true, "X1", ExitFailure, ErrCodeFeed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			if tt.feedURL {
				srv := testutil.NewFeedServer(t)
				t.Setenv(config.EnvFeedURL, srv.URL)
			}
			db := newTestDB(t)

			out, err := execute(t, "--db", db, "queue-record", tt.id)

			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.wantCode+"]")
			assert.Equal(t, 0, queueLength(t, db, pipeline.QueueRecord))
		})
	}
}
