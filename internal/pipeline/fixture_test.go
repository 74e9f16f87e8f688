package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tuition/internal/feed"
	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/store"
	"github.com/roach88/tuition/internal/testutil"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *store.Store
	feed   *testutil.FeedServer
	clock  *testutil.FixedClock
	worker *Worker
	sched  *Scheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "tuition.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := testutil.NewFeedServer(t)
	client := feed.New(feed.Config{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret"})
	clock := testutil.NewFixedClock(testStart)
	opts := Options{Now: clock.Now, IDs: NewSequenceGenerator("task")}

	return &fixture{
		store:  s,
		feed:   srv,
		clock:  clock,
		worker: NewWorker(s, client, opts),
		sched:  NewScheduler(s, client, opts),
	}
}

// feedRecord builds a feed object for the fall 2023 term of year 2023-2024
// unless overridden.
func feedRecord(id string, overrides map[string]any) map[string]any {
	m := map[string]any{
		"id":                    id,
		"academicYear":          "2023-2024",
		"academicTerm":          "Fall",
		"academicTermCode":      "202370",
		"college":               "Business",
		"collegeCode":           "BU",
		"program":               "Program " + id,
		"programCode":           id,
		"costPerCredit":         1200,
		"averageCreditsPerYear": 30,
		"amountPerTerm":         0,
		"billedPerTerm":         "N",
		"flatRate":              "N",
		"lastUpdated":           "2024-01-01T00:00:00Z",
	}
	for k, v := range overrides {
		m[k] = v
	}
	return m
}

func upsertTask(t *testing.T, f *fixture, rec map[string]any) store.Task {
	t.Helper()
	f.feed.SetRecord(rec["id"].(string), mustJSON(t, rec))
	task, err := f.sched.QueueRecord(context.Background(), rec["id"].(string))
	require.NoError(t, err)
	return task
}

func runAll(t *testing.T, f *fixture) Stats {
	t.Helper()
	stats, err := f.worker.Run(context.Background())
	require.NoError(t, err)
	return stats
}

func queueYear(t *testing.T, f *fixture, year string) {
	t.Helper()
	y, err := rate.ParseAcademicYear(year)
	require.NoError(t, err)
	_, err = f.sched.QueueYears(context.Background(), y)
	require.NoError(t, err)
}

func findOne(t *testing.T, f *fixture, id, term, termCode string) rate.Record {
	t.Helper()
	recs, err := f.store.FindByKey(context.Background(), rate.Key{ExternalID: id, AcademicTerm: term, TermCode: termCode})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	return recs[0]
}

func activeIDs(t *testing.T, f *fixture, year string) []string {
	t.Helper()
	recs, err := f.store.ActiveByYear(context.Background(), year)
	require.NoError(t, err)
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ExternalID)
	}
	return ids
}

func queueLen(t *testing.T, f *fixture, queue string) int {
	t.Helper()
	n, err := f.store.QueueLength(context.Background(), queue)
	require.NoError(t, err)
	return n
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func mustYear(t *testing.T, s string) rate.AcademicYear {
	t.Helper()
	y, err := rate.ParseAcademicYear(s)
	require.NoError(t, err)
	return y
}
