package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tuition/internal/feed"
	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/store"
)

// processYear fetches one academic year and fans it out into record tasks.
//
// Upserts and deletes are enqueued in a single batch. Delete candidates are
// the active local records of the year whose external id the feed did not
// return; no deletes are computed when the feed returned no ids at all.
func (w *Worker) processYear(ctx context.Context, t store.Task) error {
	if t.AcademicYear == "" {
		return taskErr(t, ErrCodeInvalidTask, errors.New("missing academic year"))
	}
	year, err := rate.ParseAcademicYear(t.AcademicYear)
	if err != nil {
		return taskErr(t, ErrCodeInvalidTask, err)
	}
	if w.feed == nil {
		return taskErr(t, ErrCodeMissingFeedURL, errors.New("feed URL is not configured"))
	}

	batch, err := w.feed.FetchYear(ctx, year.String())
	if err != nil {
		code := ErrCodeFeedUnavailable
		if errors.Is(err, feed.ErrMalformed) {
			code = ErrCodeFeedMalformed
		}
		return taskErr(t, code, err)
	}
	for _, merr := range batch.Malformed {
		slog.Warn("skipping malformed feed record", "task", t.ID, "year", year.String(), "error", merr)
	}

	// Every returned id is seen, even when its record is skipped below, so
	// a malformed record is never retired.
	now := w.now()
	seen := make(map[string]bool, len(batch.Records)+len(batch.MalformedIDs))
	for _, id := range batch.MalformedIDs {
		seen[id] = true
	}
	tasks := make([]store.Task, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if rec.ID.Truthy() {
			seen[rec.ID.String()] = true
		}
		if err := rec.Validate(); err != nil {
			slog.Warn("skipping invalid feed record", "task", t.ID, "year", year.String(), "error", err)
			continue
		}
		if rec.AcademicYear.Truthy() && rec.AcademicYear.String() != year.String() {
			slog.Debug("feed record belongs to another academic year",
				"task", t.ID, "external_id", rec.ID.String(), "year", year.String(), "record_year", rec.AcademicYear.String())
		}
		ut, err := NewUpsertTask(w.ids.Generate(), rec, now)
		if err != nil {
			slog.Warn("skipping unencodable feed record", "task", t.ID, "external_id", rec.ID.String(), "error", err)
			continue
		}
		tasks = append(tasks, ut)
	}

	upserts := len(tasks)
	if len(seen) == 0 {
		slog.Warn("feed returned no record ids, leaving year untouched", "task", t.ID, "year", year.String())
	} else {
		active, err := w.store.ActiveByYear(ctx, year.String())
		if err != nil {
			return taskErr(t, ErrCodeStoreFailure, err)
		}
		for _, r := range active {
			if !seen[r.ExternalID] {
				tasks = append(tasks, NewDeleteTask(w.ids.Generate(), r, now))
			}
		}
	}

	if err := w.store.EnqueueTasks(ctx, tasks...); err != nil {
		return taskErr(t, ErrCodeStoreFailure, fmt.Errorf("enqueue record tasks: %w", err))
	}

	slog.Info("year fetched",
		"task", t.ID,
		"year", year.String(),
		"upserts", upserts,
		"deletes", len(tasks)-upserts,
		"malformed", len(batch.Malformed),
	)
	return nil
}
