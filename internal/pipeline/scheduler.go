package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/tuition/internal/feed"
	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/store"
)

// Scheduler puts work on the queues.
type Scheduler struct {
	store Store
	feed  Feed
	ids   IDGenerator
	now   func() time.Time
}

// NewScheduler creates a Scheduler. A nil feed disables QueueRecord.
func NewScheduler(s Store, f Feed, opts Options) *Scheduler {
	sc := &Scheduler{store: s, feed: f, ids: opts.IDs, now: opts.Now}
	if sc.ids == nil {
		sc.ids = UUIDv7Generator{}
	}
	if sc.now == nil {
		sc.now = time.Now
	}
	return sc
}

// QueueYears enqueues one YearTask per academic year, in order. Years that
// repeat are queued once.
func (s *Scheduler) QueueYears(ctx context.Context, years ...rate.AcademicYear) ([]store.Task, error) {
	now := s.now()
	seen := make(map[rate.AcademicYear]bool, len(years))
	tasks := make([]store.Task, 0, len(years))
	for _, y := range years {
		if y.IsZero() {
			return nil, &TaskError{Kind: KindYear, Code: ErrCodeInvalidTask, Err: errors.New("missing academic year")}
		}
		if seen[y] {
			continue
		}
		seen[y] = true
		tasks = append(tasks, NewYearTask(s.ids.Generate(), y, now))
	}

	if err := s.store.EnqueueTasks(ctx, tasks...); err != nil {
		return nil, &TaskError{Kind: KindYear, Code: ErrCodeStoreFailure, Err: err}
	}
	for _, t := range tasks {
		slog.Info("year queued", "task", t.ID, "year", t.AcademicYear)
	}
	return tasks, nil
}

// QueueRecord fetches a single record from the feed and enqueues an
// UpsertTask for it. This is the manual re-import path.
func (s *Scheduler) QueueRecord(ctx context.Context, externalID string) (store.Task, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return store.Task{}, &TaskError{Kind: KindUpsert, Code: ErrCodeInvalidTask, Err: errors.New("missing external id")}
	}
	if s.feed == nil {
		return store.Task{}, &TaskError{Kind: KindUpsert, Code: ErrCodeMissingFeedURL, Err: errors.New("feed URL is not configured")}
	}

	rec, err := s.feed.FetchRecord(ctx, externalID)
	if err != nil {
		code := ErrCodeFeedUnavailable
		if errors.Is(err, feed.ErrMalformed) {
			code = ErrCodeFeedMalformed
		}
		return store.Task{}, &TaskError{Kind: KindUpsert, Code: code, Err: err}
	}
	if err := rec.Validate(); err != nil {
		return store.Task{}, &TaskError{Kind: KindUpsert, Code: ErrCodeFeedMalformed, Err: err}
	}

	t, err := NewUpsertTask(s.ids.Generate(), rec, s.now())
	if err != nil {
		return store.Task{}, &TaskError{Kind: KindUpsert, Code: ErrCodeInvalidTask, Err: err}
	}
	if err := s.store.EnqueueTasks(ctx, t); err != nil {
		return store.Task{}, &TaskError{Kind: KindUpsert, Code: ErrCodeStoreFailure, Err: fmt.Errorf("enqueue %s: %w", externalID, err)}
	}
	slog.Info("record queued", "task", t.ID, "external_id", t.ExternalID)
	return t, nil
}
