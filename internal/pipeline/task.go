package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/tuition/internal/feed"
	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/store"
)

// Queue names.
const (
	QueueYear   = "year"
	QueueRecord = "record"
)

// Task kinds.
const (
	KindYear   = "year"
	KindUpsert = "upsert"
	KindDelete = "delete"
)

// Store is the subset of the rate store the pipeline needs.
type Store interface {
	FindByKey(ctx context.Context, key rate.Key) ([]rate.Record, error)
	GetRate(ctx context.Context, localID int64) (rate.Record, error)
	InsertRate(ctx context.Context, r rate.Record, now time.Time) (int64, error)
	UpdateRate(ctx context.Context, r rate.Record, now time.Time) error
	SetActive(ctx context.Context, localID int64, active bool, now time.Time) (bool, error)
	ActiveByYear(ctx context.Context, academicYear string) ([]rate.Record, error)

	EnqueueTasks(ctx context.Context, tasks ...store.Task) error
	ClaimTask(ctx context.Context, queue string, now time.Time, lease time.Duration) (store.Task, bool, error)
	AckTask(ctx context.Context, id string) error
}

// Feed fetches rate records. *feed.Client satisfies it.
type Feed interface {
	FetchYear(ctx context.Context, academicYear string) (feed.Batch, error)
	FetchRecord(ctx context.Context, externalID string) (rate.FeedRecord, error)
}

// NewYearTask builds a YearTask for academicYear.
func NewYearTask(id string, academicYear rate.AcademicYear, now time.Time) store.Task {
	return store.Task{
		ID:           id,
		Queue:        QueueYear,
		Kind:         KindYear,
		AcademicYear: academicYear.String(),
		EnqueuedAt:   now,
	}
}

// NewUpsertTask builds an UpsertTask carrying the full feed record.
func NewUpsertTask(id string, rec rate.FeedRecord, now time.Time) (store.Task, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return store.Task{}, fmt.Errorf("encode upsert payload %s: %w", rec.ID, err)
	}
	return store.Task{
		ID:           id,
		Queue:        QueueRecord,
		Kind:         KindUpsert,
		ExternalID:   rec.ID.String(),
		AcademicYear: rec.AcademicYear.String(),
		Payload:      payload,
		EnqueuedAt:   now,
	}, nil
}

// NewDeleteTask builds a DeleteTask retiring the record r.
func NewDeleteTask(id string, r rate.Record, now time.Time) store.Task {
	return store.Task{
		ID:           id,
		Queue:        QueueRecord,
		Kind:         KindDelete,
		ExternalID:   r.ExternalID,
		AcademicYear: r.AcademicYear,
		LocalID:      r.LocalID,
		EnqueuedAt:   now,
	}
}

// decodeUpsert extracts the feed record from an UpsertTask.
func decodeUpsert(t store.Task) (rate.FeedRecord, error) {
	var rec rate.FeedRecord
	if err := json.Unmarshal(t.Payload, &rec); err != nil {
		return rate.FeedRecord{}, fmt.Errorf("decode payload: %w", err)
	}
	return rec, nil
}
