package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/tuition/internal/rate"
	"github.com/roach88/tuition/internal/store"
)

// processUpsert applies one feed record to every local record sharing its
// natural key, or creates the record when none exists.
//
// Inactive records are matched too, so a record that reappears in the feed
// is reactivated in place rather than duplicated.
func (w *Worker) processUpsert(ctx context.Context, t store.Task) error {
	rec, err := decodeUpsert(t)
	if err != nil {
		return taskErr(t, ErrCodeInvalidTask, err)
	}
	if err := rec.Validate(); err != nil {
		return taskErr(t, ErrCodeFeedMalformed, err)
	}
	incoming, err := rec.SourceTime()
	if err != nil {
		return taskErr(t, ErrCodeFeedMalformed, err)
	}

	existing, err := w.store.FindByKey(ctx, rec.Key())
	if err != nil {
		return taskErr(t, ErrCodeStoreFailure, err)
	}

	if len(existing) == 0 {
		err := w.create(ctx, t, rec)
		if err == nil || !errors.Is(err, store.ErrDuplicateKey) {
			return err
		}
		// Another writer created the key between lookup and insert.
		slog.Debug("insert lost race, updating instead", "task", t.ID, "external_id", rec.ID.String())
		if existing, err = w.store.FindByKey(ctx, rec.Key()); err != nil {
			return taskErr(t, ErrCodeStoreFailure, err)
		}
	}

	for _, r := range existing {
		if !r.AcceptsUpdateFrom(incoming) {
			slog.Info("record did not require updating",
				"task", t.ID,
				"external_id", r.ExternalID,
				"local_id", r.LocalID,
				"stored", r.SourceUpdatedAt,
				"incoming", incoming,
			)
			continue
		}
		if err := r.Apply(rec); err != nil {
			return taskErr(t, ErrCodeFeedMalformed, err)
		}
		r.Active = true
		err := w.store.UpdateRate(ctx, r, w.now())
		if errors.Is(err, store.ErrStaleUpdate) {
			// A newer update landed after the lookup.
			slog.Info("record did not require updating",
				"task", t.ID,
				"external_id", r.ExternalID,
				"local_id", r.LocalID,
				"incoming", incoming,
			)
			continue
		}
		if err != nil {
			return taskErr(t, ErrCodeStoreFailure, err)
		}
		slog.Info("record updated", "task", t.ID, "external_id", r.ExternalID, "local_id", r.LocalID, "year", r.AcademicYear)
	}
	return nil
}

// create inserts a new active record. A natural key collision is returned
// unwrapped so the caller can fall back to the update path.
func (w *Worker) create(ctx context.Context, t store.Task, rec rate.FeedRecord) error {
	var r rate.Record
	if err := r.Apply(rec); err != nil {
		return taskErr(t, ErrCodeFeedMalformed, err)
	}
	r.Active = true

	id, err := w.store.InsertRate(ctx, r, w.now())
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return err
		}
		return taskErr(t, ErrCodeStoreFailure, err)
	}
	slog.Info("record created", "task", t.ID, "external_id", r.ExternalID, "local_id", id, "year", r.AcademicYear)
	return nil
}

// processDelete soft-deletes one record. A missing or already inactive
// record is a no-op.
func (w *Worker) processDelete(ctx context.Context, t store.Task) error {
	if t.LocalID <= 0 {
		return taskErr(t, ErrCodeInvalidTask, fmt.Errorf("invalid local id %d", t.LocalID))
	}

	r, err := w.store.GetRate(ctx, t.LocalID)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Info("record to retire not found", "task", t.ID, "local_id", t.LocalID)
		return nil
	}
	if err != nil {
		return taskErr(t, ErrCodeStoreFailure, err)
	}
	if !r.Active {
		slog.Debug("record already inactive", "task", t.ID, "local_id", t.LocalID)
		return nil
	}

	if _, err := w.store.SetActive(ctx, r.LocalID, false, w.now()); err != nil {
		return taskErr(t, ErrCodeStoreFailure, err)
	}
	slog.Info("record retired", "task", t.ID, "external_id", r.ExternalID, "local_id", r.LocalID, "year", r.AcademicYear)
	return nil
}
