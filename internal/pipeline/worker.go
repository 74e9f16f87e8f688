package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tuition/internal/store"
)

// Default worker timings.
const (
	DefaultLease        = 5 * time.Minute
	DefaultPollInterval = 30 * time.Second
)

// Options configures a Worker. Zero values select the defaults.
type Options struct {
	// Lease is how long a claimed task is hidden from other consumers.
	Lease time.Duration

	// PollInterval is the idle wait between drains in Follow.
	PollInterval time.Duration

	// Now returns the wall clock; time.Now when nil.
	Now func() time.Time

	// IDs generates ids for fanned-out tasks; UUIDv7 when nil.
	IDs IDGenerator
}

// Stats counts the tasks a drain handled.
type Stats struct {
	Processed int
	Failed    int
}

// Add returns the sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{Processed: s.Processed + o.Processed, Failed: s.Failed + o.Failed}
}

// Worker consumes the year and record queues.
//
// A nil feed means no feed URL is configured: every YearTask then fails
// with ErrCodeMissingFeedURL before creating any record task.
//
// Thread-safety: a Worker processes one task at a time. Several workers
// may share a store; the lease keeps them from claiming the same task.
type Worker struct {
	store Store
	feed  Feed
	opts  Options
	ids   IDGenerator
	now   func() time.Time
}

// NewWorker creates a Worker.
func NewWorker(s Store, f Feed, opts Options) *Worker {
	if opts.Lease <= 0 {
		opts.Lease = DefaultLease
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	w := &Worker{store: s, feed: f, opts: opts, ids: opts.IDs, now: opts.Now}
	if w.ids == nil {
		w.ids = UUIDv7Generator{}
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Drain processes tasks from queue in FIFO order until it is empty.
//
// Failed tasks are logged and acknowledged; they count toward Stats.Failed
// and do not stop the drain. The returned error reports only queue
// failures and context cancellation.
func (w *Worker) Drain(ctx context.Context, queue string) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		t, ok, err := w.store.ClaimTask(ctx, queue, w.now(), w.opts.Lease)
		if err != nil {
			return stats, fmt.Errorf("drain %s: %w", queue, err)
		}
		if !ok {
			return stats, nil
		}

		if err := w.Process(ctx, t); err != nil {
			if ctx.Err() != nil {
				// Interrupted, not failed: leave it leased for redelivery.
				return stats, ctx.Err()
			}
			// Log and continue: the next YearTask is the retry.
			logTaskError(t, err)
			stats.Failed++
		}
		stats.Processed++

		if err := w.store.AckTask(ctx, t.ID); err != nil {
			return stats, fmt.Errorf("drain %s: %w", queue, err)
		}
	}
}

// Run drains the year queue and then the record queue, repeating until a
// pass finds both empty.
func (w *Worker) Run(ctx context.Context) (Stats, error) {
	var total Stats
	for {
		years, err := w.Drain(ctx, QueueYear)
		total = total.Add(years)
		if err != nil {
			return total, err
		}
		records, err := w.Drain(ctx, QueueRecord)
		total = total.Add(records)
		if err != nil {
			return total, err
		}
		if years.Processed == 0 && records.Processed == 0 {
			return total, nil
		}
	}
}

// Follow runs until ctx is cancelled, polling for new tasks between runs.
func (w *Worker) Follow(ctx context.Context) error {
	slog.Info("worker starting", "poll_interval", w.opts.PollInterval)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		stats, err := w.Run(ctx)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if stats.Processed > 0 {
			slog.Info("queues drained", "processed", stats.Processed, "failed", stats.Failed)
		}

		select {
		case <-ctx.Done():
			slog.Info("worker stopping: context cancelled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Process executes a single task without touching the queue.
func (w *Worker) Process(ctx context.Context, t store.Task) error {
	switch t.Kind {
	case KindYear:
		return w.processYear(ctx, t)
	case KindUpsert:
		return w.processUpsert(ctx, t)
	case KindDelete:
		return w.processDelete(ctx, t)
	default:
		return taskErr(t, ErrCodeInvalidTask, fmt.Errorf("unknown task kind %q", t.Kind))
	}
}

func logTaskError(t store.Task, err error) {
	attrs := []any{
		"task", t.ID,
		"queue", t.Queue,
		"kind", t.Kind,
		"attempts", t.Attempts,
		"error", err,
	}
	if code := CodeOf(err); code != "" {
		attrs = append(attrs, "code", string(code))
	}
	if t.ExternalID != "" {
		attrs = append(attrs, "external_id", t.ExternalID)
	}
	if t.AcademicYear != "" {
		attrs = append(attrs, "year", t.AcademicYear)
	}
	if t.LocalID != 0 {
		attrs = append(attrs, "local_id", t.LocalID)
	}
	slog.Error("task failed", attrs...)
}
