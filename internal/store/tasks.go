package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Task is a persisted queue entry. Payload is opaque to the store.
type Task struct {
	ID           string
	Seq          int64
	Queue        string
	Kind         string
	ExternalID   string
	AcademicYear string
	LocalID      int64
	Payload      []byte
	EnqueuedAt   time.Time
	Attempts     int
}

// EnqueueTasks appends tasks to their queues in one transaction, so a batch
// is either fully visible to consumers or not at all. Order within the
// batch is preserved. Tasks whose ID is already queued are skipped.
func (s *Store) EnqueueTasks(ctx context.Context, tasks ...Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("enqueue tasks: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks
		(id, queue, kind, external_id, academic_year, local_id, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("enqueue tasks: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		payload := t.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.Queue, t.Kind, t.ExternalID, t.AcademicYear, t.LocalID,
			string(payload), toNanos(t.EnqueuedAt),
		); err != nil {
			return fmt.Errorf("enqueue task %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("enqueue tasks: commit: %w", err)
	}
	return nil
}

// ClaimTask returns the oldest task of queue whose lease is free and leases
// it until now+lease. Returns ok=false when nothing is claimable.
//
// A claimed task stays in the queue until AckTask; if the consumer dies the
// lease runs out and the task is handed out again.
func (s *Store) ClaimTask(ctx context.Context, queue string, now time.Time, lease time.Duration) (Task, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Task{}, false, fmt.Errorf("claim task: begin tx: %w", err)
	}
	defer tx.Rollback()

	var t Task
	var payload string
	var enqueued int64
	err = tx.QueryRowContext(ctx, `
		SELECT seq, id, queue, kind, external_id, academic_year, local_id, payload, enqueued_at, attempts
		FROM tasks
		WHERE queue = ? AND lease_until <= ?
		ORDER BY seq ASC
		LIMIT 1
	`, queue, now.UnixNano()).Scan(
		&t.Seq, &t.ID, &t.Queue, &t.Kind, &t.ExternalID, &t.AcademicYear, &t.LocalID,
		&payload, &enqueued, &t.Attempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("claim task: select: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET lease_until = ?, attempts = attempts + 1 WHERE seq = ?
	`, now.Add(lease).UnixNano(), t.Seq); err != nil {
		return Task{}, false, fmt.Errorf("claim task %s: lease: %w", t.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return Task{}, false, fmt.Errorf("claim task %s: commit: %w", t.ID, err)
	}

	t.Payload = []byte(payload)
	t.EnqueuedAt = fromNanos(enqueued)
	t.Attempts++
	return t, true, nil
}

// AckTask removes a task from its queue. Acking an unknown id is a no-op.
func (s *Store) AckTask(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("ack task %s: %w", id, err)
	}
	return nil
}

// QueueLength returns the number of tasks waiting in queue, leased or not.
func (s *Store) QueueLength(ctx context.Context, queue string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE queue = ?`, queue).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue length %s: %w", queue, err)
	}
	return n, nil
}
