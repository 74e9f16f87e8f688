// Package store provides SQLite-backed durable storage for the tuition rate
// catalog and the reconciliation task queues.
//
// Two tables carry the state:
//   - rates: one row per (external id, academic term, term code). Rows are
//     never deleted by reconciliation; active=0 is the soft-delete marker.
//   - tasks: persisted queue entries. Each queue is consumed in FIFO order
//     (seq ASC). A claim stamps a lease; a task whose lease expires without
//     an ack is delivered again, so delivery is at-least-once.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Amounts are stored as decimal TEXT. Timestamps are stored as INTEGER unix
// nanoseconds with 0 meaning "unknown".
package store
