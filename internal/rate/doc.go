// Package rate defines the tuition rate data model shared by the store,
// the reconciliation pipeline and the resolution engine.
//
// Two shapes exist for the same rate:
//   - FeedRecord: the camelCase object delivered by the system-of-record
//     feed. Its fields are loosely typed on the wire (numbers may arrive as
//     strings, strings as numbers, anything as null).
//   - Record: the strongly typed catalog row persisted by the store.
//
// # Invariants
//
//   - A Record is identified among active rows by Key (external id,
//     academic term, term code).
//   - AcademicYear always spans two consecutive calendar years.
//   - Record.Apply is a sparse patch: empty or zero-like feed values never
//     overwrite stored values, except AmountPerTerm which is always written.
//   - Records are never erased by reconciliation; Active=false is the
//     soft-delete marker.
package rate
