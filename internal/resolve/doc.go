// Package resolve answers "what does this program cost" against a read-only
// projection of the active rate records.
//
// Resolution is a pure function of a Catalog, the current/next academic
// year mapping and the request Criteria. It performs no I/O and a Catalog
// is never mutated after BuildCatalog returns, so concurrent calls against
// the same Catalog need no locking.
package resolve
