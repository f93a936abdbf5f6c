// Package pgstore is the PostgreSQL backing for the audit pipeline. A single
// Store implements the three narrow interfaces the pipeline consumes:
//
//   - audit.Storage – inserts durable rows into audit_logs
//   - eventref.RelationSource – chases application and submission-version
//     foreign keys to their owning event
//   - audit.PreImageSource – bounded single-row lookups before updates and
//     deletes
//
// The store never opens transactions. Audit rows are independent writes made
// after the business transaction completed; holding a transaction open on
// the shared pool from the audit path would couple the two failure domains.
package pgstore
