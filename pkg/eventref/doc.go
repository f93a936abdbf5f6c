// Package eventref resolves the owning event of a mutation so audit entries
// can be attributed to the event they belong to. Most records in the platform
// hang off an event directly or through one of two relation chains:
//
//	application        → event
//	submission_version → application → event
//
// The resolver first looks for a direct event_id foreign key on the
// mutation's input and snapshots. Failing that, it chases the application or
// submission-version relation through a RelationSource, memoizing results in
// bounded TTL caches so a burst of writes against the same application does
// not hammer the relation tables. A two-hop chase populates both caches, so
// the transitively discovered application id is free on the next lookup.
//
// Lookup failure of any kind resolves to "no event": attribution is
// best-effort and never propagates errors into the audit pipeline.
package eventref
