// Package redact provides pure functions that prepare mutation snapshots for
// audit persistence: sensitive-field redaction, oversized-field summarization,
// before/after diff computation, and conversion of arbitrary runtime values
// into storage-safe JSON structures.
//
// The package has no dependencies on storage or transport and keeps no state,
// so the same functions serve both the async drain worker and the synchronous
// fallback path.
//
// # Redaction and summarization
//
//	safe, redacted := redact.Apply(map[string]any{
//	    "email":         "a@b.co",
//	    "password_hash": "h123",
//	})
//	// safe["password_hash"] == redact.Marker, redacted == true
//
// Redaction replaces values of known credential-bearing keys with a fixed
// marker at any nesting depth. Summarization replaces known large free-form
// fields (form answer snapshots, schema definitions, branding blocks) with a
// small size/type/fingerprint envelope once their serialized form exceeds
// SummaryThreshold. A key matched by both sets is redacted; redaction wins.
//
// Traversal is depth-limited so a pathological or cyclic snapshot cannot
// recurse without bound; subtrees past the limit collapse to a truncation
// marker.
//
// # Diffs
//
// Diff compares two records key by key on their serialized forms and returns
// the changed keys only, or nil when the records are equal. Update audits
// store the diff envelope instead of two full snapshots.
//
// # JSON safety
//
// ToJSONSafe is total over the value space the pipeline can encounter: maps,
// slices, structs, timestamps, big integers, and raw bytes all become plain
// JSON-compatible values. It never panics; values with no reasonable JSON
// representation become nil.
package redact
