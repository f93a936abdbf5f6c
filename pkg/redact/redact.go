package redact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// Marker replaces redacted values in persisted snapshots.
	Marker = "[REDACTED]"

	// TruncationMarker replaces subtrees deeper than MaxDepth.
	TruncationMarker = "[TRUNCATED]"

	// SummaryThreshold is the serialized size above which a large-field value
	// is replaced by a summary envelope instead of being stored in full.
	SummaryThreshold = 5 * 1024

	// MaxDepth bounds the recursive traversal. Snapshots are expected to be
	// acyclic, but a cyclic or absurdly nested value must not hang the drain
	// worker.
	MaxDepth = 64
)

// sensitiveFields holds keys whose values are never persisted. Matching is
// case-insensitive on the full key name.
var sensitiveFields = map[string]struct{}{
	"password":       {},
	"password_hash":  {},
	"token":          {},
	"access_token":   {},
	"refresh_token":  {},
	"secret":         {},
	"api_key":        {},
	"private_key":    {},
	"signed_url":     {},
	"session_id":     {},
	"csrf_token":     {},
	"authorization":  {},
	"cookie":         {},
	"reset_token":    {},
	"invite_token":   {},
	"webhook_secret": {},
}

// largeFields holds keys known to carry free-form JSON blobs that can grow
// without bound: form answer snapshots, schema and UI definitions, theming
// blocks. Oversized values of these keys are summarized, never stored whole.
var largeFields = map[string]struct{}{
	"answers":          {},
	"answers_snapshot": {},
	"form_schema":      {},
	"schema":           {},
	"ui_schema":        {},
	"branding":         {},
	"theme":            {},
	"layout":           {},
}

// Summary describes an oversized field without carrying its content.
type Summary struct {
	IsSummary bool   `json:"_summary"`
	Size      int    `json:"size"`
	Type      string `json:"type"`
	Hash      string `json:"hash"`
}

// IsSensitiveField reports whether values under the given key are redacted.
func IsSensitiveField(key string) bool {
	_, ok := sensitiveFields[strings.ToLower(key)]
	return ok
}

// IsLargeField reports whether the given key is subject to summarization.
func IsLargeField(key string) bool {
	_, ok := largeFields[strings.ToLower(key)]
	return ok
}

// Apply walks a snapshot, redacting sensitive fields and summarizing
// oversized large fields at any nesting depth. The input is first normalized
// with ToJSONSafe, so callers can pass raw records. It returns the
// transformed value and whether any redaction was applied. The input is never
// modified.
func Apply(v any) (any, bool) {
	redacted := false
	out := walk(ToJSONSafe(v), 0, &redacted)
	return out, redacted
}

func walk(v any, depth int, redacted *bool) any {
	if depth > MaxDepth {
		return TruncationMarker
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			switch {
			case IsSensitiveField(k):
				out[k] = Marker
				*redacted = true
			case IsLargeField(k):
				out[k] = summarize(walk(child, depth+1, redacted))
			default:
				out[k] = walk(child, depth+1, redacted)
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = walk(child, depth+1, redacted)
		}
		return out
	default:
		return v
	}
}

// summarize replaces v with a Summary envelope when its serialized form
// exceeds SummaryThreshold; smaller values pass through verbatim.
func summarize(v any) any {
	raw, err := json.Marshal(v)
	if err != nil || len(raw) <= SummaryThreshold {
		return v
	}
	return Summary{
		IsSummary: true,
		Size:      len(raw),
		Type:      jsonTypeName(v),
		Hash:      fmt.Sprintf("%016x", xxhash.Sum64(raw)),
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return "number"
	}
}
