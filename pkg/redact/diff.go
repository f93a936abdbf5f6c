package redact

import (
	"bytes"
	"encoding/json"
)

// Change records a single field transition between two snapshots.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Diff compares two records and returns the keys whose serialized values
// differ, mapped to their before/after pair. Keys present on only one side
// count as changed. Returns nil when the records are equal, so callers can
// distinguish "no change" without inspecting the map.
func Diff(before, after map[string]any) map[string]Change {
	if before == nil && after == nil {
		return nil
	}

	changes := make(map[string]Change)
	for key := range keyUnion(before, after) {
		b, inBefore := before[key]
		a, inAfter := after[key]
		if inBefore && inAfter && jsonEqual(b, a) {
			continue
		}
		changes[key] = Change{From: ToJSONSafe(b), To: ToJSONSafe(a)}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}

// DiffEnvelope wraps a change set in the persisted diff marker shape. Update
// audits store this in place of a full after-snapshot.
func DiffEnvelope(changes map[string]Change) map[string]any {
	return map[string]any{
		"_diff":   true,
		"changes": changes,
	}
}

func keyUnion(a, b map[string]any) map[string]struct{} {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}

// jsonEqual compares values on their serialized forms so semantically equal
// values of different runtime types (int vs float64 after a decode round
// trip) do not produce spurious diffs.
func jsonEqual(a, b any) bool {
	ra, errA := json.Marshal(ToJSONSafe(a))
	rb, errB := json.Marshal(ToJSONSafe(b))
	if errA != nil || errB != nil {
		return errA == nil && errB == nil
	}
	return bytes.Equal(ra, rb)
}
