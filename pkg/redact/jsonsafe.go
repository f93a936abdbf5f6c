package redact

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"time"
)

// ToJSONSafe converts an arbitrary runtime value into a structure composed
// solely of JSON-native types: nil, bool, string, float64/int64, []any and
// map[string]any. Timestamps become RFC 3339 strings, raw bytes become a
// type-tagged base64 envelope, and big integers become decimal strings. It
// never panics; a value with no usable representation becomes nil.
func ToJSONSafe(v any) (out any) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()
	return toJSONSafe(v, 0)
}

func toJSONSafe(v any, depth int) any {
	if v == nil {
		return nil
	}
	if depth > MaxDepth {
		return TruncationMarker
	}

	switch val := v.(type) {
	case bool, string, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case json.Number:
		return val
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339Nano)
	case []byte:
		return map[string]any{
			"type":   "binary",
			"base64": base64.StdEncoding.EncodeToString(val),
		}
	case *big.Int:
		if val == nil {
			return nil
		}
		return val.String()
	case big.Int:
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = toJSONSafe(child, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = toJSONSafe(child, depth+1)
		}
		return out
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}

	return reflectJSONSafe(reflect.ValueOf(v), depth)
}

// reflectJSONSafe handles composite kinds not covered by the fast-path type
// switch: typed maps, typed slices, structs and pointers to them.
func reflectJSONSafe(rv reflect.Value, depth int) any {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return toJSONSafe(rv.Elem().Interface(), depth)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = toJSONSafe(iter.Value().Interface(), depth+1)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = toJSONSafe(rv.Index(i).Interface(), depth+1)
		}
		return out
	case reflect.Struct:
		// Round-trip through encoding/json so struct tags are honored.
		raw, err := json.Marshal(rv.Interface())
		if err != nil {
			return nil
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil
		}
		return decoded
	}

	// Channels, funcs, unsafe pointers: nothing sensible to store.
	if raw, err := json.Marshal(rv.Interface()); err == nil {
		var decoded any
		if json.Unmarshal(raw, &decoded) == nil {
			return decoded
		}
	}
	return nil
}
