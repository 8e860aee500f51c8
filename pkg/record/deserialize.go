package record

import (
	"encoding/json"
	"fmt"
)

// Deserialize converts a wire-encoded attribute value into a plain native
// value, recursively. It is total: unrecognized shapes degrade to string
// coercion, never an error. It is also idempotent: feeding its own output back
// returns the same value.
//
// A bare one-element array whose element is a tagged map is treated as an
// accidental wrapper introduced by intermediate tooling and unwrapped. A bare
// array of plain values is already deserialized and is mapped element-wise so
// re-deserialization leaves it unchanged.
func Deserialize(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		if len(v) == 0 {
			return nil
		}
		if _, err := Decode(v[0]); err == nil {
			return Deserialize(v[0])
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Deserialize(item)
		}
		return out
	case map[string]any:
		if val, err := Decode(v); err == nil {
			return val.Native()
		}
		// Plain map: recurse per value so already-deserialized maps pass
		// through unchanged.
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Deserialize(item)
		}
		return out
	case string, bool, int, int64, float64:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// DeserializeItem applies Deserialize to every attribute of a raw record.
func DeserializeItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = Deserialize(v)
	}
	return out
}

// Coerce renders a deserialized value as the string form used by the tabular
// schema. Nil becomes the empty string. Maps and lists render as JSON so a
// structured value survives coercion in a form the loose parser can read
// back; everything else falls through to plain formatting.
func Coerce(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	switch v.(type) {
	case map[string]any, []any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", v)
}
