// Package record models the document store's tagged-union wire encoding as an
// explicit variant type and provides a total, idempotent deserializer over it.
//
// On the wire every attribute value is a single-key map whose key names the
// type: {"S": "text"}, {"N": "42"}, {"BOOL": true}, {"NULL": true},
// {"L": [...]}, {"M": {...}}, {"SS": [...]}, {"NS": [...]}, {"BS": [...]}.
// Exported scans sometimes wrap values in a one-element array; Deserialize
// tolerates that too.
package record

import (
	"fmt"
	"strconv"
	"strings"

	crerrors "github.com/otherjamesbrown/convrep/pkg/errors"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindList
	KindMap
	KindTextSet
	KindNumberSet
	KindBinarySet
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindTextSet:
		return "text_set"
	case KindNumberSet:
		return "number_set"
	case KindBinarySet:
		return "binary_set"
	}
	return "unknown"
}

// Value is one decoded wire value. The zero Value is null.
type Value struct {
	kind    Kind
	text    string // text, or the raw numeric literal for numbers
	boolean bool
	list    []Value
	mapping map[string]Value
	set     []string
}

// Constructors for each variant.

func Null() Value            { return Value{kind: KindNull} }
func Text(s string) Value    { return Value{kind: KindText, text: s} }
func Number(raw string) Value { return Value{kind: KindNumber, text: raw} }
func Bool(b bool) Value      { return Value{kind: KindBool, boolean: b} }
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}
func Map(m map[string]Value) Value {
	return Value{kind: KindMap, mapping: m}
}
func TextSet(members ...string) Value {
	return Value{kind: KindTextSet, set: members}
}
func NumberSet(members ...string) Value {
	return Value{kind: KindNumberSet, set: members}
}
func BinarySet(members ...string) Value {
	return Value{kind: KindBinarySet, set: members}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Native converts v into a plain Go value: string, int64/float64, bool, nil,
// []any, or map[string]any. Numbers keep their raw text when the literal does
// not parse.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindText:
		return v.text
	case KindNumber:
		return parseNumber(v.text)
	case KindBool:
		return v.boolean
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.mapping))
		for k, item := range v.mapping {
			out[k] = item.Native()
		}
		return out
	case KindTextSet, KindBinarySet:
		out := make([]any, len(v.set))
		for i, member := range v.set {
			out[i] = member
		}
		return out
	case KindNumberSet:
		out := make([]any, len(v.set))
		for i, member := range v.set {
			out[i] = parseNumber(member)
		}
		return out
	}
	return nil
}

// wireKinds maps discriminator keys to variant kinds.
var wireKinds = map[string]Kind{
	"S":    KindText,
	"N":    KindNumber,
	"BOOL": KindBool,
	"NULL": KindNull,
	"L":    KindList,
	"M":    KindMap,
	"SS":   KindTextSet,
	"NS":   KindNumberSet,
	"BS":   KindBinarySet,
}

// Decode interprets a decoded-JSON wire value (a single-key tagged map) as a
// Value. Inputs that are not tagged maps return a ParseError; callers fall
// back to treating them as plain values.
func Decode(raw any) (Value, error) {
	m, ok := raw.(map[string]any)
	if !ok || len(m) != 1 {
		return Value{}, crerrors.NewParseError("wire", fmt.Sprintf("%v", raw), nil)
	}
	var tag string
	var inner any
	for k, v := range m {
		tag, inner = k, v
	}
	kind, ok := wireKinds[tag]
	if !ok {
		return Value{}, crerrors.NewParseError("wire", tag, nil)
	}

	switch kind {
	case KindNull:
		return Null(), nil
	case KindText:
		return Text(coerceString(inner)), nil
	case KindNumber:
		return Number(coerceString(inner)), nil
	case KindBool:
		b, _ := inner.(bool)
		return Bool(b), nil
	case KindList:
		items, _ := inner.([]any)
		list := make([]Value, 0, len(items))
		for _, item := range items {
			v, err := Decode(item)
			if err != nil {
				v = fromNative(item)
			}
			list = append(list, v)
		}
		return Value{kind: KindList, list: list}, nil
	case KindMap:
		fields, _ := inner.(map[string]any)
		mapping := make(map[string]Value, len(fields))
		for k, item := range fields {
			v, err := Decode(item)
			if err != nil {
				v = fromNative(item)
			}
			mapping[k] = v
		}
		return Value{kind: KindMap, mapping: mapping}, nil
	case KindTextSet, KindNumberSet, KindBinarySet:
		members, _ := inner.([]any)
		set := make([]string, 0, len(members))
		for _, member := range members {
			set = append(set, coerceString(member))
		}
		return Value{kind: kind, set: set}, nil
	}
	return Value{}, crerrors.NewParseError("wire", tag, nil)
}

// fromNative wraps an already-plain value in the matching variant.
func fromNative(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null()
	case string:
		return Text(v)
	case bool:
		return Bool(v)
	case int:
		return Number(strconv.Itoa(v))
	case int64:
		return Number(strconv.FormatInt(v, 10))
	case float64:
		return Number(strconv.FormatFloat(v, 'f', -1, 64))
	case []any:
		list := make([]Value, 0, len(v))
		for _, item := range v {
			list = append(list, fromNative(item))
		}
		return Value{kind: KindList, list: list}
	case map[string]any:
		mapping := make(map[string]Value, len(v))
		for k, item := range v {
			mapping[k] = fromNative(item)
		}
		return Value{kind: KindMap, mapping: mapping}
	default:
		return Text(fmt.Sprintf("%v", raw))
	}
}

// parseNumber converts a numeric literal: integer when there is no decimal
// point, float otherwise, raw text when neither parses.
func parseNumber(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, ".") {
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return n
		}
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return raw
}

// coerceString renders any scalar as a string.
func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
