package models

import (
	"fmt"
	"strconv"
)

// ValueKind tags the dynamic type carried by a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

// Value is a typed value living in the variable context: string, integer,
// float, boolean, or absent (an extract that matched nothing, kept so
// predicates can test presence — spec.md §4.2).
type Value struct {
	Kind ValueKind
	Str  string
	Int  int64
	Flt  float64
	Bool bool
}

// Absent is the zero value representing "no value" (extract miss).
var Absent = Value{Kind: KindAbsent}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Flt: f} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, Bool: b} }

// IsAbsent reports whether this value represents a missing extraction.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// String renders the value the way a template substitution would.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Flt, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// AsFloat64 coerces the value to a float64 for ordering comparisons in
// predicates. Non-numeric kinds fall back to 0.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Flt, true
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// GoString implements fmt.GoStringer for debug/dry-run printing.
func (v Value) GoString() string {
	return fmt.Sprintf("%v", v.String())
}

// ValueFromCoercedString parses a raw extracted string into the narrowest
// matching Value, trying boolean, then integer, then float, then falling
// back to string — the order pinned by spec.md §4.2 and grounded on the
// original RegExExtractor._convert_type.
func ValueFromCoercedString(s string) Value {
	lower := s
	if lower == "true" || lower == "True" || lower == "TRUE" {
		return BoolValue(true)
	}
	if lower == "false" || lower == "False" || lower == "FALSE" {
		return BoolValue(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatValue(f)
	}
	return StringValue(s)
}
