// Package pald defines the value types shared across the PALD core
// components: the dynamically-typed field value, the attribute schema, and
// the light/diff/bias/artifact/prerequisite records built on top of them.
package pald

import (
	"fmt"
	"strings"
)

// ValueKind discriminates the dynamically-typed field values the schema and
// extractor traffic in.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindObject
)

// Value is a tagged union over the dynamic value kinds a schema field can
// hold, used in place of interface{} at validation and extraction sites so
// conversions stay explicit.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	List   []Value
	Object map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{Kind: KindNull} }

// NewString wraps a string as a Value.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewInt wraps an int64 as a Value.
func NewInt(i int64) Value { return Value{Kind: KindInt, Int: i} }

// NewFloat wraps a float64 as a Value.
func NewFloat(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// NewBool wraps a bool as a Value.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewList wraps a slice of Values as a list Value.
func NewList(items []Value) Value { return Value{Kind: KindList, List: items} }

// NewObject wraps a field map as an object Value.
func NewObject(fields map[string]Value) Value { return Value{Kind: KindObject, Object: fields} }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// IsMeaningful reports whether v carries non-empty content: not null, not an
// empty/whitespace string, and not an empty list or object.
func (v Value) IsMeaningful() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindString:
		return strings.TrimSpace(v.Str) != ""
	case KindList:
		return len(v.List) > 0
	case KindObject:
		return len(v.Object) > 0
	default:
		return true
	}
}

// AsString returns v's string representation for display/logging purposes.
func (v Value) AsString() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindObject:
		return fmt.Sprintf("%v", v.Object)
	default:
		return ""
	}
}

// Specificity is a rough ordering proxy used by the diff engine to decide
// which of two differing values is "more specific": string length, list/
// object size, else 1 for any other non-null scalar.
func (v Value) Specificity() int {
	switch v.Kind {
	case KindString:
		return len(v.Str)
	case KindList:
		return len(v.List)
	case KindObject:
		return len(v.Object)
	case KindNull:
		return 0
	default:
		return 1
	}
}
