// Package record provides the order-preserving JSON data model used for
// NetBox API objects.
//
// The standard map-based decoding loses field order, which the reporting
// views depend on (column order of generic exports follows the server's
// field order). Record keeps keys in the order they appear on the wire.
package record

import (
	"strconv"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	// KindNull is a JSON null (also the zero Value).
	KindNull Kind = iota
	// KindBool is a JSON boolean.
	KindBool
	// KindNumber is a JSON number; the literal text is preserved.
	KindNumber
	// KindString is a JSON string.
	KindString
	// KindRecord is a nested JSON object.
	KindRecord
	// KindList is a JSON array.
	KindList
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is one JSON value. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	s    string // string content or number literal
	rec  *Record
	list []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number literal such as "42" or "1.5e3".
func Number(literal string) Value { return Value{kind: KindNumber, s: literal} }

// Int wraps an integer.
func Int(n int64) Value { return Number(strconv.FormatInt(n, 10)) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Object wraps a nested record. A nil record yields null.
func Object(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindRecord, rec: r}
}

// List wraps a sequence of values.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Kind reports the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is null, a boolean, a number or a string.
func (v Value) IsScalar() bool {
	return v.kind != KindRecord && v.kind != KindList
}

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Str returns the string held by v. It does not convert other kinds.
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Literal returns the number literal held by v.
func (v Value) Literal() (string, bool) {
	return v.s, v.kind == KindNumber
}

// Int64 returns v as an integer when it is an integral number or a string
// holding one.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber && v.kind != KindString {
		return 0, false
	}
	n, err := strconv.ParseInt(v.s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Record returns the nested record held by v, or nil.
func (v Value) Record() *Record {
	if v.kind != KindRecord {
		return nil
	}
	return v.rec
}

// List returns a copy of the items held by v, or nil.
func (v Value) List() []Value {
	if v.kind != KindList {
		return nil
	}
	cp := make([]Value, len(v.list))
	copy(cp, v.list)
	return cp
}

// Len returns the number of items of a list or fields of a record.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindRecord:
		return v.rec.Len()
	default:
		return 0
	}
}

// Text renders a scalar in its natural form: strings unquoted, numbers as
// their literal, booleans as true/false and null as the empty string.
// Records and lists render as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.s
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	}
}
