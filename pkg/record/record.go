package record

import (
	"strings"
)

// Record is an ordered mapping from field name to Value. Records built by
// Decode are never modified afterwards; Set exists for building records in
// tests and fixtures.
type Record struct {
	keys   []string
	fields map[string]Value
}

// New returns an empty record.
func New() *Record {
	return &Record{fields: make(map[string]Value)}
}

// Set assigns a field. A new key is appended to the field order; an existing
// key keeps its position. Set returns r for chaining.
func (r *Record) Set(key string, v Value) *Record {
	if r.fields == nil {
		r.fields = make(map[string]Value)
	}
	if _, exists := r.fields[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = v
	return r
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the field names in wire order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	cp := make([]string, len(r.keys))
	copy(cp, r.keys)
	return cp
}

// Get returns the value of a field.
func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Null(), false
	}
	v, ok := r.fields[key]
	return v, ok
}

// Has reports whether the field exists (even if null).
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Lookup resolves a dotted path such as "device_type.manufacturer.name".
// A path segment that hits a null, a scalar or a missing field yields false.
func (r *Record) Lookup(path string) (Value, bool) {
	if path == "" {
		return Null(), false
	}
	cur := r
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := cur.Get(part)
		if !ok {
			return Null(), false
		}
		if i == len(parts)-1 {
			return v, true
		}
		cur = v.Record()
		if cur == nil {
			return Null(), false
		}
	}
	return Null(), false
}

// ID returns the record's id field as text.
func (r *Record) ID() (string, bool) {
	v, ok := r.Get("id")
	if !ok || !v.IsScalar() || v.IsNull() {
		return "", false
	}
	return v.Text(), true
}

// Str returns a string field, or "" when absent or not a string.
func (r *Record) Str(key string) string {
	v, _ := r.Get(key)
	s, _ := v.Str()
	return s
}

// Equal reports deep equality including field order.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i, k := range r.keys {
		if o.keys[i] != k {
			return false
		}
		if !r.fields[k].Equal(o.fields[k]) {
			return false
		}
	}
	return true
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber, KindString:
		return v.s == o.s
	case KindRecord:
		return v.rec.Equal(o.rec)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}
