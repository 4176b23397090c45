// Package flatten reduces nested NetBox records to flat rows of display
// strings suitable for tables and columnar export.
//
// Reduction rules:
//
//  1. Scalars render unchanged: numbers keep their literal, booleans render
//     as "true"/"false", null renders as NotAvailable.
//  2. A nested record renders as its first present field among name,
//     display, label and id; otherwise NotAvailable.
//  3. A list renders as the newline-joined rule-2 (or rule-1 for scalar
//     items) reductions of its items in order; an empty list renders as
//     NotAvailable.
//  4. Long values are truncated for tables only (Row.Truncate); exports use
//     the untruncated row.
package flatten

import (
	"bytes"
	"strings"

	gojson "github.com/goccy/go-json"

	"github.com/Sternrassler/netbox-inventory/pkg/record"
)

// Display tokens.
const (
	NotAvailable = "N/A"
	TrueToken    = "true"
	FalseToken   = "false"
	Ellipsis     = "..."
)

// preferredFields is the rule-2 preference order for nested records.
var preferredFields = []string{"name", "display", "label", "id"}

// Reduce applies rules 1-3 to a single value.
func Reduce(v record.Value) string {
	switch v.Kind() {
	case record.KindNull:
		return NotAvailable
	case record.KindBool:
		b, _ := v.Bool()
		if b {
			return TrueToken
		}
		return FalseToken
	case record.KindNumber, record.KindString:
		return v.Text()
	case record.KindRecord:
		return reduceRecord(v.Record())
	case record.KindList:
		items := v.List()
		if len(items) == 0 {
			return NotAvailable
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = Reduce(item)
		}
		return strings.Join(parts, "\n")
	}
	return NotAvailable
}

func reduceRecord(r *record.Record) string {
	for _, field := range preferredFields {
		v, ok := r.Get(field)
		if !ok || v.IsNull() {
			continue
		}
		return Reduce(v)
	}
	return NotAvailable
}

// Cell is one column of a Row.
type Cell struct {
	Column string
	Value  string
}

// Row is an ordered column → display string mapping derived from one record.
type Row struct {
	cells []Cell
}

// Columns returns the column names in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r.cells))
	for i, c := range r.cells {
		cols[i] = c.Column
	}
	return cols
}

// Values returns the cell values in column order.
func (r Row) Values() []string {
	vals := make([]string, len(r.cells))
	for i, c := range r.cells {
		vals[i] = c.Value
	}
	return vals
}

// Cells returns a copy of the cells.
func (r Row) Cells() []Cell {
	cp := make([]Cell, len(r.cells))
	copy(cp, r.cells)
	return cp
}

// Get returns the value of a column.
func (r Row) Get(column string) (string, bool) {
	for _, c := range r.cells {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.cells) }

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := gojson.Marshal(c.Column)
		if err != nil {
			return nil, err
		}
		val, err := gojson.Marshal(c.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Flatten reduces one record to a row. Columns may be dotted paths into
// nested records; a field whose own name contains a dot wins over the path.
// A nil columns slice uses the record's own field order. Missing columns
// render as NotAvailable. The record is not modified.
func Flatten(rec *record.Record, columns []string) Row {
	if columns == nil {
		columns = rec.Keys()
	}
	cells := make([]Cell, len(columns))
	for i, col := range columns {
		value := NotAvailable
		if v, ok := column(rec, col); ok {
			value = Reduce(v)
		}
		cells[i] = Cell{Column: col, Value: value}
	}
	return Row{cells: cells}
}

func column(rec *record.Record, col string) (record.Value, bool) {
	if v, ok := rec.Get(col); ok {
		return v, true
	}
	return rec.Lookup(col)
}

// Columns returns the union of field names across the batch, in the order
// each name is first seen.
func Columns(recs []*record.Record) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, rec := range recs {
		for _, k := range rec.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			cols = append(cols, k)
		}
	}
	return cols
}

// Batch flattens a batch so that every row has the same column set. With nil
// columns the set is computed over the whole batch before any row is built.
func Batch(recs []*record.Record, columns []string) ([]string, []Row) {
	if columns == nil {
		columns = Columns(recs)
	}
	if columns == nil {
		columns = []string{}
	}
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		rows[i] = Flatten(rec, columns)
	}
	return columns, rows
}
