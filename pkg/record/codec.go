package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	gojson "github.com/goccy/go-json"
)

// ErrNotRecord is returned by DecodeRecord when the body is not a JSON object.
var ErrNotRecord = errors.New("json value is not an object")

// Decode parses a JSON document preserving object key order. Numbers keep
// their literal text. Trailing data after the first value is an error.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Null(), err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Null(), fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

// DecodeRecord parses a JSON object.
func DecodeRecord(data []byte) (*Record, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	r := v.Record()
	if r == nil {
		return nil, fmt.Errorf("%w: got %s", ErrNotRecord, v.Kind())
	}
	return r, nil
}

// MustDecodeRecord is DecodeRecord for fixtures; it panics on malformed input.
func MustDecodeRecord(data string) *Record {
	r, err := DecodeRecord([]byte(data))
	if err != nil {
		panic(fmt.Sprintf("record: %v", err))
	}
	return r
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}

	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Number(t.String()), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '{':
			r := New()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), fmt.Errorf("object key is %T, not string", keyTok)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				r.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Object(r), nil
		case '[':
			var items []Value
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, v)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return Value{kind: KindList, list: items}, nil
		}
	}
	return Null(), fmt.Errorf("unexpected json token %v", tok)
}

// MarshalJSON encodes the record with fields in their stored order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object preserving field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// MarshalJSON encodes the value.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	if r == nil {
		buf.WriteString("null")
		return nil
	}
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := gojson.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := r.fields[k].encode(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.s)
	case KindString:
		s, err := gojson.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(s)
	case KindRecord:
		return v.rec.encode(buf)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}
