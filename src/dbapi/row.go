package dbapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Field is one named value inside a Row.
type Field struct {
	Name  string
	Value any
}

// Row is an ordered record: field order is preserved through JSON encode and
// decode so that serialized row sets hash identically before and after a
// round trip. Values are scalars (string, number, bool, nil), []byte for
// binary columns, nested Rows, or []any for arrays; numbers decoded from
// JSON are json.Number so their literals survive re-encoding, and byte
// values are tagged in the JSON so they decode back as bytes.
type Row struct {
	fields []Field
}

// NewRow returns a Row with the given fields, in order.
func NewRow(fields ...Field) Row {
	return Row{fields: fields}
}

// Set appends the field, or replaces its value in place if the name already
// exists.
func (r *Row) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value for name and whether it was present.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Fields returns the fields in order. The slice must not be mutated.
func (r Row) Fields() []Field { return r.fields }

// Len returns the number of fields.
func (r Row) Len() int { return len(r.fields) }

// MarshalJSON encodes the row as a JSON object with fields in insertion
// order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := marshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue encodes one field value. Byte slices are tagged as
// {"$bytes":"<base64>"} instead of a bare base64 string so UnmarshalJSON can
// restore them as bytes; a plain base64 string would come back as TEXT and
// silently rewrite BLOB columns on restore.
func marshalValue(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		enc, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		out := append([]byte(`{"$bytes":`), enc...)
		return append(out, '}'), nil
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalValue(e)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	default:
		return json.Marshal(v)
	}
}

// UnmarshalJSON decodes a JSON object preserving its key order and number
// literals.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	row, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = row
	return nil
}

// decodeObject reads object members up to and including the closing brace;
// the opening brace has already been consumed.
func decodeObject(dec *json.Decoder) (Row, error) {
	var row Row
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Row{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Row{}, fmt.Errorf("expected object key, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Row{}, fmt.Errorf("key %s: %w", key, err)
		}
		row.fields = append(row.fields, Field{Name: key, Value: val})
	}
	if _, err := dec.Token(); err != nil {
		return Row{}, err
	}
	return row, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			row, err := decodeObject(dec)
			if err != nil {
				return nil, err
			}
			if b, ok := byteTagValue(row); ok {
				return b, nil
			}
			return row, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %v", t)
		}
	default:
		// string, json.Number, bool, or nil
		return tok, nil
	}
}

// byteTagValue unwraps the {"$bytes":"<base64>"} form marshalValue emits.
func byteTagValue(row Row) ([]byte, bool) {
	if row.Len() != 1 || row.fields[0].Name != "$bytes" {
		return nil, false
	}
	s, ok := row.fields[0].Value.(string)
	if !ok {
		return nil, false
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
