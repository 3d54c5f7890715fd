// pkg/model/value.go
package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ValueKind discriminates the closed set of cell value types.
// Uploaded rows are duck-typed at the source, but internally every cell
// is exactly one of: null, number, or string.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
)

// Value is a single cell of an uploaded row.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
}

// Null is the zero Value.
var Null = Value{}

// Number wraps a float64 as a Value.
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// String wraps a string as a Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// IsEmpty reports whether the value is null or an empty string.
// Empty cells are treated as "no data" throughout the pipeline.
func (v Value) IsEmpty() bool {
	return v.Kind == KindNull || (v.Kind == KindString && v.Str == "")
}

// AsString renders the value for display or text-column storage.
func (v Value) AsString() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// MarshalJSON encodes the value as a JSON scalar. Non-finite numbers are
// encoded as null so that NaN can never leak into stored payloads.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Num)
	case KindString:
		return json.Marshal(v.Str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar into the closed union. Booleans,
// arrays, and nested objects are kept as their raw JSON text.
func (v *Value) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return errors.New("empty JSON value")
	}

	if bytes.Equal(trimmed, []byte("null")) {
		*v = Null
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("failed to decode string value: %w", err)
		}
		*v = String(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		*v = Number(f)
		return nil
	}

	*v = String(string(trimmed))
	return nil
}

// Row is one record's key-value payload, keyed by source column name.
type Row map[string]Value

// Value implements driver.Valuer so rows can be written to JSONB columns.
func (r Row) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for reading rows back from JSONB columns.
func (r *Row) Scan(src interface{}) error {
	switch data := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(data, r)
	case string:
		return json.Unmarshal([]byte(data), r)
	default:
		return fmt.Errorf("cannot scan %T into Row", src)
	}
}
