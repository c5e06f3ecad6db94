package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Record is an ordered mapping from field name to a JSON-safe scalar. Field
// order follows the backend's native column/property order where it provides
// one, otherwise insertion order of first occurrence.
//
// Records marshal to JSON objects with their field order preserved, which is
// why they are not plain maps.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set coerces value to a JSON-safe scalar and stores it under name. Setting
// an existing field overwrites its value but keeps its original position.
func (r *Record) Set(name string, value any) {
	if _, exists := r.values[name]; !exists {
		r.keys = append(r.keys, name)
	}
	r.values[name] = CoerceScalar(value)
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.keys)
}

// MarshalJSON renders the record as a JSON object with fields in order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal record key %q: %w", k, err)
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal record field %q: %w", k, err)
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a record from a JSON object, preserving the key
// order of the encoded form.
func (r *Record) UnmarshalJSON(data []byte) error {
	r.keys = nil
	r.values = make(map[string]any)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("unmarshal record: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("unmarshal record key: %w", err)
		}
		key := keyTok.(string)

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("unmarshal record field %q: %w", key, err)
		}
		if num, ok := value.(json.Number); ok {
			if f, err := num.Float64(); err == nil {
				value = f
			} else {
				value = num.String()
			}
		}
		r.Set(key, value)
	}

	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}

// CoerceScalar converts a value to a form that marshals to JSON without
// further transformation: temporal values become RFC 3339 strings, byte
// slices and fmt.Stringer implementations become strings, integer and float
// types pass through, everything else falls back to fmt.Sprint.
func CoerceScalar(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		return fmt.Sprint(v)
	}
}

// RecordFromPairs builds a record from alternating name/value arguments.
// It panics on an odd argument count; it exists for tests and small fixed
// records like error envelopes.
func RecordFromPairs(pairs ...any) *Record {
	if len(pairs)%2 != 0 {
		panic("RecordFromPairs: odd number of arguments")
	}
	rec := NewRecord()
	for i := 0; i < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1])
	}
	return rec
}
