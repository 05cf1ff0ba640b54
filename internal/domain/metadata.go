package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValueKind tags the type held by a metadata Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
	KindMap
)

// Value is one entry of a message's metadata: a string, a number, a boolean
// or a nested Metadata map. Anything else (arrays, null) is rejected at
// decode time.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	m    *Metadata
}

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func MapValue(m *Metadata) Value  { return Value{kind: KindMap, m: m} }

// Kind returns the tag of the value.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) String() string  { return v.str }
func (v Value) Number() float64 { return v.num }
func (v Value) Bool() bool      { return v.b }
func (v Value) Map() *Metadata  { return v.m }

// MarshalJSON encodes the value according to its kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	}
	return nil, fmt.Errorf("metadata: unknown value kind %d", v.kind)
}

// UnmarshalJSON decodes a single tagged value.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// Metadata is an open-ended, ordered map of message metadata. Keys keep
// their insertion order through JSON round-trips so the wire and storage
// representations stay stable.
type Metadata struct {
	keys   []string
	values map[string]Value
}

// NewMetadata returns an empty metadata map.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]Value)}
}

// Set stores a value under key, appending the key on first insert.
func (m *Metadata) Set(key string, v Value) *Metadata {
	if m.values == nil {
		m.values = make(map[string]Value)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (Value, bool) {
	if m == nil || m.values == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	decoded, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// decodeObject consumes one JSON object from dec, keeping key order.
func decodeObject(dec *json.Decoder) (*Metadata, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("metadata: expected object, got %v", tok)
	}

	return decodeObjectRest(dec)
}

// decodeObjectRest reads the entries of an object whose opening brace has
// already been consumed.
func decodeObjectRest(dec *json.Decoder) (*Metadata, error) {
	m := NewMetadata()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("metadata: expected object key, got %v", keyTok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
	}
	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeValue consumes one JSON value from dec and maps it onto the tagged
// union. Nested objects recurse into decodeObject.
func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	switch t := tok.(type) {
	case string:
		return StringValue(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("metadata: invalid number %q: %w", t, err)
		}
		return NumberValue(f), nil
	case bool:
		return BoolValue(t), nil
	case json.Delim:
		if t != '{' {
			return Value{}, fmt.Errorf("metadata: unsupported value delimiter %q", t)
		}
		nested, err := decodeObjectRest(dec)
		if err != nil {
			return Value{}, err
		}
		return MapValue(nested), nil
	default:
		return Value{}, fmt.Errorf("metadata: unsupported value %v", tok)
	}
}
