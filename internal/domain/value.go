package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

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
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a JSON-shaped structured value: null, bool, number, string,
// list or map. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	l    []Value
	m    map[string]Value
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func List(vs ...Value) Value { return Value{kind: KindList, l: vs} }
func Object(m Metadata) Value { return Value{kind: KindMap, m: m} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool) { return v.l, v.kind == KindList }
func (v Value) AsMap() (Metadata, bool) { return v.m, v.kind == KindMap }

// Str returns the string held by v, or "" for any other kind.
func (v Value) Str() string {
	return v.s
}

// Get returns the value stored under key, or null when v is not a map or
// the key is absent.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Null()
	}
	return v.m[key]
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return Metadata(v.m).Equal(o.m)
	}
	return false
}

// Any converts v to plain Go values (nil, bool, float64, string, []any,
// map[string]any).
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.l))
		for i, e := range v.l {
			out[i] = e.Any()
		}
		return out
	case KindMap:
		return Metadata(v.m).Any()
	}
	return nil
}

// FromAny converts decoded JSON or plain Go values into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Number(f), nil
	case []any:
		l := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			l[i] = ev
		}
		return List(l...), nil
	case []string:
		l := make([]Value, len(t))
		for i, e := range t {
			l[i] = String(e)
		}
		return List(l...), nil
	case map[string]any:
		m := make(Metadata, len(t))
		for k, e := range t {
			ev, err := FromAny(e)
			if err != nil {
				return Null(), err
			}
			m[k] = ev
		}
		return Object(m), nil
	case Metadata:
		return Object(t), nil
	}
	return Null(), fmt.Errorf("unsupported value type %T", x)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.l == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.l)
	case KindMap:
		return Metadata(v.m).MarshalJSON()
	}
	return nil, fmt.Errorf("unknown value kind %s", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Metadata is an opaque string-keyed map of structured values.
type Metadata map[string]Value

// Get walks nested maps along path and returns null when any step is missing.
func (m Metadata) Get(path ...string) Value {
	if len(path) == 0 {
		return Object(m)
	}
	v, ok := m[path[0]]
	if !ok {
		return Null()
	}
	for _, key := range path[1:] {
		v = v.Get(key)
	}
	return v
}

// Merge returns a copy of m with patch applied on top. Nested maps are
// merged recursively; any other value replaces the existing one.
func (m Metadata) Merge(patch Metadata) Metadata {
	out := make(Metadata, len(m)+len(patch))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range patch {
		if pm, ok := v.AsMap(); ok {
			if cur, ok := out[k].AsMap(); ok {
				out[k] = Object(cur.Merge(pm))
				continue
			}
		}
		out[k] = v
	}
	return out
}

func (m Metadata) Equal(o Metadata) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (m Metadata) Any() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

// Keys returns the map keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(m))
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	switch v.Kind() {
	case KindNull:
		*m = Metadata{}
		return nil
	case KindMap:
		*m = v.m
		return nil
	}
	return fmt.Errorf("metadata must be an object, got %s", v.Kind())
}

// Value implements driver.Valuer; metadata is persisted as JSON text.
func (m Metadata) Value() (driver.Value, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	switch t := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		if t == "" {
			*m = Metadata{}
			return nil
		}
		return m.UnmarshalJSON([]byte(t))
	case []byte:
		if len(t) == 0 {
			*m = Metadata{}
			return nil
		}
		return m.UnmarshalJSON(t)
	}
	return fmt.Errorf("cannot scan %T into Metadata", src)
}
