// Package firestore is a small REST client for the document store used by
// the marketplace. It covers the typed value wire format, single-document
// reads and structured queries; nothing else of the store's API is needed
// by the assistant.
package firestore

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Value is one typed wire value. The set of implementations is closed:
// String, Integer, Double, Boolean, Timestamp, Null, Map and Array.
type Value interface {
	json.Marshaler
	isValue()
}

type (
	String    string
	Integer   int64
	Double    float64
	Boolean   bool
	Timestamp time.Time
	Null      struct{}
	Map       Fields
	Array     []Value
)

// Fields is a document's field map in wire form.
type Fields map[string]Value

func (String) isValue()    {}
func (Integer) isValue()   {}
func (Double) isValue()    {}
func (Boolean) isValue()   {}
func (Timestamp) isValue() {}
func (Null) isValue()      {}
func (Map) isValue()       {}
func (Array) isValue()     {}

func (v String) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"stringValue": string(v)})
}

// MarshalJSON writes integers as decimal strings, which is how the store
// keeps them distinct from doubles.
func (v Integer) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"integerValue": strconv.FormatInt(int64(v), 10)})
}

func (v Double) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]float64{"doubleValue": float64(v)})
}

func (v Boolean) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]bool{"booleanValue": bool(v)})
}

func (v Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"timestampValue": time.Time(v).UTC().Format(time.RFC3339Nano)})
}

func (Null) MarshalJSON() ([]byte, error) {
	return []byte(`{"nullValue":null}`), nil
}

func (v Map) MarshalJSON() ([]byte, error) {
	fields := Fields(v)
	if fields == nil {
		fields = Fields{}
	}
	return json.Marshal(map[string]any{"mapValue": map[string]Fields{"fields": fields}})
}

func (v Array) MarshalJSON() ([]byte, error) {
	values := []Value(v)
	if values == nil {
		values = []Value{}
	}
	return json.Marshal(map[string]any{"arrayValue": map[string][]Value{"values": values}})
}

// UnmarshalJSON decodes a wire field map. Values of unknown shape become Null.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Fields, len(raw))
	for k, v := range raw {
		out[k] = decodeWire(v)
	}
	*f = out
	return nil
}

// decodeWire is total: anything it does not recognise decodes to Null.
func decodeWire(data json.RawMessage) Value {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return Null{}
	}

	if raw, ok := tagged["stringValue"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return String(s)
		}
		return Null{}
	}
	if raw, ok := tagged["integerValue"]; ok {
		return decodeInteger(raw)
	}
	if raw, ok := tagged["doubleValue"]; ok {
		var d float64
		if json.Unmarshal(raw, &d) == nil {
			return Double(d)
		}
		return Null{}
	}
	if raw, ok := tagged["booleanValue"]; ok {
		var b bool
		if json.Unmarshal(raw, &b) == nil {
			return Boolean(b)
		}
		return Null{}
	}
	if raw, ok := tagged["timestampValue"]; ok {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return Null{}
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Null{}
		}
		return Timestamp(ts.UTC())
	}
	if _, ok := tagged["nullValue"]; ok {
		return Null{}
	}
	if raw, ok := tagged["mapValue"]; ok {
		var m struct {
			Fields Fields `json:"fields"`
		}
		if json.Unmarshal(raw, &m) != nil {
			return Null{}
		}
		if m.Fields == nil {
			m.Fields = Fields{}
		}
		return Map(m.Fields)
	}
	if raw, ok := tagged["arrayValue"]; ok {
		var a struct {
			Values []json.RawMessage `json:"values"`
		}
		if json.Unmarshal(raw, &a) != nil {
			return Null{}
		}
		out := make(Array, 0, len(a.Values))
		for _, item := range a.Values {
			out = append(out, decodeWire(item))
		}
		return out
	}
	return Null{}
}

// decodeInteger accepts both the canonical string form and a bare number.
func decodeInteger(raw json.RawMessage) Value {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Null{}
		}
		return Integer(n)
	}
	var n int64
	if json.Unmarshal(raw, &n) == nil {
		return Integer(n)
	}
	return Null{}
}

// Encode converts a native Go value into its wire form.
//
// Integer kinds become Integer and float kinds become Double, so 3 and 3.0
// keep their types across a round trip. time.Time becomes Timestamp. Maps
// with string keys and slices recurse. Pointers are dereferenced and nil
// becomes Null, as does anything unsupported (channels, funcs, NaN).
//
// Example:
//
//	firestore.Encode(map[string]any{"qty": 3, "price": 3.0})
//	// Map{"qty": Integer(3), "price": Double(3)}
func Encode(native any) Value {
	switch v := native.(type) {
	case nil:
		return Null{}
	case Value:
		return v
	case string:
		return String(v)
	case bool:
		return Boolean(v)
	case int:
		return Integer(v)
	case int8:
		return Integer(v)
	case int16:
		return Integer(v)
	case int32:
		return Integer(v)
	case int64:
		return Integer(v)
	case uint:
		return encodeUnsigned(uint64(v))
	case uint8:
		return Integer(v)
	case uint16:
		return Integer(v)
	case uint32:
		return Integer(v)
	case uint64:
		return encodeUnsigned(v)
	case float32:
		return encodeFloat(float64(v))
	case float64:
		return encodeFloat(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Integer(n)
		}
		if f, err := v.Float64(); err == nil {
			return encodeFloat(f)
		}
		return Null{}
	case time.Time:
		return Timestamp(v.UTC())
	case map[string]any:
		return Map(EncodeFields(v))
	case []any:
		out := make(Array, 0, len(v))
		for _, item := range v {
			out = append(out, Encode(item))
		}
		return out
	}
	return encodeReflect(reflect.ValueOf(native))
}

// encodeUnsigned maps values beyond the signed 64-bit range to Null rather
// than letting them wrap negative.
func encodeUnsigned(u uint64) Value {
	if u > math.MaxInt64 {
		return Null{}
	}
	return Integer(u)
}

func encodeFloat(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null{}
	}
	return Double(f)
}

// encodeReflect handles named types, pointers and typed maps/slices that the
// fast path in Encode does not match.
func encodeReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}
		}
		return Encode(rv.Elem().Interface())
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Boolean(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Integer(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return encodeUnsigned(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return encodeFloat(rv.Float())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Null{}
		}
		out := make(Fields, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			if isAbsent(iter.Value()) {
				continue
			}
			out[iter.Key().String()] = Encode(iter.Value().Interface())
		}
		return Map(out)
	case reflect.Slice, reflect.Array:
		out := make(Array, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, Encode(rv.Index(i).Interface()))
		}
		return out
	}
	return Null{}
}

// isAbsent reports whether a map entry holds a typed nil pointer, which
// stands for "field not set" and is dropped instead of written as null.
func isAbsent(rv reflect.Value) bool {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// EncodeFields encodes a whole object. Keys holding a typed nil pointer are
// omitted; an untyped nil is kept as an explicit Null.
func EncodeFields(native map[string]any) Fields {
	out := make(Fields, len(native))
	for k, v := range native {
		if v != nil && isAbsent(reflect.ValueOf(v)) {
			continue
		}
		out[k] = Encode(v)
	}
	return out
}

// Decode converts a wire value back to native Go: string, int64, float64,
// bool, time.Time, nil, map[string]any or []any.
func Decode(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Integer:
		return int64(val)
	case Double:
		return float64(val)
	case Boolean:
		return bool(val)
	case Timestamp:
		return time.Time(val)
	case Map:
		return DecodeFields(Fields(val))
	case Array:
		out := make([]any, 0, len(val))
		for _, item := range val {
			out = append(out, Decode(item))
		}
		return out
	}
	return nil
}

// DecodeFields decodes a whole document field map.
func DecodeFields(fields Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = Decode(v)
	}
	return out
}
