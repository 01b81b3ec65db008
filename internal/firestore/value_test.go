package firestore

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 14, 9, 26, 53, 589000000, time.UTC)

	tests := []struct {
		name   string
		native any
	}{
		{"string", "tomatoes"},
		{"empty string", ""},
		{"integer", int64(42)},
		{"negative integer", int64(-7)},
		{"double", 3.5},
		{"whole double", 3.0},
		{"bool", true},
		{"timestamp", ts},
		{"null", nil},
		{"nested map", map[string]any{
			"county": "Nakuru",
			"lat":    -0.3031,
			"tags":   []any{"organic", int64(2)},
			"inner":  map[string]any{"ok": false},
		}},
		{"array", []any{"a", int64(1), 1.5, nil, []any{true}}},
		{"empty array", []any{}},
		{"empty map", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire, err := json.Marshal(Encode(tt.native))
			require.NoError(t, err)

			var fields Fields
			require.NoError(t, json.Unmarshal([]byte(`{"v":`+string(wire)+`}`), &fields))

			assert.Equal(t, tt.native, Decode(fields["v"]))
		})
	}
}

func TestEncodeKeepsNumericKinds(t *testing.T) {
	assert.Equal(t, Integer(3), Encode(3))
	assert.Equal(t, Integer(3), Encode(uint16(3)))
	assert.Equal(t, Double(3), Encode(3.0))
	assert.Equal(t, Double(float64(float32(1.25))), Encode(float32(1.25)))

	wire, err := json.Marshal(Encode(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"integerValue":"3"}`, string(wire))

	wire, err = json.Marshal(Encode(3.0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"doubleValue":3}`, string(wire))
}

func TestEncodeUnsupportedBecomesNull(t *testing.T) {
	assert.Equal(t, Null{}, Encode(make(chan int)))
	assert.Equal(t, Null{}, Encode(func() {}))
	assert.Equal(t, Null{}, Encode(math.NaN()))
	assert.Equal(t, Null{}, Encode(map[int]string{1: "x"}))
}

func TestEncodeUnsignedRange(t *testing.T) {
	type quantity uint64

	assert.Equal(t, Integer(math.MaxInt64), Encode(uint64(math.MaxInt64)))
	assert.Equal(t, Null{}, Encode(uint64(math.MaxUint64)))
	assert.Equal(t, Null{}, Encode(uint64(math.MaxInt64)+1))
	assert.Equal(t, Null{}, Encode(quantity(math.MaxUint64)))
	assert.Equal(t, Integer(7), Encode(quantity(7)))
}

func TestEncodeDereferencesPointers(t *testing.T) {
	name := "Wanjiru"
	assert.Equal(t, String("Wanjiru"), Encode(&name))

	var missing *string
	assert.Equal(t, Null{}, Encode(missing))
}

func TestEncodeFieldsDropsAbsent(t *testing.T) {
	var ward *string
	county := "Kiambu"

	fields := EncodeFields(map[string]any{
		"county":  &county,
		"ward":    ward,
		"address": nil,
		"count":   2,
	})

	assert.Len(t, fields, 3)
	assert.NotContains(t, fields, "ward")
	assert.Equal(t, String("Kiambu"), fields["county"])
	assert.Equal(t, Null{}, fields["address"])
	assert.Equal(t, Integer(2), fields["count"])
}

func TestWireFormat(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fields := Fields{
		"title": String("Maize"),
		"qty":   Integer(10),
		"ok":    Boolean(true),
		"at":    Timestamp(ts),
		"none":  Null{},
		"loc":   Map{"lat": Double(-1.5)},
		"tags":  Array{String("x")},
	}

	data, err := json.Marshal(fields)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": {"stringValue": "Maize"},
		"qty": {"integerValue": "10"},
		"ok": {"booleanValue": true},
		"at": {"timestampValue": "2024-01-02T03:04:05Z"},
		"none": {"nullValue": null},
		"loc": {"mapValue": {"fields": {"lat": {"doubleValue": -1.5}}}},
		"tags": {"arrayValue": {"values": [{"stringValue": "x"}]}}
	}`, string(data))
}

func TestDecodeTolerantShapes(t *testing.T) {
	var fields Fields
	err := json.Unmarshal([]byte(`{
		"bare": {"integerValue": 12},
		"emptyArray": {"arrayValue": {}},
		"emptyMap": {"mapValue": {}},
		"geo": {"geoPointValue": {"latitude": 1, "longitude": 2}},
		"garbage": "not-a-value",
		"badInt": {"integerValue": "abc"},
		"badTime": {"timestampValue": "yesterday"}
	}`), &fields)
	require.NoError(t, err)

	assert.Equal(t, Integer(12), fields["bare"])
	assert.Equal(t, []any{}, Decode(fields["emptyArray"]))
	assert.Equal(t, map[string]any{}, Decode(fields["emptyMap"]))
	assert.Equal(t, Null{}, fields["geo"])
	assert.Equal(t, Null{}, fields["garbage"])
	assert.Equal(t, Null{}, fields["badInt"])
	assert.Equal(t, Null{}, fields["badTime"])
	assert.Nil(t, Decode(nil))
}
