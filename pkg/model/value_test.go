// pkg/model/value_test.go
package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueMarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null, "null"},
		{"number", Number(42.5), "42.5"},
		{"integer number", Number(7), "7"},
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"NaN becomes null", Number(math.NaN()), "null"},
		{"positive infinity becomes null", Number(math.Inf(1)), "null"},
		{"negative infinity becomes null", Number(math.Inf(-1)), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestValueUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"null", "null", Null},
		{"number", "3.25", Number(3.25)},
		{"string", `"abc"`, String("abc")},
		{"boolean kept as text", "true", String("true")},
		{"array kept as text", "[1,2]", String("[1,2]")},
		{"object kept as text", `{"a":1}`, String(`{"a":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, Null.IsEmpty())
	assert.True(t, String("").IsEmpty())
	assert.False(t, String(" ").IsEmpty())
	assert.False(t, Number(0).IsEmpty())
}

func TestRowJSONBRoundTrip(t *testing.T) {
	row := Row{
		"Supplier": String("Acme"),
		"Energy":   Number(1000),
		"Missing":  Null,
	}

	encoded, err := row.Value()
	require.NoError(t, err)

	var decoded Row
	require.NoError(t, decoded.Scan(encoded))

	assert.Equal(t, String("Acme"), decoded["Supplier"])
	assert.Equal(t, Number(1000), decoded["Energy"])
	assert.Equal(t, Null, decoded["Missing"])
}

func TestRowScanNil(t *testing.T) {
	row := Row{"a": Number(1)}
	require.NoError(t, row.Scan(nil))
}
