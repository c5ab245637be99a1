package jsonutil

import (
	"math"
	"runtime/debug"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObject(t *testing.T) {
	m, err := ParseObject([]byte(`{"a":1,"b":1.5,"c":"s","d":[true,false,null],"e":{"f":-3},"g":1e3}`))
	require.NoError(t, err)

	assert.Equal(t, int64(1), m["a"])
	assert.Equal(t, 1.5, m["b"])
	assert.Equal(t, "s", m["c"])
	assert.Equal(t, []any{true, false, nil}, m["d"])
	assert.Equal(t, map[string]any{"f": int64(-3)}, m["e"])
	assert.Equal(t, 1000.0, m["g"])
}

func TestParseObjectErrors(t *testing.T) {
	_, err := ParseObject([]byte(`[1,2]`))
	require.ErrorIs(t, err, ErrNotObject)

	_, err = ParseObject([]byte(`{"a":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jsonutil: parse")
}

func TestParseCopiesStrings(t *testing.T) {
	data := []byte(`{"k":"value"}`)
	m, err := ParseObject(data)
	require.NoError(t, err)
	copy(data, "XXXXXXXXXXXXX")
	assert.Equal(t, "value", m["k"])
}

func TestToJSONString(t *testing.T) {
	ts := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"null", nil, "null"},
		{"string", "a\"b", `"a\"b"`},
		{"bool", true, "true"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 1.25, "1.25"},
		{"nan", math.NaN(), `"NaN"`},
		{"time", ts, `"2026-02-28T12:00:00Z"`},
		{"list", []any{1, "a", nil}, `[1,"a",null]`},
		{"empty list", []any{}, `[]`},
		{"sorted keys", map[string]any{"b": 2, "a": map[string]any{"z": 1, "y": []any{}}}, `{"a":{"y":[],"z":1},"b":2}`},
		{"unsupported", struct{ X int }{1}, `"{1}"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToJSONString(tt.in))
		})
	}
}

func TestToJSONStringRoundTrip(t *testing.T) {
	in := map[string]any{"a": int64(1), "b": []any{"x", 2.5}, "c": map[string]any{"d": nil}}
	out, err := ParseObject([]byte(ToJSONString(in)))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestToJSONStringResetsPooledArena(t *testing.T) {
	defer debug.SetGCPercent(debug.SetGCPercent(-1))

	for i := 0; i < 100; i++ {
		ToJSONString(map[string]any{"a": []any{1, "b", map[string]any{"c": nil}}})
	}

	// A reset arena hands out its first slot again.
	a := arenaPool.Get()
	first := a.NewObject()
	a.Reset()
	again := a.NewObject()
	a.Reset()
	arenaPool.Put(a)
	assert.Same(t, first, again)
}
