// Package jsonutil converts between raw JSON and JSON-shaped Go values
// (map[string]any, []any, scalars) using fastjson.
package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/valyala/fastjson"
)

// ErrNotObject is returned by ParseObject when the input is valid JSON but
// not an object.
var ErrNotObject = errors.New("jsonutil: not a JSON object")

var (
	parserPool fastjson.ParserPool
	arenaPool  fastjson.ArenaPool
)

// ParseObject parses a JSON object. Integral numbers that fit in int64 are
// returned as int64, all other numbers as float64.
func ParseObject(data []byte) (map[string]any, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// Parse parses any JSON value.
func Parse(data []byte) (any, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("jsonutil: parse: %w", err)
	}
	return fromValue(v), nil
}

func fromValue(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		o, _ := v.Object()
		m := make(map[string]any, o.Len())
		o.Visit(func(k []byte, item *fastjson.Value) {
			m[string(k)] = fromValue(item)
		})
		return m
	case fastjson.TypeArray:
		items, _ := v.Array()
		list := make([]any, len(items))
		for i, item := range items {
			list[i] = fromValue(item)
		}
		return list
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

// ToJSONString serializes v as compact JSON with object keys sorted. It
// never fails: values JSON cannot represent (NaN, channels, structs, ...)
// are rendered as JSON strings.
func ToJSONString(v any) string {
	a := arenaPool.Get()
	s := string(toValue(a, v).MarshalTo(nil))
	a.Reset()
	arenaPool.Put(a)
	return s
}

func toValue(a *fastjson.Arena, v any) *fastjson.Value {
	switch t := v.(type) {
	case nil:
		return a.NewNull()
	case string:
		return a.NewString(t)
	case bool:
		if t {
			return a.NewTrue()
		}
		return a.NewFalse()
	case int:
		return a.NewNumberInt(t)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return a.NewNumberString(fmt.Sprint(t))
	case float32:
		return floatValue(a, float64(t), 32)
	case float64:
		return floatValue(a, t, 64)
	case json.Number:
		return a.NewNumberString(t.String())
	case time.Time:
		return a.NewString(t.Format(time.RFC3339Nano))
	case []any:
		arr := a.NewArray()
		for i, item := range t {
			arr.SetArrayItem(i, toValue(a, item))
		}
		return arr
	case map[string]any:
		obj := a.NewObject()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			obj.Set(k, toValue(a, t[k]))
		}
		return obj
	case fmt.Stringer:
		return a.NewString(t.String())
	default:
		return a.NewString(fmt.Sprint(t))
	}
}

func floatValue(a *fastjson.Arena, f float64, bits int) *fastjson.Value {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return a.NewString(s)
	}
	return a.NewNumberString(s)
}
