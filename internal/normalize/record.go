// Package normalize turns raw backend payloads into render-safe domain values.
// Absent, null, non-numeric, non-finite and wrong-typed fields become their zero
// value instead of failing the record, so one bad field never hides the others.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Record is one decoded JSON object.
type Record map[string]any

// DecodeObject decodes a JSON object. A valid payload that is not an object yields
// an empty Record; only unparseable JSON is an error.
func DecodeObject(body []byte) (Record, error) {
	v, err := decode(body)
	if err != nil {
		return nil, err
	}
	return asRecord(v), nil
}

// DecodeArray decodes a JSON array of objects. Elements that are not objects become
// empty Records so the element count is preserved. A non-array payload yields nil.
func DecodeArray(body []byte) ([]Record, error) {
	v, err := decode(body)
	if err != nil {
		return nil, err
	}
	return asRecords(v), nil
}

func decode(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("normalize: invalid JSON payload: %w", err)
	}
	// the body must hold exactly one value
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("normalize: invalid JSON payload: trailing data after value")
	}
	return v, nil
}

func asRecord(v any) Record {
	if m, ok := v.(map[string]any); ok {
		return Record(m)
	}
	return Record{}
}

func asRecords(v any) []Record {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		out = append(out, asRecord(item))
	}
	return out
}

// Float returns the field as a finite number, or 0.
func (r Record) Float(key string) float64 {
	return toFloat(r[key])
}

// Int returns the field rounded to the nearest integer, or 0.
// Values beyond the int range saturate at math.MaxInt or math.MinInt.
func (r Record) Int(key string) int {
	f := math.Round(r.Float(key))
	switch {
	case f >= float64(math.MaxInt):
		return math.MaxInt
	case f <= float64(math.MinInt):
		return math.MinInt
	}
	return int(f)
}

// Count returns the field as a non-negative integer.
func (r Record) Count(key string) int {
	n := r.Int(key)
	if n < 0 {
		return 0
	}
	return n
}

// NonNegative returns the field as a non-negative number.
func (r Record) NonNegative(key string) float64 {
	f := r.Float(key)
	if f < 0 {
		return 0
	}
	return f
}

// Percent returns the field clamped to [0, 100].
func (r Record) Percent(key string) float64 {
	return math.Min(100, r.NonNegative(key))
}

// String returns string fields as-is and formats numbers; everything else is "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Strings returns the string elements of an array field, skipping anything else.
func (r Record) Strings(key string) []string {
	items, ok := r[key].([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Records returns an array field as Records.
func (r Record) Records(key string) []Record {
	out := asRecords(r[key])
	if out == nil {
		return []Record{}
	}
	return out
}

// Object returns a nested object field, or an empty Record.
func (r Record) Object(key string) Record {
	return asRecord(r[key])
}

// IntMap returns an object field whose values are counts.
func (r Record) IntMap(key string) map[string]int {
	obj := r.Object(key)
	out := make(map[string]int, len(obj))
	for k := range obj {
		out[k] = obj.Count(k)
	}
	return out
}

func toFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
