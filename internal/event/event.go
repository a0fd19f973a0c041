// Package event abstracts the columnar per-event input. Fields are addressed
// by their forest branch names and are either scalars or variable-length
// arrays.
package event

import (
	"encoding/json"
	"math"
)

// Event exposes the fields of one entry. Accessors never fail: absent or
// mistyped fields report ok=false (scalars) or nil (arrays).
type Event interface {
	Has(name string) bool
	Float(name string) (float64, bool)
	Int(name string) (int, bool)
	Bool(name string) (bool, bool)
	Floats(name string) []float64
	Ints(name string) []int
}

// Source is random access over a sequence of events.
type Source interface {
	// Len returns the number of entries.
	Len() int
	// Event loads entry i.
	Event(i int) (Event, error)
	// HasField reports whether the source schema carries name. Used to pick
	// the first available trigger among configured fallbacks.
	HasField(name string) bool
	Close() error
}

// Fields is a decoded event. It is the in-memory form shared by every Source
// implementation in this package.
type Fields map[string]any

// Has reports whether the field is present.
func (f Fields) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Float returns a scalar as float64.
func (f Fields) Float(name string) (float64, bool) {
	return toFloat(f[name])
}

// Int returns a scalar as int. Floating values are truncated.
func (f Fields) Int(name string) (int, bool) {
	v, ok := toFloat(f[name])
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return int(v), true
}

// Bool returns a scalar as bool; numeric values are true when non-zero.
func (f Fields) Bool(name string) (bool, bool) {
	switch v := f[name].(type) {
	case bool:
		return v, true
	default:
		x, ok := toFloat(v)
		return x != 0, ok
	}
}

// Floats returns an array field. Elements that are not numbers become NaN.
func (f Fields) Floats(name string) []float64 {
	switch v := f[name].(type) {
	case []float64:
		return v
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out
	case []int:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out
	case []int64:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out
	case []any:
		out := make([]float64, len(v))
		for i, x := range v {
			y, ok := toFloat(x)
			if !ok {
				y = math.NaN()
			}
			out[i] = y
		}
		return out
	}
	return nil
}

// Ints returns an array field as ints.
func (f Fields) Ints(name string) []int {
	switch v := f[name].(type) {
	case []int:
		return v
	case []int64:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out
	case []bool:
		out := make([]int, len(v))
		for i, x := range v {
			if x {
				out[i] = 1
			}
		}
		return out
	}
	fs := f.Floats(name)
	if fs == nil {
		return nil
	}
	out := make([]int, len(fs))
	for i, x := range fs {
		if !math.IsNaN(x) {
			out[i] = int(x)
		}
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case uint32:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// MinLen returns the shortest length among the given arrays. Loops over
// parallel columns use it so a short column truncates rather than panics.
func MinLen(cols ...int) int {
	if len(cols) == 0 {
		return 0
	}
	n := cols[0]
	for _, c := range cols[1:] {
		if c < n {
			n = c
		}
	}
	return n
}

// MemorySource serves events held in memory.
type MemorySource struct {
	events []Fields
	fields map[string]struct{}
}

// NewMemorySource returns a source over events. The schema is the union of
// all event keys.
func NewMemorySource(events ...Fields) *MemorySource {
	s := &MemorySource{events: events, fields: make(map[string]struct{})}
	for _, e := range events {
		for k := range e {
			s.fields[k] = struct{}{}
		}
	}
	return s
}

func (s *MemorySource) Len() int { return len(s.events) }

func (s *MemorySource) Event(i int) (Event, error) {
	if i < 0 || i >= len(s.events) {
		return nil, &RangeError{Index: i, Len: len(s.events)}
	}
	return s.events[i], nil
}

func (s *MemorySource) HasField(name string) bool {
	_, ok := s.fields[name]
	return ok
}

func (s *MemorySource) Close() error { return nil }
