package block

import (
	"github.com/pkg/errors"
)

// Params holds block parameter values as decoded from YAML or set in code.
// Numbers may be any Go numeric type; vectors are []float64 or []any.
type Params map[string]any

// Spec describes a block to be built from the registry.
type Spec struct {
	Type   string `yaml:"type"`
	Name   string `yaml:"name"`
	Params Params `yaml:"params"`
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func toFloats(v any) ([]float64, bool) {
	switch s := v.(type) {
	case []float64:
		return append([]float64(nil), s...), true
	case []int:
		out := make([]float64, len(s))
		for i, n := range s {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	}
	if f, ok := toFloat(v); ok {
		return []float64{f}, true
	}
	return nil, false
}

// reader pulls typed values out of Params and keeps the first error.
type reader struct {
	typ string
	p   Params
	err error
}

func newReader(typ string, p Params) *reader { return &reader{typ: typ, p: p} }

func (r *reader) fail(key, want string) {
	if r.err == nil {
		r.err = errors.Errorf("%s: param %q: expected %s, got %T", r.typ, key, want, r.p[key])
	}
}

func (r *reader) float(key string, def float64) float64 {
	v, ok := r.p[key]
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		r.fail(key, "number")
		return def
	}
	return f
}

func (r *reader) floats(key string, def []float64) []float64 {
	v, ok := r.p[key]
	if !ok {
		return def
	}
	fs, ok := toFloats(v)
	if !ok {
		r.fail(key, "number list")
		return def
	}
	return fs
}

// matrix accepts [][]float64 or a list of lists.
func (r *reader) matrix(key string) [][]float64 {
	v, ok := r.p[key]
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case [][]float64:
		return m
	case []any:
		rows := make([][]float64, len(m))
		for i, row := range m {
			fs, ok := toFloats(row)
			if !ok {
				r.fail(key, "matrix")
				return nil
			}
			rows[i] = fs
		}
		return rows
	}
	r.fail(key, "matrix")
	return nil
}

func (r *reader) str(key, def string) string {
	v, ok := r.p[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		r.fail(key, "string")
		return def
	}
	return s
}

func (r *reader) integer(key string, def int) int {
	f := r.float(key, float64(def))
	if f != float64(int(f)) {
		r.fail(key, "integer")
		return def
	}
	return int(f)
}

func (r *reader) clock(clocks map[string]*Clock) *Clock {
	name := r.str("clock", "")
	if name == "" {
		if r.err == nil {
			r.err = errors.Errorf("%s: missing clock", r.typ)
		}
		return nil
	}
	c, ok := clocks[name]
	if !ok && r.err == nil {
		r.err = errors.Errorf("%s: unknown clock %q", r.typ, name)
	}
	return c
}
