package metric

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind defines the numeric type of a gauge.
type Kind string

const (
	KindInt   Kind = "int"
	KindFloat Kind = "float"
)

// ParseKind converts a configuration value type into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindInt, KindFloat:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown value type %q (must be int or float)", s)
	}
}

// Value is a tagged gauge reading.
type Value struct {
	kind Kind
	i    int64
	f    float64
}

// Int creates an integer gauge value.
func Int(v int64) Value {
	return Value{kind: KindInt, i: v}
}

// Float creates a floating point gauge value.
func Float(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

// Zero returns the initial value for a kind.
func Zero(k Kind) Value {
	if k == KindFloat {
		return Float(0)
	}
	return Int(0)
}

// Kind returns the value's tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Int64 returns the integer payload. Only meaningful for KindInt.
func (v Value) Int64() int64 {
	return v.i
}

// Float64 returns the value as float64 regardless of kind.
func (v Value) Float64() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

func (v Value) String() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.i, 10)
	}
	return strconv.FormatFloat(v.f, 'g', -1, 64)
}

// Key builds a metric key from an adapter name and parameter parts.
// Characters that are not valid in exposition metric names become '_'.
func Key(name string, parts ...string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, p := range parts {
		b.WriteByte('_')
		b.WriteString(p)
	}
	return sanitize(b.String())
}

func sanitize(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == ':':
		case c >= '0' && c <= '9' && i > 0:
		default:
			out[i] = '_'
		}
	}
	return string(out)
}
