// Package extract evaluates path expressions against JSON documents.
//
// The Engine interface is the only surface adapters depend on, so the
// expression language can be replaced without touching adapter code.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Engine evaluates an expression against a decoded JSON document.
type Engine interface {
	// Evaluate returns the first scalar produced by expr. The boolean is
	// false when the expression produces no result or only null.
	Evaluate(document any, expr string) (Scalar, bool, error)
}

// Validator is implemented by engines that can check an expression
// without a document.
type Validator interface {
	Validate(expr string) error
}

// Scalar is a single JSON scalar produced by an expression.
type Scalar struct {
	raw any
}

// NewScalar wraps a raw value. Supported types are int, int64, float64,
// *big.Int, string and bool.
func NewScalar(v any) Scalar {
	return Scalar{raw: v}
}

// Raw returns the underlying value.
func (s Scalar) Raw() any {
	return s.raw
}

func (s Scalar) String() string {
	return fmt.Sprint(s.raw)
}

// Int64 coerces the scalar to an integer. Numeric strings are accepted,
// fractional numbers are not.
func (s Scalar) Int64() (int64, error) {
	switch v := s.raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case *big.Int:
		if !v.IsInt64() {
			return 0, fmt.Errorf("value %s overflows int64", v)
		}
		return v.Int64(), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 10)
		if !ok {
			return 0, fmt.Errorf("string %q is not an integer", v)
		}
		return NewScalar(n).Int64()
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", s.raw)
	}
}

// Float64 coerces the scalar to a float.
func (s Scalar) Float64() (float64, error) {
	switch v := s.raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("string %q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value of type %T is not numeric", s.raw)
	}
}

// DecodeJSON decodes a document keeping integer precision: integers become
// int or *big.Int, other numbers float64.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode json: trailing data")
	}
	return normalize(doc)
}

func normalize(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		return normalizeNumber(v)
	case map[string]any:
		for k, item := range v {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			v[k] = n
		}
		return v, nil
	case []any:
		for i, item := range v {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			v[i] = n
		}
		return v, nil
	default:
		return v, nil
	}
}

func normalizeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil && i >= math.MinInt && i <= math.MaxInt {
			return int(i), nil
		}
		if b, ok := new(big.Int).SetString(s, 10); ok {
			return b, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return f, nil
}
