package extract

import (
	"fmt"

	"github.com/itchyny/gojq"
)

// JQ is an Engine backed by gojq. Expressions are compiled on every call,
// so a JQ value carries no state and is safe for concurrent use.
type JQ struct{}

// NewJQ creates a jq expression engine.
func NewJQ() JQ {
	return JQ{}
}

// Validate parses and compiles expr.
func (JQ) Validate(expr string) error {
	_, err := compile(expr)
	return err
}

// Evaluate runs expr against document and returns its first non-null result.
func (JQ) Evaluate(document any, expr string) (Scalar, bool, error) {
	code, err := compile(expr)
	if err != nil {
		return Scalar{}, false, err
	}

	iter := code.Run(document)
	for {
		v, ok := iter.Next()
		if !ok {
			return Scalar{}, false, nil
		}

		switch v := v.(type) {
		case error:
			return Scalar{}, false, fmt.Errorf("evaluate %q: %w", expr, v)
		case nil:
			continue
		case map[string]any, []any:
			return Scalar{}, false, fmt.Errorf("evaluate %q: result is %T, not a scalar", expr, v)
		default:
			return NewScalar(v), true, nil
		}
	}
}

func compile(expr string) (*gojq.Code, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", expr, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	return code, nil
}
