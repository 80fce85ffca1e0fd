package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/neox5/chainbox/internal/extract"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/cosmos"
)

// Rule extracts one value from a query result into {name}_{Key}.
type Rule struct {
	Key  string
	Path string
	Kind metric.Kind
}

// QueryDefinition is a contract query payload and the values read from its
// result.
type QueryDefinition struct {
	Payload string
	Rules   []Rule
}

// MergeQueries groups definitions with identical payloads, keeping the
// order in which payloads and rules first appear.
func MergeQueries(defs []QueryDefinition) []QueryDefinition {
	index := make(map[string]int, len(defs))
	var out []QueryDefinition
	for _, d := range defs {
		i, exists := index[d.Payload]
		if !exists {
			index[d.Payload] = len(out)
			out = append(out, QueryDefinition{Payload: d.Payload})
			i = len(out) - 1
		}
		out[i].Rules = append(out[i].Rules, d.Rules...)
	}
	return out
}

// SmartQuery runs contract state queries and extracts values from their
// JSON results. Rules that fail leave their key unchanged; the other rules
// are still applied and Refresh reports all failures.
type SmartQuery struct {
	base
	client   ABCIQuerier
	engine   extract.Engine
	contract string
	queries  []QueryDefinition
	keyFor   map[string]string // rule key -> metric key
}

// NewSmartQuery creates a contract query adapter and registers {name}_{key}
// for every rule.
func NewSmartQuery(name string, store *metric.Store, client ABCIQuerier, engine extract.Engine, contract string, queries []QueryDefinition) (*SmartQuery, error) {
	if contract == "" {
		return nil, fmt.Errorf("contract required")
	}
	queries = MergeQueries(queries)
	if len(queries) == 0 {
		return nil, fmt.Errorf("at least one query required")
	}

	validator, _ := engine.(extract.Validator)

	a := &SmartQuery{
		base:     base{name: name, store: store},
		client:   client,
		engine:   engine,
		contract: contract,
		queries:  queries,
		keyFor:   make(map[string]string),
	}

	var specs []metric.Spec
	for _, q := range queries {
		for _, r := range q.Rules {
			if validator != nil {
				if err := validator.Validate(r.Path); err != nil {
					return nil, fmt.Errorf("key %q: %w", r.Key, err)
				}
			}
			key := metric.Key(name, r.Key)
			a.keyFor[r.Key] = key
			specs = append(specs, metric.Spec{Key: key, Kind: r.Kind})
		}
	}
	if err := a.register(specs); err != nil {
		return nil, err
	}
	return a, nil
}

// Refresh runs every query and applies its rules.
func (a *SmartQuery) Refresh(ctx context.Context) error {
	var errs []error

	for _, q := range a.queries {
		doc, err := a.query(ctx, q.Payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("query %s: %w", q.Payload, err))
			continue
		}

		for _, r := range q.Rules {
			v, err := a.extract(doc, r)
			if err != nil {
				errs = append(errs, fmt.Errorf("key %s: %w", r.Key, err))
				continue
			}
			if err := a.store.Set(a.keyFor[r.Key], v); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (a *SmartQuery) query(ctx context.Context, payload string) (any, error) {
	req := cosmos.SmartContractStateRequest{
		Address:   a.contract,
		QueryData: []byte(payload),
	}

	value, err := a.client.Query(ctx, cosmos.SmartContractStatePath, req.Marshal())
	if err != nil {
		return nil, err
	}

	var resp cosmos.SmartContractStateResponse
	if err := resp.Unmarshal(value); err != nil {
		return nil, fmt.Errorf("decode smart contract state response: %w", err)
	}

	return extract.DecodeJSON(resp.Data)
}

func (a *SmartQuery) extract(doc any, r Rule) (metric.Value, error) {
	s, ok, err := a.engine.Evaluate(doc, r.Path)
	if err != nil {
		return metric.Value{}, err
	}
	if !ok {
		return metric.Value{}, fmt.Errorf("%w: %s", ErrNoResult, r.Path)
	}

	switch r.Kind {
	case metric.KindFloat:
		f, err := s.Float64()
		if err != nil {
			return metric.Value{}, err
		}
		return metric.Float(f), nil
	default:
		n, err := s.Int64()
		if err != nil {
			return metric.Value{}, err
		}
		return metric.Int(n), nil
	}
}
