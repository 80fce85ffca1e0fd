package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v4"
)

// SourceType selects the adapter implementation for a source.
type SourceType string

const (
	TypeBTC        SourceType = "btc"
	TypeETH        SourceType = "eth"
	TypeERC20      SourceType = "erc20"
	TypeCompound   SourceType = "compound"
	TypeCosmosBank SourceType = "cosmos_bank"
	TypeSmartQuery SourceType = "cosmwasm_smart_query"
)

// SourceConfig is a resolved data source.
// Params holds one of *BlockInfoParams, *EVMParams, *BankParams or
// *SmartQueryParams. When Err is set the source is invalid and Params is nil.
type SourceConfig struct {
	Name    string
	Enabled bool
	Type    SourceType
	Params  any
	Err     error
}

// FieldError reports an invalid or missing field of a named source.
type FieldError struct {
	Source string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("source %q: field %q: %s", e.Source, e.Field, e.Reason)
}

// BlockInfoParams configures a plaintext balance source.
type BlockInfoParams struct {
	Addresses []string `yaml:"addresses"`
	Endpoint  string   `yaml:"endpoint,omitempty"`
}

// EVMParams configures native coin and token contract balance sources.
type EVMParams struct {
	Addresses   []string `yaml:"addresses"`
	Contract    string   `yaml:"contract,omitempty"`
	RPC         string   `yaml:"rpc,omitempty"`
	InfuraToken string   `yaml:"infura_token,omitempty"`
	Decimals    *int     `yaml:"decimals"`
}

// BankParams configures an account-balances-by-denomination source.
type BankParams struct {
	Addresses []string `yaml:"addresses"`
	Denoms    []string `yaml:"denoms"`
	RPC       string   `yaml:"rpc"`
}

// SmartQueryParams configures a contract state query source.
type SmartQueryParams struct {
	Contract string        `yaml:"contract"`
	RPC      string        `yaml:"rpc"`
	Objects  []QueryObject `yaml:"objects"`
}

// QueryObject pairs a query payload with its extraction rules.
type QueryObject struct {
	Query QueryPayload     `yaml:"query"`
	Keys  []ExtractionRule `yaml:"keys"`
}

// ExtractionRule selects one value from a query result.
type ExtractionRule struct {
	Key  string `yaml:"key"`
	Path string `yaml:"path"`
	Type string `yaml:"type"`
}

// QueryPayload is a JSON query message. It may be written as a JSON string
// or as a YAML mapping, which is encoded to JSON.
type QueryPayload string

// UnmarshalYAML handles both string and mapping forms.
func (q *QueryPayload) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*q = QueryPayload(s)
		return nil
	}

	var v any
	if err := value.Decode(&v); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("line %d: query is not representable as JSON: %w", value.Line, err)
	}
	*q = QueryPayload(data)
	return nil
}

func resolveSource(name string, raw RawSourceConfig) SourceConfig {
	src := SourceConfig{
		Name:    name,
		Enabled: raw.Enabled == nil || *raw.Enabled,
		Type:    SourceType(raw.Type),
	}

	fail := func(field, reason string) SourceConfig {
		src.Err = &FieldError{Source: name, Field: field, Reason: reason}
		return src
	}

	if name == "" {
		return fail("name", "must not be empty")
	}
	if raw.Type == "" {
		return fail("type", "required")
	}
	if raw.Config.Kind == 0 {
		return fail("config", "required")
	}
	if raw.Config.Kind != yaml.MappingNode {
		return fail("config", "must be a mapping")
	}

	v := validator{source: name}
	switch src.Type {
	case TypeBTC:
		var p BlockInfoParams
		if err := raw.Config.Decode(&p); err != nil {
			return fail("config", err.Error())
		}
		v.list("addresses", p.Addresses)
		src.Params = &p

	case TypeETH, TypeERC20, TypeCompound:
		var p EVMParams
		if err := raw.Config.Decode(&p); err != nil {
			return fail("config", err.Error())
		}
		v.list("addresses", p.Addresses)
		if src.Type != TypeETH {
			v.required("contract", p.Contract)
		}
		if p.RPC == "" && p.InfuraToken == "" {
			v.fail("rpc", "rpc or infura_token required")
		}
		switch {
		case p.Decimals == nil:
			v.fail("decimals", "required")
		case *p.Decimals < 0:
			v.fail("decimals", "must not be negative")
		}
		src.Params = &p

	case TypeCosmosBank:
		var p BankParams
		if err := raw.Config.Decode(&p); err != nil {
			return fail("config", err.Error())
		}
		v.list("addresses", p.Addresses)
		v.list("denoms", p.Denoms)
		v.required("rpc", p.RPC)
		src.Params = &p

	case TypeSmartQuery:
		var p SmartQueryParams
		if err := raw.Config.Decode(&p); err != nil {
			return fail("config", err.Error())
		}
		v.required("contract", p.Contract)
		v.required("rpc", p.RPC)
		if len(p.Objects) == 0 {
			v.fail("objects", "at least one object required")
		}
		for i, obj := range p.Objects {
			prefix := fmt.Sprintf("objects[%d]", i)
			v.required(prefix+".query", string(obj.Query))
			if len(obj.Keys) == 0 {
				v.fail(prefix+".keys", "at least one key required")
			}
			for j, rule := range obj.Keys {
				field := fmt.Sprintf("%s.keys[%d]", prefix, j)
				v.required(field+".key", rule.Key)
				v.required(field+".path", rule.Path)
				if rule.Type != "int" && rule.Type != "float" {
					v.fail(field+".type", fmt.Sprintf("must be int or float, got %q", rule.Type))
				}
			}
		}
		src.Params = &p

	default:
		return fail("type", fmt.Sprintf("unknown source type %q", raw.Type))
	}

	if v.err != nil {
		src.Params = nil
		src.Err = v.err
	}
	return src
}

// validator records the first field error of a source.
type validator struct {
	source string
	err    *FieldError
}

func (v *validator) fail(field, reason string) {
	if v.err == nil {
		v.err = &FieldError{Source: v.source, Field: field, Reason: reason}
	}
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.fail(field, "required")
	}
}

func (v *validator) list(field string, values []string) {
	if len(values) == 0 {
		v.fail(field, "at least one entry required")
		return
	}
	seen := make(map[string]bool, len(values))
	for i, value := range values {
		if strings.TrimSpace(value) == "" {
			v.fail(fmt.Sprintf("%s[%d]", field, i), "must not be empty")
			return
		}
		if seen[value] {
			v.fail(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("duplicate entry %q", value))
			return
		}
		seen[value] = true
	}
}
