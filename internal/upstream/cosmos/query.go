// Package cosmos encodes and decodes the Cosmos SDK gRPC query messages
// used over ABCI. Only the fields read or written by chainbox are modelled;
// unknown fields are skipped on decode.
package cosmos

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ABCI query paths.
const (
	AllBalancesPath        = "/cosmos.bank.v1beta1.Query/AllBalances"
	SmartContractStatePath = "/cosmwasm.wasm.v1.Query/SmartContractState"
)

// DefaultPageLimit is the page size requested for balance queries.
const DefaultPageLimit = 1000

// Coin is a denomination and an integer amount encoded as a decimal string.
type Coin struct {
	Denom  string
	Amount string
}

// PageRequest mirrors cosmos.base.query.v1beta1.PageRequest.
type PageRequest struct {
	Key        []byte
	Offset     uint64
	Limit      uint64
	CountTotal bool
	Reverse    bool
}

func (p PageRequest) marshal() []byte {
	var b []byte
	if len(p.Key) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Key)
	}
	b = appendUint(b, 2, p.Offset)
	b = appendUint(b, 3, p.Limit)
	b = appendBool(b, 4, p.CountTotal)
	b = appendBool(b, 5, p.Reverse)
	return b
}

// AllBalancesRequest mirrors cosmos.bank.v1beta1.QueryAllBalancesRequest.
type AllBalancesRequest struct {
	Address      string
	Pagination   *PageRequest
	ResolveDenom bool
}

// Marshal encodes the request in protobuf wire format.
func (r AllBalancesRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.Address)
	if r.Pagination != nil {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.Pagination.marshal())
	}
	b = appendBool(b, 3, r.ResolveDenom)
	return b
}

// AllBalancesResponse mirrors cosmos.bank.v1beta1.QueryAllBalancesResponse.
// Pagination is not decoded.
type AllBalancesResponse struct {
	Balances []Coin
}

// Unmarshal decodes a protobuf encoded response.
func (r *AllBalancesResponse) Unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 || typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		msg, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		var c Coin
		if err := c.unmarshal(msg); err != nil {
			return 0, fmt.Errorf("balance %d: %w", len(r.Balances), err)
		}
		r.Balances = append(r.Balances, c)
		return n, nil
	})
}

func (c *Coin) unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ != protowire.BytesType || (num != 1 && num != 2) {
			return skip(num, typ, b)
		}
		s, n := protowire.ConsumeString(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		if num == 1 {
			c.Denom = s
		} else {
			c.Amount = s
		}
		return n, nil
	})
}

// Marshal encodes a coin. Used to build fixtures.
func (c Coin) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	b = appendString(b, 2, c.Amount)
	return b
}

// Marshal encodes the response. Used to build fixtures.
func (r AllBalancesResponse) Marshal() []byte {
	var b []byte
	for _, c := range r.Balances {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, c.Marshal())
	}
	return b
}

// SmartContractStateRequest mirrors cosmwasm.wasm.v1.QuerySmartContractStateRequest.
type SmartContractStateRequest struct {
	Address   string
	QueryData []byte
}

// Marshal encodes the request in protobuf wire format.
func (r SmartContractStateRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.Address)
	if len(r.QueryData) > 0 {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, r.QueryData)
	}
	return b
}

// SmartContractStateResponse mirrors cosmwasm.wasm.v1.QuerySmartContractStateResponse.
type SmartContractStateResponse struct {
	Data []byte
}

// Unmarshal decodes a protobuf encoded response.
func (r *SmartContractStateResponse) Unmarshal(data []byte) error {
	return walk(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != 1 || typ != protowire.BytesType {
			return skip(num, typ, b)
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		r.Data = append([]byte(nil), v...)
		return n, nil
	})
}

// Marshal encodes the response. Used to build fixtures.
func (r SmartContractStateResponse) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	return protowire.AppendBytes(b, r.Data)
}

// walk iterates over the fields of a message. fn consumes the field value
// and returns the number of bytes read.
func walk(data []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]

		m, err := fn(num, typ, data)
		if err != nil {
			return err
		}
		data = data[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}
