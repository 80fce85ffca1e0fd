package adapter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/evm"
)

// DecimalsOffset is subtracted from the configured token decimals before
// scaling. Exposed balances therefore keep two fixed decimal places: a
// gauge value of 12345 for a token means 123.45 units.
const DecimalsOffset = 2

// EVMOptions configures an EVMBalance adapter.
type EVMOptions struct {
	Addresses []string
	// Contract is the token contract; empty for native balances.
	Contract string
	// Method is the contract balance method, e.g. evm.MethodBalanceOf.
	Method string
	// Decimals is the token precision as configured.
	Decimals int
}

// EVMBalance reads native or token balances and exposes them scaled by
// 10^(Decimals-DecimalsOffset). A refresh updates either all addresses or
// none.
type EVMBalance struct {
	base
	client    EVMReader
	addresses []string
	contract  string
	method    string
	divisor   *big.Int
}

// NewEVMBalance creates an EVM balance adapter and registers
// {name}_balance_{address} for every address.
func NewEVMBalance(name string, store *metric.Store, client EVMReader, opts EVMOptions) (*EVMBalance, error) {
	if len(opts.Addresses) == 0 {
		return nil, fmt.Errorf("at least one address required")
	}
	if opts.Decimals < DecimalsOffset {
		return nil, fmt.Errorf("decimals must be at least %d, got %d", DecimalsOffset, opts.Decimals)
	}
	for _, addr := range opts.Addresses {
		if err := evm.ValidateAddress(addr); err != nil {
			return nil, err
		}
	}
	if opts.Contract != "" {
		if err := evm.ValidateAddress(opts.Contract); err != nil {
			return nil, fmt.Errorf("contract: %w", err)
		}
		if opts.Method == "" {
			opts.Method = evm.MethodBalanceOf
		}
	}

	exp := big.NewInt(int64(opts.Decimals - DecimalsOffset))
	a := &EVMBalance{
		base:      base{name: name, store: store},
		client:    client,
		addresses: append([]string(nil), opts.Addresses...),
		contract:  opts.Contract,
		method:    opts.Method,
		divisor:   new(big.Int).Exp(big.NewInt(10), exp, nil),
	}

	specs := make([]metric.Spec, len(opts.Addresses))
	for i, addr := range opts.Addresses {
		specs[i] = metric.Spec{Key: metric.Key(name, "balance", addr), Kind: metric.KindInt}
	}
	if err := a.register(specs); err != nil {
		return nil, err
	}
	return a, nil
}

// Refresh queries every address before writing any key.
func (a *EVMBalance) Refresh(ctx context.Context) error {
	updates := make([]update, 0, len(a.addresses))

	for i, addr := range a.addresses {
		raw, err := a.balance(ctx, addr)
		if err != nil {
			return fmt.Errorf("address %s: %w", addr, err)
		}

		scaled, err := toInt64(new(big.Int).Quo(raw, a.divisor))
		if err != nil {
			return fmt.Errorf("address %s: %w", addr, err)
		}

		updates = append(updates, update{key: a.keys[i], value: metric.Int(scaled)})
	}

	return a.commit(updates)
}

func (a *EVMBalance) balance(ctx context.Context, addr string) (*big.Int, error) {
	if a.contract == "" {
		return a.client.NativeBalance(ctx, addr)
	}
	return a.client.TokenBalance(ctx, a.contract, a.method, addr)
}

// Close releases the client connection if it holds one.
func (a *EVMBalance) Close() error {
	if c, ok := a.client.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
