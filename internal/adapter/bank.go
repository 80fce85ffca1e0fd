package adapter

import (
	"context"
	"fmt"
	"math/big"

	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/cosmos"
)

// BankBalance reads all balances of each address and exposes the
// allow-listed denominations. A refresh updates either all matching
// balances or none. Denominations missing from a response keep their
// previous value.
type BankBalance struct {
	base
	client    ABCIQuerier
	addresses []string
	keyFor    map[string]map[string]string // address -> denom -> key
}

// NewBankBalance creates a bank balance adapter and registers
// {name}_balance_{address}_{denom} for every address and denom pair.
func NewBankBalance(name string, store *metric.Store, client ABCIQuerier, addresses, denoms []string) (*BankBalance, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("at least one address required")
	}
	if len(denoms) == 0 {
		return nil, fmt.Errorf("at least one denom required")
	}

	a := &BankBalance{
		base:      base{name: name, store: store},
		client:    client,
		addresses: append([]string(nil), addresses...),
		keyFor:    make(map[string]map[string]string, len(addresses)),
	}

	var specs []metric.Spec
	for _, addr := range addresses {
		a.keyFor[addr] = make(map[string]string, len(denoms))
		for _, denom := range denoms {
			key := metric.Key(name, "balance", addr, denom)
			a.keyFor[addr][denom] = key
			specs = append(specs, metric.Spec{Key: key, Kind: metric.KindInt})
		}
	}
	if err := a.register(specs); err != nil {
		return nil, err
	}
	return a, nil
}

// Refresh queries every address before writing any key.
func (a *BankBalance) Refresh(ctx context.Context) error {
	var updates []update

	for _, addr := range a.addresses {
		coins, err := a.allBalances(ctx, addr)
		if err != nil {
			return fmt.Errorf("address %s: %w", addr, err)
		}

		for _, c := range coins {
			key, allowed := a.keyFor[addr][c.Denom]
			if !allowed {
				continue
			}

			amount, ok := new(big.Int).SetString(c.Amount, 10)
			if !ok {
				return fmt.Errorf("address %s: denom %s: invalid amount %q", addr, c.Denom, c.Amount)
			}
			n, err := toInt64(amount)
			if err != nil {
				return fmt.Errorf("address %s: denom %s: %w", addr, c.Denom, err)
			}

			updates = append(updates, update{key: key, value: metric.Int(n)})
		}
	}

	return a.commit(updates)
}

func (a *BankBalance) allBalances(ctx context.Context, addr string) ([]cosmos.Coin, error) {
	req := cosmos.AllBalancesRequest{
		Address:    addr,
		Pagination: &cosmos.PageRequest{Limit: cosmos.DefaultPageLimit},
	}

	value, err := a.client.Query(ctx, cosmos.AllBalancesPath, req.Marshal())
	if err != nil {
		return nil, err
	}

	var resp cosmos.AllBalancesResponse
	if err := resp.Unmarshal(value); err != nil {
		return nil, fmt.Errorf("decode all balances response: %w", err)
	}
	return resp.Balances, nil
}
