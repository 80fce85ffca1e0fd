package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/neox5/chainbox/internal/metric"
)

// BlockInfo reads plaintext integer balances, one request per address.
// A refresh updates either all addresses or none.
type BlockInfo struct {
	base
	client    BalanceFetcher
	addresses []string
}

// NewBlockInfo creates a plaintext balance adapter and registers
// {name}_balance_{address} for every address.
func NewBlockInfo(name string, store *metric.Store, client BalanceFetcher, addresses []string) (*BlockInfo, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("at least one address required")
	}

	a := &BlockInfo{
		base:      base{name: name, store: store},
		client:    client,
		addresses: append([]string(nil), addresses...),
	}

	specs := make([]metric.Spec, len(addresses))
	for i, addr := range addresses {
		specs[i] = metric.Spec{Key: metric.Key(name, "balance", addr), Kind: metric.KindInt}
	}
	if err := a.register(specs); err != nil {
		return nil, err
	}
	return a, nil
}

// Refresh fetches every address before writing any key.
func (a *BlockInfo) Refresh(ctx context.Context) error {
	updates := make([]update, 0, len(a.addresses))

	for i, addr := range a.addresses {
		body, err := a.client.AddressBalance(ctx, addr)
		if err != nil {
			return fmt.Errorf("address %s: %w", addr, err)
		}

		balance, err := strconv.ParseInt(strings.TrimSpace(body), 10, 64)
		if err != nil {
			return fmt.Errorf("address %s: invalid balance %q: %w", addr, body, err)
		}

		updates = append(updates, update{key: a.keys[i], value: metric.Int(balance)})
	}

	return a.commit(updates)
}
