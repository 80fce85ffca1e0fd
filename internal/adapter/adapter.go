// Package adapter implements the data sources that feed the metric store.
//
// Every adapter registers its keys in the store when it is constructed and
// only updates those keys on Refresh. A failed refresh leaves the adapter's
// keys at their last good value.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/neox5/chainbox/internal/metric"
)

// Adapter is a configured data source.
type Adapter interface {
	// Name returns the configured source name.
	Name() string

	// Keys returns the metric keys registered at construction.
	Keys() []string

	// Refresh queries the source and updates the adapter's keys.
	// Implementations are not safe for concurrent Refresh calls.
	Refresh(ctx context.Context) error
}

// ErrNoResult is returned when an extraction path yields no value.
var ErrNoResult = errors.New("extraction produced no result")

// BalanceFetcher returns a plaintext balance for an address.
type BalanceFetcher interface {
	AddressBalance(ctx context.Context, address string) (string, error)
}

// EVMReader reads balances from an Ethereum-compatible node.
type EVMReader interface {
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	TokenBalance(ctx context.Context, contract, method, address string) (*big.Int, error)
}

// ABCIQuerier performs ABCI queries and returns the raw response value.
type ABCIQuerier interface {
	Query(ctx context.Context, path string, data []byte) ([]byte, error)
}

// base holds the state shared by all adapters.
type base struct {
	name  string
	store *metric.Store
	keys  []string
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Keys() []string {
	return append([]string(nil), b.keys...)
}

// register claims specs in the store for this adapter. Duplicate keys
// within the adapter are rejected before the store is touched.
func (b *base) register(specs []metric.Spec) error {
	seen := make(map[string]bool, len(specs))
	for _, sp := range specs {
		if seen[sp.Key] {
			return fmt.Errorf("%w: key %q generated twice", metric.ErrDuplicateKey, sp.Key)
		}
		seen[sp.Key] = true
	}

	if err := b.store.RegisterAll(b.name, specs); err != nil {
		return err
	}

	b.keys = make([]string, len(specs))
	for i, sp := range specs {
		b.keys[i] = sp.Key
	}
	return nil
}

// update is a pending store write.
type update struct {
	key   string
	value metric.Value
}

// commit writes all updates. Store errors are contract violations and are
// returned wrapped so callers can detect them.
func (b *base) commit(updates []update) error {
	var errs []error
	for _, u := range updates {
		if err := b.store.Set(u.key, u.value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// toInt64 converts an arbitrary precision integer into a gauge value.
func toInt64(v *big.Int) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("missing value")
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("value %s overflows int64", v)
	}
	return v.Int64(), nil
}
