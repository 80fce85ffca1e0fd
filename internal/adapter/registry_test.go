package adapter

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/neox5/chainbox/internal/config"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/cosmos"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestBuildRegistry(t *testing.T) {
	store := metric.NewStore()
	abci := &fakeABCI{handler: func(path string, _ []byte) ([]byte, error) {
		if path == cosmos.AllBalancesPath {
			return balancesResponse(cosmos.Coin{Denom: "utia", Amount: "1"}), nil
		}
		return stateResponse(`{"count":1}`), nil
	}}
	eth := &fakeEVM{native: map[string]*big.Int{ethAddr: big.NewInt(100)}}
	clients := testClients(abci, eth, fakeFetcher{btcAddr: "5"})

	sources := []config.SourceConfig{
		{Name: "btc", Enabled: true, Type: config.TypeBTC, Params: &config.BlockInfoParams{Addresses: []string{btcAddr}}},
		{Name: "eth", Enabled: true, Type: config.TypeETH, Params: &config.EVMParams{
			Addresses: []string{ethAddr}, RPC: "http://node", Decimals: intPtr(2),
		}},
		{Name: "tia", Enabled: true, Type: config.TypeCosmosBank, Params: &config.BankParams{
			Addresses: []string{tiaAddr}, Denoms: []string{"utia"}, RPC: "http://node",
		}},
		{Name: "pool", Enabled: true, Type: config.TypeSmartQuery, Params: &config.SmartQueryParams{
			Contract: "wasm1c", RPC: "http://node",
			Objects: []config.QueryObject{{
				Query: `{"state":{}}`,
				Keys:  []config.ExtractionRule{{Key: "count", Path: ".count", Type: "int"}},
			}},
		}},
		{Name: "off", Enabled: false, Type: config.TypeBTC, Params: &config.BlockInfoParams{Addresses: []string{"z"}}},
		{Name: "broken", Enabled: true, Type: config.TypeBTC, Err: &config.FieldError{Source: "broken", Field: "addresses", Reason: "required"}},
	}

	reg, err := BuildRegistry(context.Background(), sources, store, clients, nil)
	require.Error(t, err)

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	require.Equal(t, "broken", srcErr.Source)
	var fieldErr *config.FieldError
	require.True(t, errors.As(err, &fieldErr))

	require.Equal(t, []string{"btc", "eth", "pool", "tia"}, reg.Names())
	require.Equal(t, 4, reg.Len())
	require.Equal(t, 4, store.Len())

	for _, a := range reg.Adapters() {
		require.NoError(t, a.Refresh(context.Background()), a.Name())
	}
	requireInt(t, store, "btc_balance_"+btcAddr, 5)
	requireInt(t, store, "eth_balance_"+ethAddr, 100)
	requireInt(t, store, metric.Key("tia", "balance", tiaAddr, "utia"), 1)
	requireInt(t, store, "pool_count", 1)

	_, ok := reg.Get("off")
	require.False(t, ok)
	require.NoError(t, reg.Close())
}

func TestBuildRegistryKeyCollision(t *testing.T) {
	store := metric.NewStore()
	clients := testClients(&fakeABCI{}, &fakeEVM{}, fakeFetcher{})

	sources := []config.SourceConfig{
		{Name: "a", Enabled: true, Type: config.TypeSmartQuery, Params: &config.SmartQueryParams{
			Contract: "wasm1c", RPC: "http://node",
			Objects: []config.QueryObject{{
				Query: `{}`,
				Keys: []config.ExtractionRule{
					{Key: "b_balance_c", Path: ".x", Type: "int"},
					{Key: "other", Path: ".y", Type: "float"},
				},
			}},
		}},
		{Name: "a_b", Enabled: true, Type: config.TypeBTC, Params: &config.BlockInfoParams{Addresses: []string{"c", "d"}}},
	}

	reg, err := BuildRegistry(context.Background(), sources, store, clients, nil)
	require.ErrorIs(t, err, metric.ErrDuplicateKey)
	require.Equal(t, []string{"a"}, reg.Names())

	// the failed source registered nothing
	require.Equal(t, 2, store.Len())
	_, ok := store.Get("a_b_balance_d")
	require.False(t, ok)
}

func TestNewRegistryDuplicateName(t *testing.T) {
	store := metric.NewStore()
	a, err := NewBlockInfo("x", store, fakeFetcher{}, []string{"1"})
	require.NoError(t, err)

	_, err = NewRegistry(a, a)
	require.Error(t, err)
}

func TestBuildRegistryReservedPrefix(t *testing.T) {
	store := metric.NewStore()
	clients := testClients(&fakeABCI{}, &fakeEVM{}, fakeFetcher{btcAddr: "1"})

	sources := []config.SourceConfig{
		{Name: "btc", Enabled: true, Type: config.TypeBTC, Params: &config.BlockInfoParams{Addresses: []string{btcAddr}}},
		{Name: "chainbox", Enabled: true, Type: config.TypeSmartQuery, Params: &config.SmartQueryParams{
			Contract: "wasm1c", RPC: "http://node",
			Objects: []config.QueryObject{{
				Query: `{}`,
				Keys:  []config.ExtractionRule{{Key: "refresh_in_flight", Path: ".x", Type: "int"}},
			}},
		}},
	}

	reg, err := BuildRegistry(context.Background(), sources, store, clients, nil)
	require.ErrorIs(t, err, metric.ErrReservedKey)
	require.Equal(t, []string{"btc"}, reg.Names())
	require.Equal(t, 1, store.Len())
}
