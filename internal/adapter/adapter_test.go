package adapter

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neox5/chainbox/internal/extract"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/blockinfo"
	"github.com/neox5/chainbox/internal/upstream/cosmos"
	"github.com/stretchr/testify/require"
)

const (
	btcAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	ethAddr = "0x6654C4cA46dB6003bf819803dD88eD6af118dcF9"
	usdt    = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	tiaAddr = "celestia1x38l2kya94s69g3nc4hjp4yugfr2srm30whg0e"
)

func requireInt(t *testing.T, store *metric.Store, key string, want int64) {
	t.Helper()
	v, ok := store.Get(key)
	require.True(t, ok, "key %s not registered", key)
	require.Equal(t, metric.KindInt, v.Kind())
	require.Equal(t, want, v.Int64(), key)
}

func TestBlockInfoRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("12345"))
	}))
	defer srv.Close()

	store := metric.NewStore()
	a, err := NewBlockInfo("btc", store, blockinfo.New(srv.URL, srv.Client()), []string{btcAddr})
	require.NoError(t, err)
	require.Equal(t, []string{"btc_balance_" + btcAddr}, a.Keys())

	require.NoError(t, a.Refresh(context.Background()))
	requireInt(t, store, "btc_balance_"+btcAddr, 12345)
}

func TestBlockInfoAllOrNothing(t *testing.T) {
	store := metric.NewStore()
	fetcher := fakeFetcher{"a": "10", "b": "20"}
	a, err := NewBlockInfo("btc", store, fetcher, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, a.Refresh(context.Background()))

	fetcher["a"] = "11"
	fetcher["b"] = "not a number"
	err = a.Refresh(context.Background())
	require.ErrorContains(t, err, "invalid balance")
	require.False(t, metric.IsContractViolation(err))

	requireInt(t, store, "btc_balance_a", 10)
	requireInt(t, store, "btc_balance_b", 20)

	delete(fetcher, "b")
	require.Error(t, a.Refresh(context.Background()))
	requireInt(t, store, "btc_balance_a", 10)
}

func TestEVMBalanceNative(t *testing.T) {
	store := metric.NewStore()
	eth := &fakeEVM{native: map[string]*big.Int{
		ethAddr: new(big.Int).Mul(big.NewInt(2), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)),
	}}

	a, err := NewEVMBalance("eth", store, eth, EVMOptions{Addresses: []string{ethAddr}, Decimals: 18})
	require.NoError(t, err)
	require.NoError(t, a.Refresh(context.Background()))

	// two fixed decimals: 2 ETH -> 200
	requireInt(t, store, "eth_balance_"+ethAddr, 200)
}

func TestEVMBalanceToken(t *testing.T) {
	store := metric.NewStore()
	eth := &fakeEVM{token: map[string]*big.Int{ethAddr: big.NewInt(1234567)}}

	a, err := NewEVMBalance("usdt", store, eth, EVMOptions{
		Addresses: []string{ethAddr},
		Contract:  usdt,
		Decimals:  6,
	})
	require.NoError(t, err)
	require.NoError(t, a.Refresh(context.Background()))

	requireInt(t, store, "usdt_balance_"+ethAddr, 123)
	require.Equal(t, "balanceOf", eth.method)
}

func TestEVMBalanceErrors(t *testing.T) {
	store := metric.NewStore()

	_, err := NewEVMBalance("x", store, &fakeEVM{}, EVMOptions{Addresses: []string{ethAddr}, Decimals: 1})
	require.ErrorContains(t, err, "decimals")

	_, err = NewEVMBalance("y", store, &fakeEVM{}, EVMOptions{Addresses: []string{"0xnope"}, Decimals: 18})
	require.ErrorContains(t, err, "invalid address")
	require.Zero(t, store.Len())

	huge, _ := new(big.Int).SetString("1000000000000000000000000000000000", 10)
	a, err := NewEVMBalance("z", store, &fakeEVM{native: map[string]*big.Int{ethAddr: huge}}, EVMOptions{
		Addresses: []string{ethAddr},
		Decimals:  2,
	})
	require.NoError(t, err)
	require.ErrorContains(t, a.Refresh(context.Background()), "overflows int64")
	requireInt(t, store, "z_balance_"+ethAddr, 0)
}

func TestBankBalanceFiltersDenoms(t *testing.T) {
	store := metric.NewStore()
	abci := &fakeABCI{handler: func(string, []byte) ([]byte, error) {
		return balancesResponse(
			cosmos.Coin{Denom: "utia", Amount: "500"},
			cosmos.Coin{Denom: "uusd", Amount: "10"},
		), nil
	}}

	a, err := NewBankBalance("celestia", store, abci, []string{tiaAddr}, []string{"utia"})
	require.NoError(t, err)
	require.NoError(t, a.Refresh(context.Background()))

	requireInt(t, store, metric.Key("celestia", "balance", tiaAddr, "utia"), 500)
	_, ok := store.Get(metric.Key("celestia", "balance", tiaAddr, "uusd"))
	require.False(t, ok)
	require.Equal(t, 1, store.Len())

	require.Equal(t, []string{cosmos.AllBalancesPath}, abci.paths)
	want := cosmos.AllBalancesRequest{
		Address:    tiaAddr,
		Pagination: &cosmos.PageRequest{Limit: cosmos.DefaultPageLimit},
	}.Marshal()
	require.Equal(t, want, abci.requests[0])
}

func TestBankBalanceStaleOnError(t *testing.T) {
	store := metric.NewStore()
	amount := "500"
	fail := false
	abci := &fakeABCI{handler: func(string, []byte) ([]byte, error) {
		if fail {
			return nil, errors.New("connection reset")
		}
		return balancesResponse(cosmos.Coin{Denom: "utia", Amount: amount}), nil
	}}

	a, err := NewBankBalance("celestia", store, abci, []string{tiaAddr}, []string{"utia"})
	require.NoError(t, err)
	require.NoError(t, a.Refresh(context.Background()))

	fail = true
	amount = "600"
	require.ErrorContains(t, a.Refresh(context.Background()), "connection reset")
	requireInt(t, store, metric.Key("celestia", "balance", tiaAddr, "utia"), 500)

	fail = false
	amount = "abc"
	require.ErrorContains(t, a.Refresh(context.Background()), "invalid amount")
	requireInt(t, store, metric.Key("celestia", "balance", tiaAddr, "utia"), 500)
}

func TestSmartQueryRefresh(t *testing.T) {
	store := metric.NewStore()
	doc := `{"data":{"count":7,"price":"1.25"}}`
	abci := &fakeABCI{handler: func(path string, _ []byte) ([]byte, error) {
		return stateResponse(doc), nil
	}}

	a, err := NewSmartQuery("pool", store, abci, extract.NewJQ(), "wasm1contract", []QueryDefinition{
		{Payload: `{"state":{}}`, Rules: []Rule{{Key: "count", Path: ".data.count", Kind: metric.KindInt}}},
		{Payload: `{"state":{}}`, Rules: []Rule{{Key: "price", Path: ".data.price", Kind: metric.KindFloat}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"pool_count", "pool_price"}, a.Keys())

	require.NoError(t, a.Refresh(context.Background()))
	requireInt(t, store, "pool_count", 7)
	price, _ := store.Get("pool_price")
	require.Equal(t, 1.25, price.Float64())

	// identical payloads are queried once
	require.Len(t, abci.paths, 1)
	require.Equal(t, cosmos.SmartContractStatePath, abci.paths[0])

	// missing path: error, count unchanged, price still updated
	doc = `{"data":{"price":2.5}}`
	err = a.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoResult)
	require.False(t, metric.IsContractViolation(err))
	requireInt(t, store, "pool_count", 7)
	price, _ = store.Get("pool_price")
	require.Equal(t, 2.5, price.Float64())
}

func TestSmartQueryInvalidDocument(t *testing.T) {
	store := metric.NewStore()
	abci := &fakeABCI{handler: func(string, []byte) ([]byte, error) {
		return stateResponse(`not json`), nil
	}}

	a, err := NewSmartQuery("pool", store, abci, extract.NewJQ(), "wasm1contract", []QueryDefinition{
		{Payload: `{}`, Rules: []Rule{{Key: "count", Path: ".count", Kind: metric.KindInt}}},
	})
	require.NoError(t, err)
	require.ErrorContains(t, a.Refresh(context.Background()), "decode json")
}

func TestSmartQueryRejectsBadPath(t *testing.T) {
	store := metric.NewStore()
	_, err := NewSmartQuery("pool", store, &fakeABCI{}, extract.NewJQ(), "wasm1contract", []QueryDefinition{
		{Payload: `{}`, Rules: []Rule{{Key: "count", Path: ".count[[", Kind: metric.KindInt}}},
	})
	require.Error(t, err)
	require.Zero(t, store.Len())
}

func TestRefreshTouchesOnlyOwnKeys(t *testing.T) {
	store := metric.NewStore()

	a, err := NewBlockInfo("a", store, fakeFetcher{"x": "1"}, []string{"x"})
	require.NoError(t, err)
	b, err := NewBlockInfo("b", store, fakeFetcher{"x": "2"}, []string{"x"})
	require.NoError(t, err)

	require.NoError(t, b.Refresh(context.Background()))
	before := store.Snapshot()

	require.NoError(t, a.Refresh(context.Background()))
	after := store.Snapshot()

	for i := range after {
		if after[i].Owner == "a" {
			continue
		}
		require.Equal(t, before[i], after[i])
	}
	requireInt(t, store, "a_balance_x", 1)
	requireInt(t, store, "b_balance_x", 2)
}
