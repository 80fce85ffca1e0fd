package adapter

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/neox5/chainbox/internal/extract"
	"github.com/neox5/chainbox/internal/upstream/cosmos"
)

type fakeFetcher map[string]string

func (f fakeFetcher) AddressBalance(_ context.Context, address string) (string, error) {
	body, ok := f[address]
	if !ok {
		return "", errors.New("connection refused")
	}
	return body, nil
}

type fakeEVM struct {
	native map[string]*big.Int
	token  map[string]*big.Int
	method string
}

func (f *fakeEVM) NativeBalance(_ context.Context, address string) (*big.Int, error) {
	v, ok := f.native[address]
	if !ok {
		return nil, errors.New("not found")
	}
	return v, nil
}

func (f *fakeEVM) TokenBalance(_ context.Context, _, method, address string) (*big.Int, error) {
	f.method = method
	v, ok := f.token[address]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return v, nil
}

// fakeABCI answers queries with a handler and records the requests.
type fakeABCI struct {
	mu       sync.Mutex
	paths    []string
	requests [][]byte
	handler  func(path string, data []byte) ([]byte, error)
}

func (f *fakeABCI) Query(_ context.Context, path string, data []byte) ([]byte, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.requests = append(f.requests, data)
	f.mu.Unlock()
	return f.handler(path, data)
}

func balancesResponse(coins ...cosmos.Coin) []byte {
	return cosmos.AllBalancesResponse{Balances: coins}.Marshal()
}

func stateResponse(doc string) []byte {
	return cosmos.SmartContractStateResponse{Data: []byte(doc)}.Marshal()
}

func testClients(abci ABCIQuerier, evmReader EVMReader, fetcher BalanceFetcher) Clients {
	return Clients{
		BlockInfo: func(string) BalanceFetcher { return fetcher },
		EVM: func(context.Context, string) (EVMReader, error) {
			return evmReader, nil
		},
		ABCI: func(string) (ABCIQuerier, error) {
			return abci, nil
		},
		Extractor: extract.NewJQ(),
	}
}
