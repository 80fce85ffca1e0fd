package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/neox5/chainbox/internal/config"
	"github.com/neox5/chainbox/internal/extract"
	"github.com/neox5/chainbox/internal/metric"
	"github.com/neox5/chainbox/internal/upstream/abci"
	"github.com/neox5/chainbox/internal/upstream/blockinfo"
	"github.com/neox5/chainbox/internal/upstream/evm"
)

// Clients creates the upstream clients used by adapters.
type Clients struct {
	BlockInfo func(endpoint string) BalanceFetcher
	EVM       func(ctx context.Context, endpoint string) (EVMReader, error)
	ABCI      func(endpoint string) (ABCIQuerier, error)
	Extractor extract.Engine
}

// DefaultClients returns clients backed by the upstream packages.
func DefaultClients(timeout time.Duration) Clients {
	httpClient := &http.Client{Timeout: timeout}

	return Clients{
		BlockInfo: func(endpoint string) BalanceFetcher {
			return blockinfo.New(endpoint, httpClient)
		},
		EVM: func(ctx context.Context, endpoint string) (EVMReader, error) {
			return evm.Dial(ctx, endpoint)
		},
		ABCI: func(endpoint string) (ABCIQuerier, error) {
			return abci.Dial(endpoint, timeout)
		},
		Extractor: extract.NewJQ(),
	}
}

// New builds the adapter for a resolved source.
func New(ctx context.Context, src config.SourceConfig, store *metric.Store, clients Clients) (Adapter, error) {
	if src.Err != nil {
		return nil, src.Err
	}

	switch p := src.Params.(type) {
	case *config.BlockInfoParams:
		return NewBlockInfo(src.Name, store, clients.BlockInfo(p.Endpoint), p.Addresses)

	case *config.EVMParams:
		return newEVM(ctx, src, p, store, clients)

	case *config.BankParams:
		client, err := clients.ABCI(p.RPC)
		if err != nil {
			return nil, err
		}
		return NewBankBalance(src.Name, store, client, p.Addresses, p.Denoms)

	case *config.SmartQueryParams:
		queries, err := queryDefinitions(p)
		if err != nil {
			return nil, err
		}
		client, err := clients.ABCI(p.RPC)
		if err != nil {
			return nil, err
		}
		return NewSmartQuery(src.Name, store, client, clients.Extractor, p.Contract, queries)

	default:
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}
}

func newEVM(ctx context.Context, src config.SourceConfig, p *config.EVMParams, store *metric.Store, clients Clients) (Adapter, error) {
	opts := EVMOptions{
		Addresses: p.Addresses,
		Contract:  p.Contract,
	}
	if p.Decimals != nil {
		opts.Decimals = *p.Decimals
	}

	switch src.Type {
	case config.TypeETH:
		opts.Contract = ""
	case config.TypeERC20:
		opts.Method = evm.MethodBalanceOf
	case config.TypeCompound:
		opts.Method = evm.MethodBalanceOfUnderlying
	default:
		return nil, fmt.Errorf("unsupported source type %q", src.Type)
	}

	endpoint := p.RPC
	if endpoint == "" {
		endpoint = evm.InfuraEndpoint(p.InfuraToken)
	}

	client, err := clients.EVM(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	a, err := NewEVMBalance(src.Name, store, client, opts)
	if err != nil {
		if c, ok := client.(interface{ Close() }); ok {
			c.Close()
		}
		return nil, err
	}
	return a, nil
}

func queryDefinitions(p *config.SmartQueryParams) ([]QueryDefinition, error) {
	defs := make([]QueryDefinition, 0, len(p.Objects))
	for _, obj := range p.Objects {
		def := QueryDefinition{Payload: string(obj.Query)}
		for _, k := range obj.Keys {
			kind, err := metric.ParseKind(k.Type)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k.Key, err)
			}
			def.Rules = append(def.Rules, Rule{Key: k.Key, Path: k.Path, Kind: kind})
		}
		defs = append(defs, def)
	}
	return defs, nil
}
