// Package evm reads native and token balances from Ethereum-compatible
// JSON-RPC endpoints.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Token balance methods.
const (
	MethodBalanceOf           = "balanceOf"
	MethodBalanceOfUnderlying = "balanceOfUnderlying"
)

// InfuraEndpoint returns the Infura mainnet URL for a project token.
func InfuraEndpoint(token string) string {
	return "https://mainnet.infura.io/v3/" + token
}

const tokenABI = `[
  {"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"inputs":[{"name":"owner","type":"address"}],"name":"balanceOfUnderlying","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

var parsedTokenABI = mustParseABI(tokenABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid token abi: %v", err))
	}
	return parsed
}

// ValidateAddress checks that s is a hex encoded 20 byte address.
func ValidateAddress(s string) error {
	if !common.IsHexAddress(s) {
		return fmt.Errorf("invalid address %q", s)
	}
	return nil
}

// Client wraps an ethclient connection.
type Client struct {
	eth *ethclient.Client
}

// Dial connects to a JSON-RPC endpoint. For HTTP endpoints no request is
// made until the first query.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	c, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", endpoint, err)
	}
	return &Client{eth: c}, nil
}

// NativeBalance returns the latest balance of address in wei.
func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance %s: %w", address, err)
	}
	return bal, nil
}

// TokenBalance calls method(address) on contract and returns the uint256 result.
func (c *Client) TokenBalance(ctx context.Context, contract, method, address string) (*big.Int, error) {
	if err := ValidateAddress(contract); err != nil {
		return nil, fmt.Errorf("contract: %w", err)
	}
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}

	data, err := parsedTokenABI.Pack(method, common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	to := common.HexToAddress(contract)
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s.%s(%s): %w", contract, method, address, err)
	}

	values, err := parsedTokenABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack %s: expected 1 value, got %d", method, len(values))
	}
	bal, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected type %T", method, values[0])
	}
	return bal, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}
