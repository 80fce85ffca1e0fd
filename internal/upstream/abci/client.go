// Package abci performs ABCI queries against CometBFT RPC endpoints.
package abci

import (
	"context"
	"fmt"
	"time"

	cmtbytes "github.com/cometbft/cometbft/libs/bytes"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
)

// DefaultTimeout bounds a single RPC round trip.
const DefaultTimeout = 10 * time.Second

// Client issues ABCI queries at the latest height.
type Client struct {
	endpoint string
	rpc      *rpchttp.HTTP
}

// Dial creates a client for a CometBFT RPC endpoint. No connection is made
// until the first query.
func Dial(endpoint string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	seconds := uint(timeout.Round(time.Second) / time.Second)
	if seconds == 0 {
		seconds = 1
	}

	c, err := rpchttp.NewWithTimeout(endpoint, "/websocket", seconds)
	if err != nil {
		return nil, fmt.Errorf("failed to create rpc client for %s: %w", endpoint, err)
	}
	return &Client{endpoint: endpoint, rpc: c}, nil
}

// Query runs an ABCI query and returns the response value. A non-zero
// response code is returned as an error.
func (c *Client) Query(ctx context.Context, path string, data []byte) ([]byte, error) {
	res, err := c.rpc.ABCIQuery(ctx, path, cmtbytes.HexBytes(data))
	if err != nil {
		return nil, fmt.Errorf("abci_query %s on %s: %w", path, c.endpoint, err)
	}

	resp := res.Response
	if resp.IsErr() {
		return nil, fmt.Errorf("abci_query %s: code %d (%s): %s", path, resp.Code, resp.Codespace, resp.Log)
	}
	return resp.Value, nil
}
