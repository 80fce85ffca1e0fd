// Package blockinfo queries plaintext address balance endpoints such as
// https://blockchain.info/q/addressbalance/{address}.
package blockinfo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://blockchain.info/q/addressbalance/"
	DefaultTimeout  = 10 * time.Second

	maxBodySize = 1 << 16
)

// Client fetches balances as plain text.
type Client struct {
	endpoint string
	http     *http.Client
}

// New creates a client for endpoint. The address is appended to the
// endpoint path. A nil httpClient uses a client with DefaultTimeout.
func New(endpoint string, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{endpoint: endpoint, http: httpClient}
}

// AddressBalance returns the trimmed response body for address.
func (c *Client) AddressBalance(ctx context.Context, address string) (string, error) {
	reqURL := c.endpoint + url.PathEscape(address)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request %s: unexpected status %d: %s", reqURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return strings.TrimSpace(string(body)), nil
}
