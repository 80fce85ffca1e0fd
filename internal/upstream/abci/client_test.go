package abci

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params struct {
		Path string `json:"path"`
		Data string `json:"data"`
	} `json:"params"`
}

func newABCIServer(t *testing.T, response map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		assert.Equal(t, "abci_query", req.Method)
		assert.Equal(t, "/cosmos.bank.v1beta1.Query/AllBalances", req.Params.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]any{"response": response},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuery(t *testing.T) {
	srv := newABCIServer(t, map[string]any{
		"code":   0,
		"value":  base64.StdEncoding.EncodeToString([]byte{0x0a, 0x02, 'h', 'i'}),
		"height": "42",
	})

	c, err := Dial(srv.URL, time.Second)
	require.NoError(t, err)

	value, err := c.Query(context.Background(), "/cosmos.bank.v1beta1.Query/AllBalances", []byte{0x0a})
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a, 0x02, 'h', 'i'}, value)
}

func TestQueryErrorCode(t *testing.T) {
	srv := newABCIServer(t, map[string]any{
		"code":      18,
		"codespace": "sdk",
		"log":       "invalid address",
		"height":    "42",
	})

	c, err := Dial(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "/cosmos.bank.v1beta1.Query/AllBalances", nil)
	require.ErrorContains(t, err, "invalid address")
}
