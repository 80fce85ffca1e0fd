package blockinfo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/addressbalance/1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", r.URL.Path)
		_, _ = w.Write([]byte("12345\n"))
	}))
	defer srv.Close()

	c := New(srv.URL+"/q/addressbalance", srv.Client())
	body, err := c.AddressBalance(context.Background(), "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa")
	require.NoError(t, err)
	require.Equal(t, "12345", body)
}

func TestAddressBalanceStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Checksum does not validate", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", srv.Client())
	_, err := c.AddressBalance(context.Background(), "bad")
	require.ErrorContains(t, err, "unexpected status 500")
}
