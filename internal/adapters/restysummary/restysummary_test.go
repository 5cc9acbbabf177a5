package restysummary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientGetSummaryParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/summary/sol-usdc", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"change24h":1.5,"price24h":50.0,"high24h":55.0,"low24h":48.0,"volume24h":1000,"price":52.0,"solPrice":150.0}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	summary, err := c.GetSummary(context.Background(), "sol-usdc")
	require.NoError(t, err)
	require.Equal(t, 52.0, summary.Price)
	require.Equal(t, 150.0, summary.SolPrice)
	require.Nil(t, summary.MarketBuy)
}

func TestClientGetSummaryErrorsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetSummary(context.Background(), "missing")
	require.Error(t, err)
}
