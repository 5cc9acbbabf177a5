package chainrpc

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chainfeed/ingestd/internal/decode"
)

func TestClientGetAccountDecodesBase64Payload(t *testing.T) {
	want := []byte{1, 2, 3, 4}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":{"data":["` + base64.StdEncoding.EncodeToString(want) + `","base64"]}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.GetAccount(context.Background(), "some-address")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestClientGetAccountMissingValueErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":null}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetAccount(context.Background(), "missing")
	require.Error(t, err)
}

func TestClientGetMultipleAccountsHandlesHoles(t *testing.T) {
	a := base64.StdEncoding.EncodeToString([]byte{9, 9})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"value":[{"data":["` + a + `","base64"]},null]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.GetMultipleAccounts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, []byte{9, 9}, got[0])
	require.Nil(t, got[1])
}

func TestClientRPCErrorIsPropagated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid params"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetAccount(context.Background(), "x")
	require.Error(t, err)
}

func TestFindProgramAddressIsDeterministicAndOffCurve(t *testing.T) {
	var programRaw [32]byte
	programRaw[0] = 42
	programID := decode.AddressString(programRaw)

	c := New("http://unused.invalid")
	addr1, err := c.FindProgramAddress([][]byte{[]byte("market"), []byte("buy_log_pda_seed")}, programID)
	require.NoError(t, err)
	require.NotEmpty(t, addr1)

	addr2, err := c.FindProgramAddress([][]byte{[]byte("market"), []byte("buy_log_pda_seed")}, programID)
	require.NoError(t, err)
	require.Equal(t, addr1, addr2)

	raw, err := decode.AddressBytes(addr1)
	require.NoError(t, err)
	require.False(t, onCurve(raw[:]))

	addr3, err := c.FindProgramAddress([][]byte{[]byte("market"), []byte("sell_log_pda_seed")}, programID)
	require.NoError(t, err)
	require.NotEqual(t, addr1, addr3)
}
