package wsstream

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestSourceSubscribeAndStreamRecv(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var sub subscribeMsg
		require.NoError(t, conn.ReadJSON(&sub))
		require.Equal(t, "subscribe", sub.Operation)
		require.Equal(t, []string{"acct-1"}, sub.Accounts)

		payload := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
		require.NoError(t, conn.WriteJSON(updateFrame{Address: "acct-1", DataB64: payload, Slot: 5, TxnSignature: "sig-abc"}))

		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	src := New(url)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stream, err := src.Subscribe(ctx, []string{"acct-1"}, []string{"program-1"})
	require.NoError(t, err)
	defer stream.Close()

	update, err := stream.Recv(ctx)
	require.NoError(t, err)
	require.Equal(t, "acct-1", update.Address)
	require.Equal(t, []byte{1, 2, 3}, update.Data)
	require.Equal(t, uint64(5), update.Slot)
	require.Equal(t, "sig-abc", update.TxnSignature)
}

func TestStreamRecvRespectsContextCancellation(t *testing.T) {
	upgrader := websocket.Upgrader{}
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		<-block
	}))
	defer srv.Close()
	defer close(block)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	src := New(url)

	stream, err := src.Subscribe(context.Background(), nil, nil)
	require.NoError(t, err)
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = stream.Recv(ctx)
	require.Error(t, err)
}
