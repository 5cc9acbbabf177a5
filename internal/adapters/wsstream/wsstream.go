// Package wsstream implements ports.UpdateSource/ports.UpdateStream over a
// gorilla/websocket connection to an upstream account-update feed: dial,
// subscribe by sending a JSON control message, then read frames in a loop.
package wsstream

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chainfeed/ingestd/internal/constants"
	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/ports"
)

// Source dials a websocket endpoint for each Subscribe call.
type Source struct {
	url    string
	dialer *websocket.Dialer
}

var _ ports.UpdateSource = (*Source)(nil)

// New builds a source against a websocket URL (ws:// or wss://).
func New(url string) *Source {
	return &Source{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: constants.StreamDialTimeout,
		},
	}
}

type subscribeMsg struct {
	Operation  string   `json:"operation"`
	Accounts   []string `json:"accounts"`
	ProgramIDs []string `json:"programIds"`
}

type updateFrame struct {
	Address      string `json:"address"`
	DataB64      string `json:"data"`
	Slot         uint64 `json:"slot"`
	TxnSignature string `json:"txnSignature"`
}

func (s *Source) Subscribe(ctx context.Context, accounts []string, programIDs []string) (ports.UpdateStream, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, ingesterr.Wrap(err, ingesterr.ErrTransientIO, "dial update stream")
	}

	_ = conn.SetWriteDeadline(time.Now().Add(constants.StreamRequestTimeout))
	if err := conn.WriteJSON(subscribeMsg{Operation: "subscribe", Accounts: accounts, ProgramIDs: programIDs}); err != nil {
		conn.Close()
		return nil, ingesterr.Wrap(err, ingesterr.ErrTransientIO, "send subscribe message")
	}
	_ = conn.SetWriteDeadline(time.Time{})

	return &Stream{conn: conn}, nil
}

// Stream wraps a live websocket connection as a ports.UpdateStream.
type Stream struct {
	conn *websocket.Conn
}

var _ ports.UpdateStream = (*Stream)(nil)

func (s *Stream) Recv(ctx context.Context) (ports.AccountUpdate, error) {
	type result struct {
		update ports.AccountUpdate
		err    error
	}
	done := make(chan result, 1)

	go func() {
		var frame updateFrame
		err := s.conn.ReadJSON(&frame)
		if err != nil {
			done <- result{err: ingesterr.Wrap(err, ingesterr.ErrStreamDisconnect, "read update frame")}
			return
		}
		data, err := base64.StdEncoding.DecodeString(frame.DataB64)
		if err != nil {
			done <- result{err: ingesterr.Wrap(err, ingesterr.ErrDecodeMalformed, "decode update frame payload")}
			return
		}
		done <- result{update: ports.AccountUpdate{Address: frame.Address, Data: data, Slot: frame.Slot, TxnSignature: frame.TxnSignature}}
	}()

	select {
	case <-ctx.Done():
		s.conn.Close()
		return ports.AccountUpdate{}, ctx.Err()
	case r := <-done:
		return r.update, r.err
	}
}

func (s *Stream) Close() error {
	return s.conn.Close()
}
