// Package chainrpc implements ports.ChainClient against a Solana JSON-RPC
// endpoint. No example repo in the corpus carries a Solana SDK (no
// solana-go, no equivalent), so the wire client here is deliberately
// stdlib-only: a thin net/http JSON-RPC envelope plus the public-domain
// program-derived-address algorithm (SHA-256 over seeds + program id +
// a fixed suffix, rejected when the digest lands on the ed25519 curve).
// Everything above this transport layer (decoding, aggregation,
// reconciliation) uses the corpus's third-party stack; this is the one
// boundary where no such library exists to reach for.
package chainrpc

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/chainfeed/ingestd/internal/decode"
	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/ports"
)

// Client is a minimal Solana JSON-RPC client covering the calls this engine
// needs at startup: single and batched account fetches, plus program-derived
// address resolution.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.ChainClient = (*Client)(nil)

// New builds a client against a Solana JSON-RPC endpoint.
func New(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "rpc request failed")
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "decode rpc response")
	}
	if rpcResp.Error != nil {
		return ingesterr.Newf(ingesterr.ErrTransientIO, "rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}

type accountValue struct {
	Data [2]string `json:"data"`
}

type accountInfoResult struct {
	Value *accountValue `json:"value"`
}

func decodeAccountValue(v *accountValue) ([]byte, error) {
	if v == nil {
		return nil, ingesterr.New(ingesterr.ErrDecodeMalformed, "account not found")
	}
	raw, err := base64.StdEncoding.DecodeString(v.Data[0])
	if err != nil {
		return nil, ingesterr.Wrap(err, ingesterr.ErrDecodeMalformed, "decode base64 account data")
	}
	return raw, nil
}

func (c *Client) GetAccount(ctx context.Context, address string) ([]byte, error) {
	var result accountInfoResult
	err := c.call(ctx, "getAccountInfo", []interface{}{
		address,
		map[string]string{"encoding": "base64"},
	}, &result)
	if err != nil {
		return nil, err
	}
	return decodeAccountValue(result.Value)
}

type multiAccountsResult struct {
	Value []*accountValue `json:"value"`
}

func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []string) ([][]byte, error) {
	var result multiAccountsResult
	err := c.call(ctx, "getMultipleAccounts", []interface{}{
		addresses,
		map[string]string{"encoding": "base64"},
	}, &result)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		raw, err := decodeAccountValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

const maxSeedBumpAttempts = 256

var pdaMarker = []byte("ProgramDerivedAddress")

// FindProgramAddress mirrors Pubkey::find_program_address: it appends a
// decreasing bump seed (255 down to 0) to the given seeds until the
// resulting SHA-256 digest does not lie on the ed25519 curve, which is the
// property Solana uses to guarantee a PDA has no private key.
func (c *Client) FindProgramAddress(seeds [][]byte, programID string) (string, error) {
	programBytes, err := decode.AddressBytes(programID)
	if err != nil {
		return "", err
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programBytes[:])
		h.Write(pdaMarker)
		digest := h.Sum(nil)

		if !onCurve(digest) {
			var addr [32]byte
			copy(addr[:], digest)
			return decode.AddressString(addr), nil
		}
	}
	return "", ingesterr.New(ingesterr.ErrInvariantViolation, "unable to find a valid program address")
}

// onCurve reports whether the 32-byte value decodes to a valid compressed
// ed25519 point. Solana accepts a candidate PDA only when this is false.
func onCurve(b []byte) bool {
	if len(b) != 32 {
		return false
	}
	return isValidEdwardsYCoordinate(b)
}
