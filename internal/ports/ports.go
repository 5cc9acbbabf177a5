// Package ports declares the abstract collaborators the engine depends on:
// the cache, the relational store, the pub/sub bus, the summary API, and
// the chain RPC client. Concrete adapters live under internal/adapters.
package ports

import "context"

// Cache is the key/value + collections store backing the documented cache
// key contract: sets, hashes, strings, and capped lists.
type Cache interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Del(ctx context.Context, keys ...string) error
}

// TradeRecord is the persisted shape of a derived trade.
type TradeRecord struct {
	Slug           string
	OrderID        *string
	MarketAddress  string
	MarketBuy      bool
	AvgPrice       string // decimal.Decimal, serialized
	Amount         string
	AvgPriceLots   string
	AmountLots     string
	Slot           uint64
	Timestamp      int64
	Blocktime      int64
	TransactionSig string
}

// Candle is the persisted OHLCV bucket, keyed by (slug, unit, begin_ts).
type Candle struct {
	Slug     string
	Unit     string
	BeginTS  int64
	EndTS    int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Amount   float64
}

// Event is an audit record for ask/bid/fill activity.
type Event struct {
	Kind   string
	User   string
	Amount string
	Price  string
	Tx     string
	Market string
	Filled bool
}

// Store is the relational persistence boundary.
type Store interface {
	InsertTrades(ctx context.Context, trades []TradeRecord) error
	UpsertCandles(ctx context.Context, candles []Candle) error
	LatestCandleBefore(ctx context.Context, slug, unit string, beforeTS int64) (*Candle, error)
	InsertEvents(ctx context.Context, events []Event) error
}

// Bus is the single-channel pub/sub boundary.
type Bus interface {
	Publish(ctx context.Context, channel string, envelope interface{}) error
}

// Summary is the external summary API's payload.
type Summary struct {
	Change24H float64
	Price24H  float64
	High24H   float64
	Low24H    float64
	Volume24H float64
	Price     float64
	SolPrice  float64
	MarketBuy *bool
}

// SummaryClient fetches the per-market summary from the external API.
type SummaryClient interface {
	GetSummary(ctx context.Context, slug string) (Summary, error)
}

// ChainClient abstracts the upstream RPC transport used to resolve market
// descriptors and fetch initial account snapshots.
type ChainClient interface {
	GetAccount(ctx context.Context, address string) ([]byte, error)
	GetMultipleAccounts(ctx context.Context, addresses []string) ([][]byte, error)

	// FindProgramAddress derives a program-derived address from seeds,
	// mirroring Pubkey::find_program_address; it resolves the
	// buy_order_log/sell_order_log addresses. Returns the derived address
	// only; the bump seed is not needed by any caller.
	FindProgramAddress(seeds [][]byte, programID string) (string, error)
}

// AccountUpdate is one account-change notification off the upstream stream.
type AccountUpdate struct {
	Address      string
	Data         []byte
	Slot         uint64
	TxnSignature string
}

// UpdateStream abstracts the upstream account-change subscription. Recv
// blocks until the next update or a stream-level error; the caller
// reconnects via a fresh Subscribe call on error.
type UpdateStream interface {
	Recv(ctx context.Context) (AccountUpdate, error)
	Close() error
}

// UpdateSource opens a fresh UpdateStream for a given set of account
// addresses owned by the given set of program ids.
type UpdateSource interface {
	Subscribe(ctx context.Context, accounts []string, programIDs []string) (UpdateStream, error)
}
