package tradepipe

import "github.com/chainfeed/ingestd/internal/ports"

// TradeData is the cached wire shape of a single trade.
type TradeData struct {
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	MarketBuy bool    `json:"marketBuy"`
	Timestamp int64   `json:"timestamp"`
}

// TradePublishData matches TradePublishData: the broadcast form of a trade,
// with lot fields widened to float64 for JSON transport.
type TradePublishData struct {
	Amount       float64 `json:"amount"`
	Price        float64 `json:"price"`
	PriceLots    float64 `json:"priceLots"`
	AmountLots   float64 `json:"amountLots"`
	MarketBuy    bool    `json:"marketBuy"`
	Timestamp    int64   `json:"timestamp"`
}

// TradesPublishData matches TradesPublishData.
type TradesPublishData struct {
	Trades []TradePublishData `json:"trades"`
}

// SummaryPublishData matches SummaryPublishData.
type SummaryPublishData struct {
	Summary ports.Summary `json:"summary"`
}

// PriceData matches PriceData.
type PriceData struct {
	Price     float64 `json:"price"`
	MarketBuy bool    `json:"marketBuy"`
	Change24h float64 `json:"change24H"`
}

// MarketPricesData matches MarketPricesData.
type MarketPricesData struct {
	MarketPrices map[string]PriceData `json:"marketPrices"`
}
