package pgstore

import "gorm.io/gorm"

// Trade is the persisted row for a derived fill.
type Trade struct {
	gorm.Model
	Slug           string `gorm:"index:idx_trade_slug_slot;not null"`
	OrderID        string `gorm:"index"`
	MarketAddress  string `gorm:"not null"`
	MarketBuy      bool
	AvgPrice       string `gorm:"not null"`
	Amount         string `gorm:"not null"`
	AvgPriceLots   string
	AmountLots     string
	Slot           uint64 `gorm:"index:idx_trade_slug_slot"`
	Timestamp      int64  `gorm:"index"`
	Blocktime      int64
	TransactionSig string `gorm:"index"`
}

func (Trade) TableName() string { return "market_trades" }

// Candle is the persisted OHLCV bucket, unique per (slug, unit, begin_ts).
type Candle struct {
	gorm.Model
	Slug    string `gorm:"uniqueIndex:idx_candle_slug_unit_begin;not null"`
	Unit    string `gorm:"uniqueIndex:idx_candle_slug_unit_begin;not null"`
	BeginTS int64  `gorm:"uniqueIndex:idx_candle_slug_unit_begin;not null"`
	EndTS   int64
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Amount  float64
}

func (Candle) TableName() string { return "market_candles" }

// Event is the audit row for ask/bid/fill activity.
type Event struct {
	gorm.Model
	Kind   string `gorm:"index"`
	User   string `gorm:"index"`
	Amount string
	Price  string
	Tx     string
	Market string `gorm:"index"`
	Filled bool
}

func (Event) TableName() string { return "events" }
