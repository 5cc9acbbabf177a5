// Package tradepipe derives trade records from decoded fill events (OB and
// GD) and fans them out to the cache, bus, store, and summary API.
package tradepipe

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/chainfeed/ingestd/internal/constants"
	"github.com/chainfeed/ingestd/internal/decode"
	"github.com/chainfeed/ingestd/internal/marketstate"
	"github.com/chainfeed/ingestd/internal/numeric"
)

// Trade is the working representation of a derived fill, carrying decimal
// values through the pipeline; toRecord narrows it to ports.TradeRecord's
// string-serialized form at the persistence boundary.
type Trade struct {
	Slug           string
	MarketAddress  string
	MarketBuy      bool
	AvgPrice       decimal.Decimal
	Amount         decimal.Decimal
	AvgPriceLots   decimal.Decimal
	AmountLots     decimal.Decimal
	Slot           uint64
	Timestamp      int64
	Blocktime      int64
	TransactionSig string
	OrderID        *string
}

func orderIDString(id [2]uint64) string {
	hi := new(big.Int).SetUint64(id[1])
	lo := new(big.Int).SetUint64(id[0])
	full := new(big.Int).Lsh(hi, 64)
	full.Or(full, lo)
	return full.String()
}

// OBMarketParams is the subset of an OB market descriptor fill derivation
// needs.
type OBMarketParams struct {
	Slug          string
	MarketAddress string
	BaseDecimals  uint8
	QuoteDecimals uint8
	BaseLotSize   uint64
	QuoteLotSize  uint64
}

// DeriveOBFill derives a trade from a maker fill event. It returns
// (nil, false) for taker fills and order ids already seen this run; the
// dedup set is consulted and updated via store.AlreadyFilled so the per-run
// deduplication invariant lives in exactly one place.
func DeriveOBFill(ev decode.ObFillEvent, market OBMarketParams, slot uint64, txnSig string, now int64, store *marketstate.Store) (*Trade, bool) {
	if !ev.IsMaker {
		return nil, false
	}
	if store.AlreadyFilled(ev.OrderID) {
		return nil, false
	}

	baseFactor := numeric.Factor(market.BaseDecimals)
	quoteFactor := numeric.Factor(market.QuoteDecimals)

	var raw decimal.Decimal
	var counterQty uint64
	if ev.IsBid {
		raw = decimal.NewFromInt(int64(ev.NativeQtyPaid)).Add(decimal.NewFromInt(int64(ev.NativeFeeOrRebate)))
		counterQty = ev.NativeQtyReleased
	} else {
		raw = decimal.NewFromInt(int64(ev.NativeQtyReleased)).Sub(decimal.NewFromInt(int64(ev.NativeFeeOrRebate)))
		counterQty = ev.NativeQtyPaid
	}

	counterQtyDec := decimal.NewFromInt(int64(counterQty))
	var price decimal.Decimal
	denom := quoteFactor.Mul(counterQtyDec)
	if !denom.IsZero() {
		price = raw.Mul(baseFactor).Div(denom)
	}

	priceLots := decimal.Zero
	if !baseFactor.IsZero() && market.QuoteLotSize != 0 {
		priceLots = price.Mul(quoteFactor).
			Mul(decimal.NewFromInt(int64(market.BaseLotSize))).
			Div(baseFactor).
			Div(decimal.NewFromInt(int64(market.QuoteLotSize))).
			Round(0)
	}

	size := decimal.Zero
	if !baseFactor.IsZero() {
		size = counterQtyDec.Div(baseFactor)
	}
	sizeLots := decimal.Zero
	if market.QuoteLotSize != 0 {
		sizeLots = size.Mul(quoteFactor).Div(decimal.NewFromInt(int64(market.QuoteLotSize)))
	}

	orderID := orderIDString(ev.OrderID)

	return &Trade{
		Slug:           market.Slug,
		MarketAddress:  market.MarketAddress,
		MarketBuy:      ev.IsBid,
		AvgPrice:       price,
		Amount:         size,
		AvgPriceLots:   priceLots,
		AmountLots:     sizeLots,
		Slot:           slot,
		Timestamp:      now,
		Blocktime:      now,
		TransactionSig: txnSig,
		OrderID:        &orderID,
	}, true
}

// GDMarketParams is the subset of a GD market descriptor fill derivation
// needs.
type GDMarketParams struct {
	Slug          string
	MarketAddress string
	BaseDecimals  uint8
	QuoteDecimals uint8
}

// DeriveGDFill derives a trade from a buy/sell log update. amount==0
// entries are semantic no-ops and yield (nil, false).
func DeriveGDFill(log decode.GdTradeLog, market GDMarketParams, isBuyLog bool, slot uint64, txnSig string, now int64) (*Trade, bool) {
	if log.Amount == 0 {
		return nil, false
	}

	priceLots := numeric.GDPriceLotsFromValue(log.TotalValueLamports, log.Amount)
	price := numeric.GDReadablePrice(priceLots, market.BaseDecimals, market.QuoteDecimals, constants.GDPriceMultiplier)
	amount := numeric.GDReadableAmount(log.Amount, market.BaseDecimals)

	return &Trade{
		Slug:           market.Slug,
		MarketAddress:  market.MarketAddress,
		MarketBuy:      isBuyLog,
		AvgPrice:       decimal.NewFromFloat(price),
		Amount:         decimal.NewFromFloat(amount),
		AvgPriceLots:   priceLots,
		AmountLots:     decimal.NewFromInt(int64(log.Amount)),
		Slot:           slot,
		Timestamp:      now,
		Blocktime:      now,
		TransactionSig: txnSig,
		OrderID:        nil,
	}, true
}
