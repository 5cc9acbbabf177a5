// Package numeric implements the lots<->human fixed-point conversions. All
// intermediate arithmetic happens in arbitrary-precision decimal; only the
// exported result is widened to float64 for transport.
package numeric

import "github.com/shopspring/decimal"

// Factor returns 10^decimals as a Decimal.
func Factor(decimals uint8) decimal.Decimal {
	return decimal.New(1, int32(decimals))
}

// OBReadablePrice converts an OpenBook-style price in lots to a human price:
// price_lots * quote_lot_size * 10^base_decimals / (base_lot_size * 10^quote_decimals).
func OBReadablePrice(priceLots, baseLotSize, quoteLotSize uint64, baseDecimals, quoteDecimals uint8) float64 {
	baseFactor := Factor(baseDecimals)
	quoteFactor := Factor(quoteDecimals)
	num := decimal.NewFromInt(int64(priceLots)).
		Mul(decimal.NewFromInt(int64(quoteLotSize))).
		Mul(baseFactor)
	den := decimal.NewFromInt(int64(baseLotSize)).Mul(quoteFactor)
	if den.IsZero() {
		return 0
	}
	f, _ := num.Div(den).Float64()
	return f
}

// OBReadableQuantity converts an OpenBook-style quantity in lots to human
// units: quantity * base_lot_size / 10^base_decimals.
func OBReadableQuantity(quantity, baseLotSize uint64, baseDecimals uint8) float64 {
	baseFactor := Factor(baseDecimals)
	num := decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromInt(int64(baseLotSize)))
	f, _ := num.Div(baseFactor).Float64()
	return f
}

// GDReadablePrice converts a GigaDex-style price_lots (possibly a fractional
// Decimal already, e.g. total_value_lamports/amount) to a human price. When
// multiplier > 0: lots/multiplier * 10^base_decimals / 10^quote_decimals.
// Otherwise: lots * 10^base_decimals / 10^quote_decimals.
func GDReadablePrice(lots decimal.Decimal, baseDecimals, quoteDecimals uint8, multiplier uint64) float64 {
	baseFactor := Factor(baseDecimals)
	quoteFactor := Factor(quoteDecimals)

	var result decimal.Decimal
	if multiplier > 0 {
		result = lots.Div(decimal.NewFromInt(int64(multiplier))).Mul(baseFactor).Div(quoteFactor)
	} else {
		result = lots.Mul(baseFactor).Div(quoteFactor)
	}
	f, _ := result.Float64()
	return f
}

// GDReadableAmount converts GigaDex amount lots to human units: lots / 10^base_decimals.
func GDReadableAmount(lots uint64, baseDecimals uint8) float64 {
	f, _ := decimal.NewFromInt(int64(lots)).Div(Factor(baseDecimals)).Float64()
	return f
}

// GDPriceLotsFromValue computes price_lots = total_value_lamports / amount
// (decimal division), used for GD trade-log fill derivation.
func GDPriceLotsFromValue(totalValueLamports, amount uint64) decimal.Decimal {
	if amount == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(totalValueLamports)).Div(decimal.NewFromInt(int64(amount)))
}
