// Package constants holds the engine's tuning values and the on-chain
// program identifiers for both venues.
package constants

import "time"

const (
	PricesKey   = "prices"
	SummaryKey  = "summary"
	ChannelName = "all_data"

	ReconnectBackoff = 100 * time.Millisecond

	StreamDialTimeout    = 10 * time.Second
	StreamRequestTimeout = 10 * time.Second

	SecondsPerMinute = 60
	SecondsPerHour   = SecondsPerMinute * 60
	SecondsPerDay    = SecondsPerHour * 24

	BuyLogPDASeed  = "buy_log_pda_seed"
	SellLogPDASeed = "sell_log_pda_seed"

	GDOrderDepth = 20

	// GDPriceMultiplier is the fixed divisor GigaDex price_lots are scaled by
	// before the base/quote decimal conversion.
	GDPriceMultiplier = 1_000_000

	// RecentTradesCap bounds the recent_trades:{address} cache list.
	RecentTradesCap = 100

	// GDOrderTreeCapacity is the fixed node-array size of the GD order tree.
	GDOrderTreeCapacity = 1000

	// GDBalanceCapacity is the fixed entry-array size of the GD balance table.
	GDBalanceCapacity = 10_000

	// DepthLevels is the maximum number of aggregated price levels per side.
	DepthLevels = 20

	GigadexProgramID  = "833pSHchW8AWggrvx8394HHkH1cMHxdyYcDro8ABYUXC"
	OpenbookProgramID = "srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX"
)

// CandleUnits lists the multi-resolution bucket names in publish order.
var CandleUnits = []string{"1m", "15m", "4h", "1d"}

// CandleWidthSeconds maps a candle unit to its bucket width.
func CandleWidthSeconds(unit string) int64 {
	switch unit {
	case "1m":
		return SecondsPerMinute
	case "15m":
		return SecondsPerMinute * 15
	case "4h":
		return SecondsPerHour * 4
	case "1d":
		return SecondsPerDay
	default:
		return SecondsPerMinute
	}
}
