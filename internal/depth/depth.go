// Package depth reduces a price-sorted sequence of lot orders into a bounded
// top-N depth vector, aggregating entries that share a price.
package depth

// LotOrder is the minimal shape depth aggregation needs: a price and size in
// lots, already sorted by the caller (bids descending, asks ascending).
type LotOrder struct {
	PriceLots uint64
	SizeLots  uint64
}

// Level is one aggregated price level, in both lot and human form.
type Level struct {
	PriceLots uint64  `json:"priceLots"`
	SizeLots  uint64  `json:"sizeLots"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
}

// Convert maps an aggregated (priceLots, sizeLots) pair to human units. Venue
// parsers supply the conversion (OB and GD have distinct formulas).
type Convert func(priceLots, sizeLots uint64) (price, amount float64)

// Aggregate reduces orders (already sorted in the side-appropriate direction)
// into at most depth levels, summing adjacent entries that share a price.
// Traversal stops as soon as depth distinct levels have been accumulated.
func Aggregate(orders []LotOrder, depth int, convert Convert) []Level {
	type lotLevel struct {
		priceLots uint64
		sizeLots  uint64
	}
	levels := make([]lotLevel, 0, depth)

	for _, o := range orders {
		n := len(levels)
		if n > 0 && levels[n-1].priceLots == o.PriceLots {
			levels[n-1].sizeLots += o.SizeLots
		} else if n == depth {
			break
		} else {
			levels = append(levels, lotLevel{priceLots: o.PriceLots, sizeLots: o.SizeLots})
		}
	}

	out := make([]Level, len(levels))
	for i, l := range levels {
		price, amount := convert(l.priceLots, l.sizeLots)
		out[i] = Level{PriceLots: l.priceLots, SizeLots: l.sizeLots, Price: price, Amount: amount}
	}
	return out
}
