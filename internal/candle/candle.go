// Package candle buckets a trade batch into OHLC candles across the four
// resolution units and upserts them into the relational store.
package candle

import (
	"context"
	"sync"

	"github.com/chainfeed/ingestd/internal/constants"
	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/metrics"
	"github.com/chainfeed/ingestd/internal/ports"
)

// TradePoint is the minimal shape candle bucketing needs from a trade.
type TradePoint struct {
	Blocktime int64
	Price     float64
	Amount    float64
}

// Aggregator upserts candles for a trade batch. BucketByFirstBlocktime,
// when true (the default), buckets every trade in a batch using the first
// trade's blocktime rather than each trade's own — the bucketing downstream
// history was built on. Set it false to bucket each trade by its own
// blocktime.
type Aggregator struct {
	Store                  ports.Store
	BucketByFirstBlocktime bool
	Metrics                *metrics.Metrics

	// latest memoizes the newest persisted bucket per slug+unit so the
	// prior-close lookup skips the store in the common case. Guarded by mu:
	// per-unit inserts run on detached goroutines.
	mu     sync.Mutex
	latest map[string]ports.Candle
}

// NewAggregator returns an Aggregator with first-blocktime bucketing
// enabled.
func NewAggregator(store ports.Store) *Aggregator {
	return &Aggregator{Store: store, BucketByFirstBlocktime: true, latest: make(map[string]ports.Candle)}
}

// Insert buckets and upserts a trade batch for one resolution unit.
func (a *Aggregator) Insert(ctx context.Context, slug string, trades []TradePoint, unit string) error {
	if len(trades) == 0 {
		return ingesterr.New(ingesterr.ErrInvariantViolation, "candle insert called with an empty trade batch")
	}
	width := constants.CandleWidthSeconds(unit)
	referenceBlocktime := trades[0].Blocktime

	buckets := make(map[int64]*ports.Candle)
	order := make([]int64, 0, 1)

	for _, tr := range trades {
		bt := referenceBlocktime
		if !a.BucketByFirstBlocktime {
			bt = tr.Blocktime
		}
		beginTS := (bt / width) * width
		endTS := beginTS + width

		c, ok := buckets[beginTS]
		if !ok {
			open := a.resolveOpen(ctx, slug, unit, beginTS, buckets, tr.Price)
			c = &ports.Candle{
				Slug: slug, Unit: unit, BeginTS: beginTS, EndTS: endTS,
				Open: open, High: tr.Price, Low: tr.Price, Close: tr.Price, Amount: tr.Amount,
			}
			buckets[beginTS] = c
			order = append(order, beginTS)
			continue
		}
		c.Amount += tr.Amount
		if tr.Price > c.High {
			c.High = tr.Price
		}
		if tr.Price < c.Low {
			c.Low = tr.Price
		}
		c.Close = tr.Price
	}

	out := make([]ports.Candle, 0, len(order))
	for _, ts := range order {
		out = append(out, *buckets[ts])
	}
	a.Metrics.CandleInsert(unit)
	if err := a.Store.UpsertCandles(ctx, out); err != nil {
		return err
	}
	a.rememberLatest(slug, unit, out)
	return nil
}

func cacheKey(slug, unit string) string { return slug + "|" + unit }

func (a *Aggregator) rememberLatest(slug, unit string, candles []ports.Candle) {
	newest := candles[0]
	for _, c := range candles[1:] {
		if c.BeginTS > newest.BeginTS {
			newest = c
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.latest == nil {
		a.latest = make(map[string]ports.Candle)
	}
	if cur, ok := a.latest[cacheKey(slug, unit)]; !ok || newest.BeginTS > cur.BeginTS {
		a.latest[cacheKey(slug, unit)] = newest
	}
}

// resolveOpen finds the opening price for a brand-new bucket: the latest
// in-batch bucket strictly before beginTS, else the memoized latest
// persisted candle, else a store lookup for the latest candle strictly
// before beginTS, else the trade's own price. A store lookup failure is
// swallowed rather than surfaced as a pipeline error — missing history
// never blocks a trade from being bucketed.
func (a *Aggregator) resolveOpen(ctx context.Context, slug, unit string, beginTS int64, buckets map[int64]*ports.Candle, fallback float64) float64 {
	var bestTS int64 = -1
	for ts := range buckets {
		if ts < beginTS && ts > bestTS {
			bestTS = ts
		}
	}
	if bestTS >= 0 {
		return buckets[bestTS].Close
	}

	a.mu.Lock()
	cached, ok := a.latest[cacheKey(slug, unit)]
	a.mu.Unlock()
	if ok && cached.BeginTS < beginTS {
		return cached.Close
	}

	prev, err := a.Store.LatestCandleBefore(ctx, slug, unit, beginTS)
	if err == nil && prev != nil {
		return prev.Close
	}
	return fallback
}
