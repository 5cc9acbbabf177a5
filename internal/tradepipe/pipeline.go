package tradepipe

import (
	"context"
	"encoding/json"

	"github.com/chainfeed/ingestd/internal/candle"
	"github.com/chainfeed/ingestd/internal/constants"
	"github.com/chainfeed/ingestd/internal/envelope"
	"github.com/chainfeed/ingestd/internal/events"
	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/metrics"
	"github.com/chainfeed/ingestd/internal/ports"
)

// Pipeline runs the per-trade-batch fan-out. It owns no state of its own:
// every dependency is an external port, so each step's failure mode maps
// directly onto the transient-I/O recovery policy.
type Pipeline struct {
	Cache   ports.Cache
	Store   ports.Store
	Bus     ports.Bus
	Summary ports.SummaryClient
	Candle  *candle.Aggregator
	Metrics *metrics.Metrics
	Events  *events.Recorder
}

func f64(d interface{ Float64() (float64, bool) }) float64 {
	v, _ := d.Float64()
	return v
}

func (t Trade) toRecord() ports.TradeRecord {
	return ports.TradeRecord{
		Slug:           t.Slug,
		OrderID:        t.OrderID,
		MarketAddress:  t.MarketAddress,
		MarketBuy:      t.MarketBuy,
		AvgPrice:       t.AvgPrice.String(),
		Amount:         t.Amount.String(),
		AvgPriceLots:   t.AvgPriceLots.String(),
		AmountLots:     t.AmountLots.String(),
		Slot:           t.Slot,
		Timestamp:      t.Timestamp,
		Blocktime:      t.Blocktime,
		TransactionSig: t.TransactionSig,
	}
}

func (t Trade) toTradeData() TradeData {
	return TradeData{
		Price:     f64(t.AvgPrice),
		Amount:    f64(t.Amount),
		MarketBuy: t.MarketBuy,
		Timestamp: t.Timestamp,
	}
}

func (t Trade) toPublishData() TradePublishData {
	return TradePublishData{
		Amount:     f64(t.Amount),
		Price:      f64(t.AvgPrice),
		PriceLots:  f64(t.AvgPriceLots),
		AmountLots: f64(t.AmountLots),
		MarketBuy:  t.MarketBuy,
		Timestamp:  t.Timestamp,
	}
}

// Process runs the fan-out for one market's trade batch: last-trade cache
// write, recent-trades trim/push, trade broadcast, DB insert, summary
// refresh, and shared prices update, all awaited in that order. The
// per-unit candle inserts are launched as detached goroutines and do not
// block Process's return.
func (p *Pipeline) Process(ctx context.Context, trades []Trade) error {
	if len(trades) == 0 {
		return ingesterr.New(ingesterr.ErrInvariantViolation, "trade pipeline invoked with an empty batch")
	}
	first := trades[0]
	last := trades[len(trades)-1]
	slug := first.Slug
	address := first.MarketAddress

	// Step 1: last_trade_data:{slug}
	lastTradeJSON, err := json.Marshal(last.toTradeData())
	if err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrInvariantViolation, "marshal last trade data")
	}
	if err := p.Cache.Set(ctx, "last_trade_data:"+slug, string(lastTradeJSON)); err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "set last_trade_data:%s", slug)
	}

	// Step 2: recent_trades:{address}, capped at constants.RecentTradesCap.
	if err := p.pushRecentTrades(ctx, address, trades); err != nil {
		return err
	}

	// Step 3: publish TradesPublishData.
	publishTrades := make([]TradePublishData, len(trades))
	for i, tr := range trades {
		publishTrades[i] = tr.toPublishData()
	}
	if err := p.Bus.Publish(ctx, constants.ChannelName, envelope.NewGeneral(slug, TradesPublishData{Trades: publishTrades}, first.OrderID)); err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "publish trades batch")
	}

	// Step 4: insert trades (awaited).
	records := make([]ports.TradeRecord, len(trades))
	for i, tr := range trades {
		records[i] = tr.toRecord()
		p.Metrics.TradeProcessed(tr.Slug)
		_ = p.Events.RecordFill(ctx, "", tr.Amount.String(), tr.AvgPrice.String(), tr.TransactionSig, tr.Slug)
	}
	if err := p.Store.InsertTrades(ctx, records); err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "insert trades")
	}

	// Step 5: summary fetch, cache, publish (awaited).
	summary, err := p.Summary.GetSummary(ctx, slug)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "fetch summary for %s", slug)
	}
	summaryJSON, err := json.Marshal(SummaryPublishData{Summary: summary})
	if err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrInvariantViolation, "marshal summary")
	}
	if err := p.Cache.Set(ctx, constants.SummaryKey+":"+slug, string(summaryJSON)); err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "cache summary for %s", slug)
	}
	if err := p.Bus.Publish(ctx, constants.ChannelName, envelope.NewGeneral(slug, SummaryPublishData{Summary: summary}, nil)); err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "publish summary")
	}

	// Step 6: shared prices cache, read-modify-write, publish (awaited).
	if err := p.updatePrices(ctx, slug, last.toTradeData(), summary); err != nil {
		return err
	}

	// Step 7: fire-and-forget candle inserts, one per resolution.
	points := make([]candle.TradePoint, len(trades))
	for i, tr := range trades {
		points[i] = candle.TradePoint{Blocktime: tr.Blocktime, Price: f64(tr.AvgPrice), Amount: f64(tr.Amount)}
	}
	for _, unit := range constants.CandleUnits {
		unit := unit
		go func() {
			_ = p.Candle.Insert(context.Background(), slug, points, unit)
		}()
	}

	return nil
}

func (p *Pipeline) pushRecentTrades(ctx context.Context, address string, trades []Trade) error {
	key := "recent_trades:" + address
	old, err := p.Cache.LRange(ctx, key, 0, -1)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "read %s", key)
	}

	excess := len(old) + len(trades) - constants.RecentTradesCap
	if excess > 0 {
		keep := len(old) - excess
		if keep <= 0 {
			if err := p.Cache.Del(ctx, key); err != nil {
				return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "clear %s", key)
			}
		} else if err := p.Cache.LTrim(ctx, key, 0, int64(keep-1)); err != nil {
			return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "trim %s", key)
		}
	}

	serialized := make([]string, len(trades))
	for i, tr := range trades {
		b, err := json.Marshal(tr.toTradeData())
		if err != nil {
			return ingesterr.Wrap(err, ingesterr.ErrInvariantViolation, "marshal recent trade")
		}
		serialized[i] = string(b)
	}
	if err := p.Cache.LPush(ctx, key, serialized...); err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "push %s", key)
	}
	return nil
}

func (p *Pipeline) updatePrices(ctx context.Context, slug string, last TradeData, summary ports.Summary) error {
	raw, err := p.Cache.Get(ctx, constants.PricesKey)
	var pricesData MarketPricesData
	if err == nil && raw != "" {
		if jsonErr := json.Unmarshal([]byte(raw), &pricesData); jsonErr != nil {
			return ingesterr.Wrap(jsonErr, ingesterr.ErrInvariantViolation, "parse prices cache entry")
		}
	}
	if pricesData.MarketPrices == nil {
		pricesData.MarketPrices = make(map[string]PriceData)
	}
	pricesData.MarketPrices[slug] = PriceData{Price: last.Price, MarketBuy: last.MarketBuy, Change24h: summary.Change24H}

	b, err := json.Marshal(pricesData)
	if err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrInvariantViolation, "marshal prices cache entry")
	}
	if err := p.Cache.Set(ctx, constants.PricesKey, string(b)); err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "write prices cache entry")
	}
	// This envelope carries the literal market field "general" rather than
	// a trading slug; downstream consumers key on it that way.
	if err := p.Bus.Publish(ctx, constants.ChannelName, envelope.NewGeneral("general", pricesData, nil)); err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "publish prices update")
	}
	return nil
}
