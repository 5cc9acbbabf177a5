package subscribe

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chainfeed/ingestd/internal/constants"
	"github.com/chainfeed/ingestd/internal/decode"
	"github.com/chainfeed/ingestd/internal/depth"
	"github.com/chainfeed/ingestd/internal/envelope"
	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/marketstate"
	"github.com/chainfeed/ingestd/internal/metrics"
	"github.com/chainfeed/ingestd/internal/numeric"
	"github.com/chainfeed/ingestd/internal/ports"
	"github.com/chainfeed/ingestd/internal/reconcile"
	"github.com/chainfeed/ingestd/internal/tradepipe"
)

// Controller owns startup bootstrap and the steady-state dispatch loop:
// resolve markets, prime state, then route each account update to the
// owning venue handler.
type Controller struct {
	Cache      ports.Cache
	Bus        ports.Bus
	Chain      ports.ChainClient
	Source     ports.UpdateSource
	State      *marketstate.Store
	Reconciler *reconcile.Reconciler
	Pipeline   *tradepipe.Pipeline
	Log        *zap.Logger
	Metrics    *metrics.Metrics

	markets  []*Market
	accounts []string
}

type orderBookSides struct {
	Asks []depth.Level `json:"asks"`
	Bids []depth.Level `json:"bids"`
}

type orderBookSendData struct {
	OrderBook orderBookSides `json:"orderBook"`
	Slot      uint64         `json:"slot"`
}

// Bootstrap loads the configured markets from the cache, resolves every
// venue's on-chain accounts, publishes each market's initial order book, and
// primes marketstate with the GD per-uid snapshots the reconciler diffs
// against on the first runtime update.
func (c *Controller) Bootstrap(ctx context.Context) ([]string, error) {
	slugs, err := c.Cache.SMembers(ctx, "markets")
	if err != nil {
		return nil, ingesterr.Wrap(err, ingesterr.ErrStartup, "load markets set")
	}

	for _, slug := range slugs {
		info, err := c.Cache.HGetAll(ctx, "market_info:"+slug)
		if err != nil {
			return nil, ingesterr.Wrapf(err, ingesterr.ErrStartup, "load market_info:%s", slug)
		}
		if _, ok := info["name"]; !ok {
			continue
		}
		baseDecimals, _ := strconv.ParseUint(info["base_decimals"], 10, 8)
		quoteDecimals, _ := strconv.ParseUint(info["quote_decimals"], 10, 8)

		m := &Market{
			Slug:            slug,
			Name:            info["name"],
			Status:          info["status"],
			BaseDecimals:    uint8(baseDecimals),
			QuoteDecimals:   uint8(quoteDecimals),
			OBMarketAddress: info["ob_market_address"],
			GDMarketAddress: info["gd_market_address"],
		}
		c.markets = append(c.markets, m)
	}

	for _, m := range c.markets {
		c.State.Register(m.Slug)
		if m.OBMarketAddress != "" {
			if err := c.bootstrapOB(ctx, m); err != nil {
				return nil, err
			}
		}
		if m.GDMarketAddress != "" {
			if err := c.bootstrapGD(ctx, m); err != nil {
				return nil, err
			}
		}
	}

	return c.accounts, nil
}

func (c *Controller) bootstrapOB(ctx context.Context, m *Market) error {
	raw, err := c.Chain.GetAccount(ctx, m.OBMarketAddress)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch ob market state for %s", m.Slug)
	}
	desc, err := decode.ParseObMarketState(raw)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "parse ob market state for %s", m.Slug)
	}
	if err := c.resolveOBDecimals(ctx, m, desc); err != nil {
		return err
	}
	m.ob = &obMarketInfo{descriptor: desc}
	c.accounts = append(c.accounts,
		decode.AddressString(desc.Bids),
		decode.AddressString(desc.Asks),
		decode.AddressString(desc.EventQueue))

	asksRaw, err := c.Chain.GetAccount(ctx, decode.AddressString(desc.Asks))
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch ob asks for %s", m.Slug)
	}
	bidsRaw, err := c.Chain.GetAccount(ctx, decode.AddressString(desc.Bids))
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch ob bids for %s", m.Slug)
	}

	asks, err := c.obLevels(asksRaw, false, m, desc)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "decode ob asks for %s", m.Slug)
	}
	bids, err := c.obLevels(bidsRaw, true, m, desc)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "decode ob bids for %s", m.Slug)
	}

	state := c.State.Get(m.Slug)
	state.Bids, state.Asks = bids, asks
	return c.publishOrderBook(ctx, m.Slug, bids, asks, 0)
}

// resolveOBDecimals fetches the market's coin and pc mint accounts and
// overwrites the market's decimal exponents with the mints' own values.
func (c *Controller) resolveOBDecimals(ctx context.Context, m *Market, desc decode.ObMarketDescriptor) error {
	mints, err := c.Chain.GetMultipleAccounts(ctx, []string{
		decode.AddressString(desc.CoinMint),
		decode.AddressString(desc.PcMint),
	})
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch mint accounts for %s", m.Slug)
	}
	if len(mints) != 2 || mints[0] == nil || mints[1] == nil {
		return ingesterr.Newf(ingesterr.ErrStartup, "missing mint accounts for %s", m.Slug)
	}
	baseDecimals, err := decode.ParseMintDecimals(mints[0])
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "parse coin mint for %s", m.Slug)
	}
	quoteDecimals, err := decode.ParseMintDecimals(mints[1])
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "parse pc mint for %s", m.Slug)
	}
	m.BaseDecimals, m.QuoteDecimals = baseDecimals, quoteDecimals
	return nil
}

func (c *Controller) obLevels(raw []byte, descending bool, m *Market, desc decode.ObMarketDescriptor) ([]depth.Level, error) {
	slab, err := decode.NewSlab(raw)
	if err != nil {
		return nil, err
	}
	leaves, err := slab.Traverse(descending)
	if err != nil {
		return nil, err
	}
	orders := make([]depth.LotOrder, len(leaves))
	for i, l := range leaves {
		orders[i] = depth.LotOrder{PriceLots: l.Price(), SizeLots: l.Quantity128()}
	}
	convert := func(priceLots, sizeLots uint64) (float64, float64) {
		price := numeric.OBReadablePrice(priceLots, desc.CoinLotSize, desc.PcLotSize, m.BaseDecimals, m.QuoteDecimals)
		amount := numeric.OBReadableQuantity(sizeLots, desc.CoinLotSize, m.BaseDecimals)
		return price, amount
	}
	return depth.Aggregate(orders, constants.DepthLevels, convert), nil
}

func (c *Controller) bootstrapGD(ctx context.Context, m *Market) error {
	raw, err := c.Chain.GetAccount(ctx, m.GDMarketAddress)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch gd market state for %s", m.Slug)
	}
	desc, err := decode.ParseGdMarketState(raw)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "parse gd market state for %s", m.Slug)
	}

	addrBytes, err := decode.AddressBytes(m.GDMarketAddress)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "decode gd market address for %s", m.Slug)
	}
	buyLog, err := c.Chain.FindProgramAddress([][]byte{addrBytes[:], []byte(constants.BuyLogPDASeed)}, constants.GigadexProgramID)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "derive buy log address for %s", m.Slug)
	}
	sellLog, err := c.Chain.FindProgramAddress([][]byte{addrBytes[:], []byte(constants.SellLogPDASeed)}, constants.GigadexProgramID)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "derive sell log address for %s", m.Slug)
	}
	m.gd = &gdMarketInfo{descriptor: desc, buyOrderLog: buyLog, sellOrderLog: sellLog}
	c.accounts = append(c.accounts,
		decode.AddressString(desc.Bids),
		decode.AddressString(desc.Asks),
		decode.AddressString(desc.Balances),
		buyLog, sellLog)

	asksRaw, err := c.Chain.GetAccount(ctx, decode.AddressString(desc.Asks))
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch gd asks for %s", m.Slug)
	}
	bidsRaw, err := c.Chain.GetAccount(ctx, decode.AddressString(desc.Bids))
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "fetch gd bids for %s", m.Slug)
	}
	asksOrders, err := decode.ParseGdOrderTree(asksRaw)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "decode gd asks for %s", m.Slug)
	}
	bidsOrders, err := decode.ParseGdOrderTree(bidsRaw)
	if err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrStartup, "decode gd bids for %s", m.Slug)
	}

	state := c.State.Get(m.Slug)
	state.Asks = c.gdLevels(asksOrders, false, m)
	state.Bids = c.gdLevels(bidsOrders, true, m)
	state.PrevUIDAsks = groupByUID(asksOrders)
	state.PrevUIDBids = groupByUID(bidsOrders)

	return c.publishOrderBook(ctx, m.Slug, state.Bids, state.Asks, 0)
}

func gdConvert(m *Market) depth.Convert {
	return func(priceLots, sizeLots uint64) (float64, float64) {
		price := numeric.GDReadablePrice(decimal.NewFromInt(int64(priceLots)), m.BaseDecimals, m.QuoteDecimals, constants.GDPriceMultiplier)
		amount := numeric.GDReadableAmount(sizeLots, m.BaseDecimals)
		return price, amount
	}
}

func (c *Controller) gdLevels(orders []decode.GdOrder, isBid bool, m *Market) []depth.Level {
	sorted := append([]decode.GdOrder(nil), orders...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PriceLots < sorted[j].PriceLots })
	if isBid {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	}
	lots := make([]depth.LotOrder, len(sorted))
	for i, o := range sorted {
		lots[i] = depth.LotOrder{PriceLots: o.PriceLots, SizeLots: o.AmountLots}
	}
	return depth.Aggregate(lots, constants.DepthLevels, gdConvert(m))
}

func groupByUID(orders []decode.GdOrder) map[uint64][]marketstate.Order {
	out := make(map[uint64][]marketstate.Order)
	for _, o := range orders {
		out[o.UID] = append(out[o.UID], marketstate.Order{UID: o.UID, PriceLots: o.PriceLots, AmountLots: o.AmountLots})
	}
	return out
}

func (c *Controller) publishOrderBook(ctx context.Context, slug string, bids, asks []depth.Level, slot uint64) error {
	data := orderBookSendData{OrderBook: orderBookSides{Asks: asks, Bids: bids}, Slot: slot}
	b, err := json.Marshal(data)
	if err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrInvariantViolation, "marshal order book")
	}
	if err := c.Cache.Set(ctx, "compressed_orderbook:"+slug, string(b)); err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "cache order book for %s", slug)
	}
	return c.Bus.Publish(ctx, constants.ChannelName, envelope.NewGeneral(slug, data, nil))
}

// Run subscribes to account updates for every account gathered by Bootstrap
// and dispatches them to the matching market's OB or GD handler, one update
// at a time, reconnecting with a fixed backoff on stream errors. It
// returns only when ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stream, err := c.Source.Subscribe(ctx, c.accounts, []string{constants.OpenbookProgramID, constants.GigadexProgramID})
		if err != nil {
			c.Log.Error("subscribe failed, retrying", zap.Error(err))
			c.Metrics.Reconnect()
			if !sleepBackoff(ctx) {
				return ctx.Err()
			}
			continue
		}
		c.Log.Info("subscribed", zap.Int("accounts", len(c.accounts)))

		for {
			update, err := stream.Recv(ctx)
			if err != nil {
				c.Log.Error("stream error, reconnecting", zap.Error(err))
				_ = stream.Close()
				c.Metrics.Reconnect()
				if !sleepBackoff(ctx) {
					return ctx.Err()
				}
				break
			}
			if err := c.dispatch(ctx, update); err != nil {
				c.Log.Error("dispatch failed", zap.String("address", update.Address), zap.Error(err))
			}
		}
	}
}

func sleepBackoff(ctx context.Context) bool {
	t := time.NewTimer(constants.ReconnectBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Controller) dispatch(ctx context.Context, update ports.AccountUpdate) error {
	for _, m := range c.markets {
		if m.IsOBAccount(update.Address) {
			err := c.handleOBUpdate(ctx, m, update)
			if ingesterr.Is(err, ingesterr.ErrDecodeMalformed) {
				c.Metrics.ObDecodeFailure(update.Address)
			}
			return err
		}
		if m.IsGDAccount(update.Address) {
			err := c.handleGDUpdate(ctx, m, update)
			if ingesterr.Is(err, ingesterr.ErrDecodeMalformed) {
				c.Metrics.GdDecodeFailure(update.Address)
			}
			return err
		}
	}
	return nil
}

func (c *Controller) handleOBUpdate(ctx context.Context, m *Market, update ports.AccountUpdate) error {
	desc := m.ob.descriptor
	state := c.State.Get(m.Slug)

	if addrEq(desc.EventQueue, update.Address) {
		events, err := decode.ParseObEventQueue(update.Data)
		if err != nil {
			return err
		}
		params := tradepipe.OBMarketParams{
			Slug: m.Slug, MarketAddress: m.OBMarketAddress,
			BaseDecimals: m.BaseDecimals, QuoteDecimals: m.QuoteDecimals,
			BaseLotSize: desc.CoinLotSize, QuoteLotSize: desc.PcLotSize,
		}
		now := time.Now().Unix()
		var trades []tradepipe.Trade
		for _, ev := range events {
			trade, ok := tradepipe.DeriveOBFill(ev, params, update.Slot, update.TxnSignature, now, c.State)
			if ok {
				trades = append(trades, *trade)
			}
		}
		if len(trades) == 0 {
			return nil
		}
		return c.Pipeline.Process(ctx, trades)
	}

	isBid := addrEq(desc.Bids, update.Address)
	levels, err := c.obLevels(update.Data, isBid, m, desc)
	if err != nil {
		return err
	}
	if isBid {
		state.Bids = levels
	} else {
		state.Asks = levels
	}
	return c.publishOrderBook(ctx, m.Slug, state.Bids, state.Asks, update.Slot)
}

func (c *Controller) handleGDUpdate(ctx context.Context, m *Market, update ports.AccountUpdate) error {
	desc := m.gd.descriptor
	state := c.State.Get(m.Slug)

	switch {
	case addrEq(desc.Bids, update.Address), addrEq(desc.Asks, update.Address):
		isBid := addrEq(desc.Bids, update.Address)
		orders, err := decode.ParseGdOrderTree(update.Data)
		if err != nil {
			return err
		}
		current := groupByUID(orders)
		var prior *map[uint64][]marketstate.Order
		if isBid {
			prior = &state.PrevUIDBids
		} else {
			prior = &state.PrevUIDAsks
		}
		if err := c.Reconciler.ReconcileOrders(ctx, m.Slug, isBid, update.Slot, prior, current, reconcile.Convert(gdConvert(m))); err != nil {
			return err
		}

		levels := c.gdLevels(orders, isBid, m)
		if isBid {
			state.Bids = levels
		} else {
			state.Asks = levels
		}
		return c.publishOrderBook(ctx, m.Slug, state.Bids, state.Asks, update.Slot)

	case addrEq(desc.Balances, update.Address):
		raw, err := decode.ParseGdBalances(update.Data)
		if err != nil {
			return err
		}
		current := make(map[uint64]marketstate.Balance, len(raw))
		for _, b := range raw {
			// GDReadablePrice with base_decimals=0 reduces to lamports /
			// 10^quote_decimals, the same division the lamports field needs.
			current[b.UID] = marketstate.Balance{
				Lamports: numeric.GDReadablePrice(decimal.NewFromInt(int64(b.Lamports)), 0, m.QuoteDecimals, 0),
				Lots:     numeric.GDReadableAmount(b.AmountLots, m.BaseDecimals),
			}
		}
		return c.Reconciler.ReconcileBalances(ctx, m.Slug, update.Slot, &state.PrevBalances, current)

	case update.Address == m.gd.buyOrderLog, update.Address == m.gd.sellOrderLog:
		isBuyLog := update.Address == m.gd.buyOrderLog
		log, err := decode.ParseGdTradeLog(update.Data)
		if err != nil {
			return err
		}
		params := tradepipe.GDMarketParams{
			Slug: m.Slug, MarketAddress: m.GDMarketAddress,
			BaseDecimals: m.BaseDecimals, QuoteDecimals: m.QuoteDecimals,
		}
		trade, ok := tradepipe.DeriveGDFill(log, params, isBuyLog, update.Slot, update.TxnSignature, time.Now().Unix())
		if !ok {
			return nil
		}
		return c.Pipeline.Process(ctx, []tradepipe.Trade{*trade})
	}
	return nil
}
