// Package reconcile diffs a market's prior and current per-user snapshots
// and emits the minimal set of pub/sub deltas. It is the only component
// permitted to mutate the prior-snapshot maps held in marketstate.Market.
package reconcile

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/chainfeed/ingestd/internal/constants"
	"github.com/chainfeed/ingestd/internal/envelope"
	"github.com/chainfeed/ingestd/internal/events"
	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/marketstate"
	"github.com/chainfeed/ingestd/internal/ports"
)

// OrderDTO is one order in its wire form, matching GdOrderData.
type OrderDTO struct {
	Price      float64 `json:"price"`
	Amount     float64 `json:"amount"`
	PriceLots  uint64  `json:"priceLots"`
	AmountLots uint64  `json:"amountLots"`
}

// bidsPayload matches GdBidsData; asksPayload matches GdAsksData. The field
// name differs by side even though the shape is identical, so the two are
// kept distinct rather than unified under one generic tag.
type bidsPayload struct {
	UIDBids []OrderDTO `json:"uidBids"`
	Slot    uint64     `json:"slot"`
}

type asksPayload struct {
	UIDAsks []OrderDTO `json:"uidAsks"`
	Slot    uint64     `json:"slot"`
}

// balancePayload matches GdBalanceData.
type balancePayload struct {
	ClaimableBalance marketstate.Balance `json:"claimableBalance"`
	Slot             uint64              `json:"slot"`
}

// Convert maps a raw order's lots to human price/amount for a given market's
// decimals/multiplier (depth.Convert's shape, reused here for orders).
type Convert func(priceLots, amountLots uint64) (price, amount float64)

// Reconciler publishes order/balance deltas and keeps the cache hashes
// uid_bids:{slug}, uid_asks:{slug}, and balances:{slug} in sync.
type Reconciler struct {
	Cache  ports.Cache
	Bus    ports.Bus
	Events *events.Recorder
}

func toDTOs(orders []marketstate.Order, convert Convert) []OrderDTO {
	out := make([]OrderDTO, len(orders))
	for i, o := range orders {
		price, amount := convert(o.PriceLots, o.AmountLots)
		out[i] = OrderDTO{Price: price, Amount: amount, PriceLots: o.PriceLots, AmountLots: o.AmountLots}
	}
	return out
}

func ordersEqual(a, b []marketstate.Order) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ReconcileOrders handles a bids/asks update for one side of one market:
// for every uid whose order list changed (including uids only present in
// the prior map, which get an empty-list "cancellation" event), publish a
// uid-addressed envelope; then replace the cache hash and the prior map in
// full.
func (r *Reconciler) ReconcileOrders(ctx context.Context, slug string, isBid bool, slot uint64, prior *map[uint64][]marketstate.Order, current map[uint64][]marketstate.Order, convert Convert) error {
	kind := "uidAsks"
	cacheKey := "uid_asks:" + slug
	if isBid {
		kind = "uidBids"
		cacheKey = "uid_bids:" + slug
	}

	changedUIDs := make([]uint64, 0, len(current))
	for uid, orders := range current {
		if priorOrders, ok := (*prior)[uid]; !ok || !ordersEqual(priorOrders, orders) {
			changedUIDs = append(changedUIDs, uid)
		}
	}
	emptiedUIDs := make([]uint64, 0)
	for uid := range *prior {
		if _, ok := current[uid]; !ok {
			emptiedUIDs = append(emptiedUIDs, uid)
		}
	}

	publishOrders := func(uid uint64, orders []marketstate.Order) error {
		dtos := toDTOs(orders, convert)
		var data interface{}
		if isBid {
			data = bidsPayload{UIDBids: dtos, Slot: slot}
		} else {
			data = asksPayload{UIDAsks: dtos, Slot: slot}
		}
		return r.Bus.Publish(ctx, constants.ChannelName, envelope.NewForUID(slug, data, uid))
	}

	auditKind := events.KindAsk
	if isBid {
		auditKind = events.KindBid
	}

	for _, uid := range changedUIDs {
		if err := publishOrders(uid, current[uid]); err != nil {
			return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "publish %s delta for uid %d", kind, uid)
		}
		if orders := current[uid]; len(orders) > 0 {
			top := orders[0]
			price, amount := convert(top.PriceLots, top.AmountLots)
			_ = r.Events.Record(ctx, auditKind, uidKey(uid), formatFloat(amount), formatFloat(price), "", slug, false)
		}
	}
	for _, uid := range emptiedUIDs {
		if err := publishOrders(uid, nil); err != nil {
			return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "publish %s cancellation for uid %d", kind, uid)
		}
	}

	if err := r.Cache.Del(ctx, cacheKey); err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "clear cache hash %s", cacheKey)
	}
	if len(current) > 0 {
		fields := make(map[string]string, len(current))
		for uid, orders := range current {
			var data interface{}
			dtos := toDTOs(orders, convert)
			if isBid {
				data = bidsPayload{UIDBids: dtos, Slot: slot}
			} else {
				data = asksPayload{UIDAsks: dtos, Slot: slot}
			}
			b, err := json.Marshal(data)
			if err != nil {
				return ingesterr.Wrapf(err, ingesterr.ErrInvariantViolation, "marshal %s payload for uid %d", kind, uid)
			}
			fields[uidKey(uid)] = string(b)
		}
		if err := r.Cache.HSet(ctx, cacheKey, fields); err != nil {
			return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "refresh cache hash %s", cacheKey)
		}
	}

	*prior = current
	return nil
}

// ReconcileBalances handles a balances update: only uids present in both
// maps with a changed value get an event; newly appearing or disappearing
// uids are silent (balances are periodically full-refreshed downstream).
func (r *Reconciler) ReconcileBalances(ctx context.Context, slug string, slot uint64, prior *map[uint64]marketstate.Balance, current map[uint64]marketstate.Balance) error {
	cacheKey := "balances:" + slug

	for uid, bal := range current {
		if priorBal, ok := (*prior)[uid]; ok && priorBal != bal {
			data := balancePayload{ClaimableBalance: bal, Slot: slot}
			if err := r.Bus.Publish(ctx, constants.ChannelName, envelope.NewForUID(slug, data, uid)); err != nil {
				return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "publish balance delta for uid %d", uid)
			}
		}
	}

	if err := r.Cache.Del(ctx, cacheKey); err != nil {
		return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "clear cache hash %s", cacheKey)
	}
	if len(current) > 0 {
		fields := make(map[string]string, len(current))
		for uid, bal := range current {
			b, err := json.Marshal(balancePayload{ClaimableBalance: bal, Slot: slot})
			if err != nil {
				return ingesterr.Wrapf(err, ingesterr.ErrInvariantViolation, "marshal balance payload for uid %d", uid)
			}
			fields[uidKey(uid)] = string(b)
		}
		if err := r.Cache.HSet(ctx, cacheKey, fields); err != nil {
			return ingesterr.Wrapf(err, ingesterr.ErrTransientIO, "refresh cache hash %s", cacheKey)
		}
	}

	*prior = current
	return nil
}

func uidKey(uid uint64) string {
	return strconv.FormatUint(uid, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
