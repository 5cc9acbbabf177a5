// Package events writes the ask/bid/fill audit trail. Recorder gives the
// reconciler and trade pipeline an optional place to emit audit rows
// without making the relational store a hard dependency of either.
package events

import (
	"context"

	"github.com/chainfeed/ingestd/internal/ingesterr"
	"github.com/chainfeed/ingestd/internal/ports"
)

// Kind enumerates the audit event types.
const (
	KindAsk  = "ask"
	KindBid  = "bid"
	KindFill = "fill"
)

// Recorder inserts audit events into the store's "events" table.
type Recorder struct {
	Store ports.Store
}

// Record inserts a single audit event. A nil Recorder is a silent no-op:
// the reconciler and trade pipeline call into this without requiring it to
// be configured.
func (r *Recorder) Record(ctx context.Context, kind, user, amount, price, tx, market string, filled bool) error {
	if r == nil || r.Store == nil {
		return nil
	}
	err := r.Store.InsertEvents(ctx, []ports.Event{{
		Kind:   kind,
		User:   user,
		Amount: amount,
		Price:  price,
		Tx:     tx,
		Market: market,
		Filled: filled,
	}})
	if err != nil {
		return ingesterr.Wrap(err, ingesterr.ErrTransientIO, "insert audit event")
	}
	return nil
}

// RecordFill records a maker fill's audit trail entry.
func (r *Recorder) RecordFill(ctx context.Context, user, amount, price, tx, market string) error {
	return r.Record(ctx, KindFill, user, amount, price, tx, market, true)
}

// RecordBid records a resting bid's audit trail entry.
func (r *Recorder) RecordBid(ctx context.Context, user, amount, price, tx, market string) error {
	return r.Record(ctx, KindBid, user, amount, price, tx, market, false)
}

// RecordAsk records a resting ask's audit trail entry.
func (r *Recorder) RecordAsk(ctx context.Context, user, amount, price, tx, market string) error {
	return r.Record(ctx, KindAsk, user, amount, price, tx, market, false)
}
