package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainfeed/ingestd/internal/ports"
)

type fakeStore struct {
	inserted []ports.Event
}

func (f *fakeStore) InsertTrades(ctx context.Context, trades []ports.TradeRecord) error { return nil }
func (f *fakeStore) UpsertCandles(ctx context.Context, candles []ports.Candle) error    { return nil }
func (f *fakeStore) LatestCandleBefore(ctx context.Context, slug, unit string, beforeTS int64) (*ports.Candle, error) {
	return nil, nil
}
func (f *fakeStore) InsertEvents(ctx context.Context, events []ports.Event) error {
	f.inserted = append(f.inserted, events...)
	return nil
}

func TestRecordFillInsertsAFilledEvent(t *testing.T) {
	store := &fakeStore{}
	r := &Recorder{Store: store}

	err := r.RecordFill(context.Background(), "uid-1", "1.5", "2.002", "sig123", "sol-usdc")
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, KindFill, store.inserted[0].Kind)
	assert.True(t, store.inserted[0].Filled)
	assert.Equal(t, "sig123", store.inserted[0].Tx)
}

func TestRecordBidAndAskAreNotMarkedFilled(t *testing.T) {
	store := &fakeStore{}
	r := &Recorder{Store: store}

	require.NoError(t, r.RecordBid(context.Background(), "1", "1", "2", "", "sol-usdc"))
	require.NoError(t, r.RecordAsk(context.Background(), "2", "1", "2", "", "sol-usdc"))

	require.Len(t, store.inserted, 2)
	assert.Equal(t, KindBid, store.inserted[0].Kind)
	assert.False(t, store.inserted[0].Filled)
	assert.Equal(t, KindAsk, store.inserted[1].Kind)
}

func TestNilRecorderIsANoOp(t *testing.T) {
	var r *Recorder
	err := r.Record(context.Background(), KindFill, "u", "1", "2", "tx", "m", true)
	require.NoError(t, err)
}
