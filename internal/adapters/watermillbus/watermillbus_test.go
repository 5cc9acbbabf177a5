package watermillbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusPublishDeliversToSubscriber(t *testing.T) {
	b := New(zap.NewNop(), 8)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "all_data")
	require.NoError(t, err)

	type payload struct {
		Type   string `json:"type"`
		Market string `json:"market"`
	}
	require.NoError(t, b.Publish(ctx, "all_data", payload{Type: "general", Market: "sol-usdc"}))

	select {
	case msg := <-msgs:
		var got payload
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		require.Equal(t, "sol-usdc", got.Market)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}
