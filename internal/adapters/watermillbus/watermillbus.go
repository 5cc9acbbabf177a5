// Package watermillbus implements ports.Bus over an in-process watermill
// gochannel pub/sub, publishing one JSON envelope per message on the
// engine's single outbound channel.
package watermillbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chainfeed/ingestd/internal/ports"
)

// Bus adapts a watermill publisher to ports.Bus.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger *zap.Logger
}

var _ ports.Bus = (*Bus)(nil)

// New builds an in-process bus backed by a buffered gochannel pub/sub.
func New(logger *zap.Logger, bufferSize int) *Bus {
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(bufferSize),
		Persistent:          true,
	}, watermillLogger)
	return &Bus{pubSub: pubSub, logger: logger}
}

// Subscribe exposes the underlying pub/sub subscription for consumers that
// want to fan the published envelopes back out (e.g. a websocket gateway).
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, channel)
}

func (b *Bus) Publish(ctx context.Context, channel string, envelope interface{}) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.New().String(), payload)
	if err := b.pubSub.Publish(channel, msg); err != nil {
		b.logger.Error("failed to publish envelope", zap.Error(err), zap.String("channel", channel))
		return err
	}
	return nil
}

// Close shuts down the underlying pub/sub.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
