// Package natsbus implements ports.Bus over a plain NATS connection with
// reconnect/error handlers wired. JetStream persistence is not used: the
// engine's single outbound channel has no replay requirement, so a core
// NATS publish is sufficient.
package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	nats "github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/chainfeed/ingestd/internal/ports"
)

// Config configures the NATS connection.
type Config struct {
	URL               string
	ConnectionTimeout time.Duration
	MaxReconnects     int
	ReconnectWait     time.Duration
}

// DefaultConfig returns conservative reconnect defaults.
func DefaultConfig() Config {
	return Config{
		URL:               nats.DefaultURL,
		ConnectionTimeout: 5 * time.Second,
		MaxReconnects:     10,
		ReconnectWait:     time.Second,
	}
}

// Bus adapts a *nats.Conn to ports.Bus.
type Bus struct {
	conn   *nats.Conn
	logger *zap.Logger
}

var _ ports.Bus = (*Bus)(nil)

// New connects to NATS using cfg and wires reconnect logging.
func New(cfg Config, logger *zap.Logger) (*Bus, error) {
	opts := []nats.Option{
		nats.Name("ingestd"),
		nats.Timeout(cfg.ConnectionTimeout),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("nats error", zap.Error(err))
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &Bus{conn: conn, logger: logger}, nil
}

func (b *Bus) Publish(ctx context.Context, channel string, envelope interface{}) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(channel, payload); err != nil {
		return fmt.Errorf("failed to publish envelope: %w", err)
	}
	return nil
}

// Close closes the underlying connection without draining it.
func (b *Bus) Close() {
	b.conn.Close()
}
