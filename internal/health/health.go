// Package health emits a periodic liveness heartbeat: a ticker-driven
// monitor loop that logs and counts one tick per interval until cancelled.
package health

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chainfeed/ingestd/internal/metrics"
)

// DefaultInterval is the heartbeat cadence.
const DefaultInterval = 60 * time.Second

// Monitor emits a structured log line and a metrics tick on a fixed
// interval until ctx is cancelled. It carries no health predicate of its
// own; the tick just proves the process is alive.
type Monitor struct {
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration // zero means DefaultInterval
}

// Run blocks, ticking every Interval (default 60s), until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Log.Info("heartbeat")
			m.Metrics.Heartbeat()
		}
	}
}
