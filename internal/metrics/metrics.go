// Package metrics exposes the engine's Prometheus counters and gauges as
// one struct of bound instruments, constructed once against a shared
// registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters the decode-and-dispatch engine emits: decode
// failures per venue, trades processed, candle inserts, and stream
// reconnects. A nil *Metrics is safe to call into (every method no-ops),
// so components can take an optional Metrics without forcing callers to
// wire a registry in tests.
type Metrics struct {
	DecodeFailures  *prometheus.CounterVec
	TradesProcessed *prometheus.CounterVec
	CandleInserts   *prometheus.CounterVec
	Reconnects      prometheus.Counter
	Heartbeats      prometheus.Counter
}

// New registers the engine's instruments against reg and returns the bundle.
// reg accepts the narrower Registerer interface so callers can pass either
// a *prometheus.Registry or the default global registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestd_decode_failures_total",
			Help: "Decode failures by venue and account kind.",
		}, []string{"venue", "account"}),
		TradesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestd_trades_processed_total",
			Help: "Trades dispatched through the pipeline by market slug.",
		}, []string{"slug"}),
		CandleInserts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestd_candle_inserts_total",
			Help: "Candle upserts attempted by resolution unit.",
		}, []string{"unit"}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingestd_stream_reconnects_total",
			Help: "Upstream subscription reconnect attempts.",
		}),
		Heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Name: "ingestd_heartbeats_total",
			Help: "Liveness heartbeats emitted by the health loop.",
		}),
	}
}

func (m *Metrics) decodeFailure(venue, account string) {
	if m == nil {
		return
	}
	m.DecodeFailures.WithLabelValues(venue, account).Inc()
}

// ObDecodeFailure records a failed OB account decode.
func (m *Metrics) ObDecodeFailure(account string) { m.decodeFailure("ob", account) }

// GdDecodeFailure records a failed GD account decode.
func (m *Metrics) GdDecodeFailure(account string) { m.decodeFailure("gd", account) }

// TradeProcessed records one trade dispatched for slug.
func (m *Metrics) TradeProcessed(slug string) {
	if m == nil {
		return
	}
	m.TradesProcessed.WithLabelValues(slug).Inc()
}

// CandleInsert records one candle upsert attempt for unit.
func (m *Metrics) CandleInsert(unit string) {
	if m == nil {
		return
	}
	m.CandleInserts.WithLabelValues(unit).Inc()
}

// Reconnect records one subscription reconnect attempt.
func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.Reconnects.Inc()
}

// Heartbeat records one liveness tick.
func (m *Metrics) Heartbeat() {
	if m == nil {
		return
	}
	m.Heartbeats.Inc()
}
