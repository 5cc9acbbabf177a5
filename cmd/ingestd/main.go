package main

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/chainfeed/ingestd/internal/health"
	"github.com/chainfeed/ingestd/internal/metrics"
	"github.com/chainfeed/ingestd/internal/subscribe"
)

func main() {
	app := fx.New(
		ConfigModule,
		MetricsModule,
		AdaptersModule,
		EngineModule,

		fx.Invoke(registerMetricsServer),
		fx.Invoke(registerHealthMonitor),
		fx.Invoke(runController),
	)

	app.Run()
}

// registerMetricsServer exposes the Prometheus registry over HTTP.
func registerMetricsServer(lc fx.Lifecycle, reg *prometheus.Registry, logger *zap.Logger) {
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	server := &http.Server{Addr: ":9090", Handler: handler}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting metrics server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
}

// registerHealthMonitor starts the 60s liveness heartbeat alongside the
// controller and stops it when the app shuts down.
func registerHealthMonitor(lc fx.Lifecycle, logger *zap.Logger, m *metrics.Metrics) {
	monitor := &health.Monitor{Log: logger, Metrics: m}
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go monitor.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// runController bootstraps the configured markets and starts the
// subscription controller's steady-state loop for the life of the process.
// Bootstrap failures are fatal; the runtime loop itself never
// returns an error that should crash the process, so its goroutine only
// logs an error Run returns while ctx is still live; the cancellation
// error Run returns on shutdown is not logged.
func runController(lc fx.Lifecycle, c *subscribe.Controller, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if _, err := c.Bootstrap(startCtx); err != nil {
				cancel()
				return err
			}
			go func() {
				if err := c.Run(ctx); err != nil && ctx.Err() == nil {
					logger.Error("controller run loop exited", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
