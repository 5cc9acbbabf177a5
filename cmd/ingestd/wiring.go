// Package main wires the ingestion engine's adapters and components behind
// go.uber.org/fx: one subscription controller running for the lifetime of
// the process, with every external collaborator provided as a module.
package main

import (
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/chainfeed/ingestd/internal/adapters/chainrpc"
	"github.com/chainfeed/ingestd/internal/adapters/pgstore"
	"github.com/chainfeed/ingestd/internal/adapters/rediscache"
	"github.com/chainfeed/ingestd/internal/adapters/restysummary"
	"github.com/chainfeed/ingestd/internal/adapters/watermillbus"
	"github.com/chainfeed/ingestd/internal/adapters/wsstream"
	"github.com/chainfeed/ingestd/internal/candle"
	"github.com/chainfeed/ingestd/internal/config"
	"github.com/chainfeed/ingestd/internal/events"
	"github.com/chainfeed/ingestd/internal/marketstate"
	"github.com/chainfeed/ingestd/internal/metrics"
	"github.com/chainfeed/ingestd/internal/reconcile"
	"github.com/chainfeed/ingestd/internal/subscribe"
	"github.com/chainfeed/ingestd/internal/tradepipe"
)

// ConfigModule provides startup configuration and the process logger.
var ConfigModule = fx.Options(
	fx.Provide(config.Load),
	fx.Provide(config.NewLogger),
)

// MetricsModule provides the shared Prometheus registry and instrument
// bundle.
var MetricsModule = fx.Options(
	fx.Provide(prometheus.NewRegistry),
	fx.Provide(func(reg *prometheus.Registry) *metrics.Metrics { return metrics.New(reg) }),
)

// AdaptersModule wires every external collaborator's concrete adapter
// behind its ports interface.
var AdaptersModule = fx.Options(
	fx.Provide(newRedisCache),
	fx.Provide(newPostgresStore),
	fx.Provide(newBus),
	fx.Provide(newSummaryClient),
	fx.Provide(newChainClient),
	fx.Provide(newUpdateSource),
)

// EngineModule provides the core decode-and-dispatch components.
var EngineModule = fx.Options(
	fx.Provide(marketstate.NewStore),
	fx.Provide(newEventRecorder),
	fx.Provide(newReconciler),
	fx.Provide(newCandleAggregator),
	fx.Provide(newPipeline),
	fx.Provide(newController),
)

func newRedisCache(cfg *config.Config) (*rediscache.Cache, error) {
	opt, err := redis.ParseURL(cfg.CacheURL)
	if err != nil {
		return nil, err
	}
	return rediscache.New(redis.NewClient(opt)), nil
}

// dsnWithAuthToken folds DB_AUTH_TOKEN into the postgres DSN as the
// connection password when the DSN does not already carry one, the way a
// hosted-postgres provider's pooled-connection token is typically supplied.
func dsnWithAuthToken(dsn, token string) string {
	if token == "" || strings.Contains(dsn, "password=") {
		return dsn
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if u.User != nil {
			if _, hasPassword := u.User.Password(); hasPassword {
				return dsn
			}
		}
		q := u.Query()
		q.Set("password", token)
		u.RawQuery = q.Encode()
		return u.String()
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "password=" + url.QueryEscape(token)
}

func newPostgresStore(cfg *config.Config, logger *zap.Logger) (*pgstore.Store, error) {
	dsn := dsnWithAuthToken(cfg.DBURL, cfg.DBAuthToken)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	store := pgstore.New(db, logger)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}

func newBus(logger *zap.Logger) *watermillbus.Bus {
	// In-process gochannel bus. internal/adapters/natsbus also satisfies
	// ports.Bus, but the providers that consume the bus take
	// *watermillbus.Bus, so switching to it changes them as well.
	return watermillbus.New(logger, 256)
}

func newSummaryClient(cfg *config.Config) *restysummary.Client {
	return restysummary.New(cfg.APIURL)
}

func newChainClient(cfg *config.Config) *chainrpc.Client {
	return chainrpc.New(cfg.RPCURL)
}

func newUpdateSource(cfg *config.Config) *wsstream.Source {
	streamURL := cfg.StreamURL
	if cfg.StreamToken != "" {
		sep := "?"
		if strings.Contains(streamURL, "?") {
			sep = "&"
		}
		streamURL += sep + "token=" + url.QueryEscape(cfg.StreamToken)
	}
	return wsstream.New(streamURL)
}

func newEventRecorder(store *pgstore.Store) *events.Recorder {
	return &events.Recorder{Store: store}
}

func newReconciler(cache *rediscache.Cache, bus *watermillbus.Bus, rec *events.Recorder) *reconcile.Reconciler {
	return &reconcile.Reconciler{Cache: cache, Bus: bus, Events: rec}
}

func newCandleAggregator(store *pgstore.Store, m *metrics.Metrics) *candle.Aggregator {
	agg := candle.NewAggregator(store)
	agg.Metrics = m
	return agg
}

func newPipeline(
	cache *rediscache.Cache,
	store *pgstore.Store,
	bus *watermillbus.Bus,
	summary *restysummary.Client,
	agg *candle.Aggregator,
	m *metrics.Metrics,
	rec *events.Recorder,
) *tradepipe.Pipeline {
	return &tradepipe.Pipeline{
		Cache:   cache,
		Store:   store,
		Bus:     bus,
		Summary: summary,
		Candle:  agg,
		Metrics: m,
		Events:  rec,
	}
}

func newController(
	cache *rediscache.Cache,
	bus *watermillbus.Bus,
	chain *chainrpc.Client,
	source *wsstream.Source,
	state *marketstate.Store,
	rec *reconcile.Reconciler,
	pipeline *tradepipe.Pipeline,
	logger *zap.Logger,
	m *metrics.Metrics,
) *subscribe.Controller {
	return &subscribe.Controller{
		Cache:      cache,
		Bus:        bus,
		Chain:      chain,
		Source:     source,
		State:      state,
		Reconciler: rec,
		Pipeline:   pipeline,
		Log:        logger,
		Metrics:    m,
	}
}
