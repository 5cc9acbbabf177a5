// Package config loads the flat set of required environment variables this
// engine needs at startup via viper's env binding; there is no file-based
// configuration surface.
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chainfeed/ingestd/internal/ingesterr"
)

// Config holds every required startup value.
type Config struct {
	APIURL      string
	CacheURL    string
	RPCURL      string
	DBURL       string
	DBAuthToken string
	StreamURL   string
	StreamToken string
	LogLevel    string
}

var requiredKeys = []string{
	"API_URL",
	"CACHE_URL",
	"RPC_URL",
	"DB_URL",
	"DB_AUTH_TOKEN",
	"STREAM_URL",
	"STREAM_TOKEN",
}

// Load reads the required env vars via viper's AutomaticEnv binding. A
// missing required variable is a fatal startup error.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("LOG_LEVEL", "info")

	missing := make([]string, 0)
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, ingesterr.Wrap(err, ingesterr.ErrStartup, fmt.Sprintf("bind env %s", key))
		}
		if v.GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, ingesterr.Newf(ingesterr.ErrStartup, "missing required environment variables: %v", missing)
	}

	return &Config{
		APIURL:      v.GetString("API_URL"),
		CacheURL:    v.GetString("CACHE_URL"),
		RPCURL:      v.GetString("RPC_URL"),
		DBURL:       v.GetString("DB_URL"),
		DBAuthToken: v.GetString("DB_AUTH_TOKEN"),
		StreamURL:   v.GetString("STREAM_URL"),
		StreamToken: v.GetString("STREAM_TOKEN"),
		LogLevel:    v.GetString("LOG_LEVEL"),
	}, nil
}

// NewLogger builds the process logger from the configured level.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	switch cfg.LogLevel {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}
