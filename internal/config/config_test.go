package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"yahoo", "finnhub", "alpaca"}, cfg.Data.Providers)
	assert.Equal(t, 2, cfg.Data.Fetch.BatchSize)
	assert.Equal(t, 800*time.Millisecond, cfg.Data.Fetch.BatchDelay)
	assert.Equal(t, "1y", cfg.Data.Fetch.Period)
	assert.Equal(t, "SPY", cfg.Data.IndexSymbol)
	assert.True(t, cfg.Data.Fundamentals)
	assert.Equal(t, 15*time.Minute, cfg.Data.CacheTTL)
	assert.Equal(t, 60, cfg.Data.Yahoo.RateLimit)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Queue.Enabled)

	assert.Equal(t, 2.0, cfg.Opportunity.StopATRMultiple)
	assert.Equal(t, 0.25, cfg.Opportunity.KellyFraction)
	assert.Equal(t, 60, cfg.Regime.MinBars)
	assert.Equal(t, 15, cfg.Backtest.MaxHoldDays)
	assert.Equal(t, 50, cfg.Prediction.MinBars)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
data:
  providers: [yahoo]
  index_symbol: QQQ
  fundamentals: false
  fetch:
    batch_size: 4
    batch_delay: 1s
indicators:
  wilder_adx: true
opportunity:
  top_n: 10
  filters:
    min_confidence: 60
backtest:
  max_hold_days: 10
metrics:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"yahoo"}, cfg.Data.Providers)
	assert.Equal(t, "QQQ", cfg.Data.IndexSymbol)
	assert.False(t, cfg.Data.Fundamentals)
	assert.Equal(t, 4, cfg.Data.Fetch.BatchSize)
	assert.Equal(t, time.Second, cfg.Data.Fetch.BatchDelay)
	assert.Equal(t, "1d", cfg.Data.Fetch.Interval, "unset keys keep defaults")
	assert.True(t, cfg.Indicators.WilderADX)
	assert.Equal(t, 10, cfg.Opportunity.TopN)
	assert.Equal(t, 60.0, cfg.Opportunity.Filters.MinConfidence)
	assert.Equal(t, 1.2, cfg.Opportunity.Filters.MinRiskReward)
	assert.Equal(t, 10, cfg.Backtest.MaxHoldDays)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "fh-key")
	t.Setenv("APCA_API_KEY_ID", "apca-id")
	t.Setenv("APCA_API_SECRET_KEY", "apca-secret")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(writeConfig(t, "data:\n  finnhub:\n    key: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "fh-key", cfg.Data.Finnhub.Key)
	assert.Equal(t, "apca-id", cfg.Data.Alpaca.Key)
	assert.Equal(t, "apca-secret", cfg.Data.Alpaca.Secret)
	assert.Equal(t, "localhost:6379", cfg.Data.Redis.Addr)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed yaml", "data: [", "parsing config file"},
		{"zero batch size", "data:\n  fetch:\n    batch_size: 0\n", "BatchSize"},
		{"unknown provider", "data:\n  providers: [bloomberg]\n", "Providers"},
		{"bad log level", "log:\n  level: loud\n", "Level"},
		{"kelly fraction above one", "opportunity:\n  kelly_fraction: 2\n", "KellyFraction"},
		{"bad endpoint", "queue:\n  endpoint: not a url\n", "Endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateQueueDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Queue.Enabled = true
	cfg.Queue.Dir = ""
	assert.ErrorContains(t, cfg.Validate(), "queue.dir")
}
