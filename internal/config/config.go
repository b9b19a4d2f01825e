// Package config loads the stockscope configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"stockscope/internal/backtest"
	"stockscope/internal/events"
	"stockscope/internal/fundamental"
	"stockscope/internal/indicator"
	"stockscope/internal/levels"
	"stockscope/internal/logger"
	"stockscope/internal/opportunity"
	"stockscope/internal/predict"
	"stockscope/internal/regime"
	"stockscope/internal/scanner"
)

// Config represents the application configuration
type Config struct {
	Log         logger.Config            `yaml:"log"`
	Data        DataConfig               `yaml:"data"`
	Indicators  indicator.Options        `yaml:"indicators"`
	Levels      levels.Config            `yaml:"levels"`
	Regime      regime.Config            `yaml:"regime"`
	Events      events.Config            `yaml:"events"`
	Correlation events.CorrelationConfig `yaml:"correlation"`
	Fundamental fundamental.Config       `yaml:"fundamental"`
	Prediction  predict.Config           `yaml:"prediction"`
	Opportunity opportunity.Config       `yaml:"opportunity"`
	Backtest    backtest.Config          `yaml:"backtest"`
	Ledger      LedgerConfig             `yaml:"ledger"`
	Queue       QueueConfig              `yaml:"queue"`
	Server      ServerConfig             `yaml:"server"`
	Metrics     MetricsConfig            `yaml:"metrics"`
}

// DataConfig holds market data settings
type DataConfig struct {
	Providers []string       `yaml:"providers" default:"[\"yahoo\",\"finnhub\",\"alpaca\"]" validate:"min=1,dive,oneof=yahoo finnhub alpaca"`
	Yahoo     ProviderConfig `yaml:"yahoo"`
	Finnhub   ProviderConfig `yaml:"finnhub"`
	Alpaca    AlpacaConfig   `yaml:"alpaca"`

	scanner.Config `yaml:",inline"`

	CacheTTL time.Duration `yaml:"cache_ttl" default:"15m" validate:"gte=0"`
	Redis    RedisConfig   `yaml:"redis"`
}

// ProviderConfig holds individual provider settings
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit" default:"60" validate:"gte=1"` // requests per minute
}

// AlpacaConfig holds Alpaca market data credentials
type AlpacaConfig struct {
	Key       string `yaml:"key"`
	Secret    string `yaml:"secret"`
	BaseURL   string `yaml:"base_url"`
	RateLimit int    `yaml:"rate_limit" default:"200" validate:"gte=1"`
}

// RedisConfig enables the shared bar cache when Addr is set
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix" default:"stockscope:bars:"`
}

// LedgerConfig locates the backtest ledger. Empty Path disables it.
type LedgerConfig struct {
	Path string `yaml:"path" default:"data/ledger.db"`
}

// QueueConfig controls the offline sync queue
type QueueConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir" default:"data/queue"`
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

var validate = validator.New()

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	cfg := &Config{
		Levels:      levels.DefaultConfig(),
		Regime:      regime.DefaultConfig(),
		Events:      events.DefaultConfig(),
		Correlation: events.DefaultCorrelationConfig(),
		Fundamental: fundamental.DefaultConfig(),
		Prediction:  predict.DefaultConfig(),
		Opportunity: opportunity.DefaultConfig(),
		Backtest:    backtest.DefaultConfig(),
	}
	cfg.Data.Config = scanner.DefaultConfig()
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Load reads .env, then the YAML file at path, then environment overrides.
// A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not read .env")
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug().Str("path", path).Msg("No config file, using defaults")
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment
func (c *Config) applyEnv() {
	if key := os.Getenv("FINNHUB_API_KEY"); key != "" {
		c.Data.Finnhub.Key = key
	}
	if key := os.Getenv("APCA_API_KEY_ID"); key != "" {
		c.Data.Alpaca.Key = key
	}
	if secret := os.Getenv("APCA_API_SECRET_KEY"); secret != "" {
		c.Data.Alpaca.Secret = secret
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Data.Redis.Addr = addr
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Queue.Enabled && c.Queue.Dir == "" {
		return errors.New("invalid config: queue.dir is required when the queue is enabled")
	}
	return nil
}
