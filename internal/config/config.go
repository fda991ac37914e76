// Package config loads service configuration with viper: defaults, an
// optional YAML file, then MM_-prefixed environment variables. PORT,
// DATABASE_URL and REDIS_URL are honoured for container deployments.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/mercadomaster/economy-engine/internal/market"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Store  StoreConfig  `mapstructure:"store"`
	Market MarketConfig `mapstructure:"market"`
	Cron   CronConfig   `mapstructure:"cron"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StoreConfig struct {
	DatabaseURL string        `mapstructure:"database_url"`
	RedisURL    string        `mapstructure:"redis_url"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	ProfileID   string        `mapstructure:"profile_id"`
}

type MarketConfig struct {
	TickInterval     time.Duration      `mapstructure:"tick_interval"`
	Volatility       float64            `mapstructure:"volatility"`
	WindowSize       int                `mapstructure:"window_size"`
	HistorySeed      int                `mapstructure:"history_seed"`
	EventProbability float64            `mapstructure:"event_probability"`
	Seed             uint64             `mapstructure:"seed"` // 0 picks a random seed
	InitialPrices    map[string]float64 `mapstructure:"initial_prices"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	QuestReset string `mapstructure:"quest_reset"`
}

// Load reads configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("log.level", "info")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.cache_ttl", "30s")
	v.SetDefault("store.profile_id", "default")
	v.SetDefault("market.tick_interval", "2s")
	v.SetDefault("market.volatility", 0.002)
	v.SetDefault("market.window_size", 40)
	v.SetDefault("market.history_seed", 40)
	v.SetDefault("market.event_probability", market.SpawnProbability)
	v.SetDefault("market.seed", 0)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.quest_reset", "0 0 0 * * *")

	// Plain names used by the container platform win over the defaults.
	bindings := map[string]string{
		"server.port":        "PORT",
		"store.database_url": "DATABASE_URL",
		"store.redis_url":    "REDIS_URL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "MM_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Store.ProfileID == "" {
		errs = append(errs, errors.New("store.profile_id is required"))
	}
	if c.Market.TickInterval <= 0 {
		errs = append(errs, errors.New("market.tick_interval must be positive"))
	}
	if c.Market.Volatility < 0 {
		errs = append(errs, errors.New("market.volatility must not be negative"))
	}
	if c.Market.EventProbability < 0 || c.Market.EventProbability > 1 {
		errs = append(errs, errors.New("market.event_probability must be within [0, 1]"))
	}
	for sym, p := range c.Market.InitialPrices {
		if p <= 0 {
			errs = append(errs, fmt.Errorf("market.initial_prices.%s must be positive", sym))
		}
	}
	if c.Cron.Enabled && c.Cron.QuestReset == "" {
		errs = append(errs, errors.New("cron.quest_reset is required when cron is enabled"))
	}
	return errors.Join(errs...)
}

// SlogLevel parses Log.Level, falling back to info.
func (l LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Clock converts the market section into a clock configuration. Without
// initial_prices the reference symbols are used.
func (m MarketConfig) Clock() market.Config {
	cfg := market.DefaultConfig()
	cfg.TickInterval = m.TickInterval
	cfg.Volatility = m.Volatility
	cfg.WindowSize = m.WindowSize
	cfg.HistorySeed = m.HistorySeed
	cfg.SpawnProbability = m.EventProbability

	if len(m.InitialPrices) > 0 {
		cfg.InitialPrices = make(map[string]decimal.Decimal, len(m.InitialPrices))
		for sym, p := range m.InitialPrices {
			cfg.InitialPrices[strings.ToUpper(sym)] = decimal.NewFromFloat(p)
		}
	}
	return cfg
}
