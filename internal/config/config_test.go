package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Market.TickInterval != 2*time.Second {
		t.Errorf("expected 2s tick, got %s", cfg.Market.TickInterval)
	}
	if cfg.Store.ProfileID != "default" {
		t.Errorf("expected default profile, got %s", cfg.Store.ProfileID)
	}
	if cfg.Cron.QuestReset != "0 0 0 * * *" {
		t.Errorf("expected midnight reset, got %q", cfg.Cron.QuestReset)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/mm")
	t.Setenv("MM_MARKET_TICK_INTERVAL", "500ms")
	t.Setenv("MM_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected PORT to apply, got %s", cfg.Server.Port)
	}
	if cfg.Store.DatabaseURL != "postgres://localhost/mm" {
		t.Errorf("expected DATABASE_URL to apply, got %q", cfg.Store.DatabaseURL)
	}
	if cfg.Market.TickInterval != 500*time.Millisecond {
		t.Errorf("expected 500ms tick, got %s", cfg.Market.TickInterval)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("expected debug level, got %s", cfg.Log.SlogLevel())
	}
}

func TestLoad_PrefixedEnvWinsOverPlain(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MM_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected MM_SERVER_PORT to win, got %s", cfg.Server.Port)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
market:
  seed: 42
  initial_prices:
    btc: 50000
    doge: 0.1
cron:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Market.Seed != 42 {
		t.Errorf("expected seed 42, got %d", cfg.Market.Seed)
	}
	if cfg.Cron.Enabled {
		t.Error("expected cron disabled")
	}

	clock := cfg.Market.Clock()
	if len(clock.InitialPrices) != 2 {
		t.Fatalf("expected 2 symbols, got %v", clock.InitialPrices)
	}
	if !clock.InitialPrices["BTC"].Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected BTC 50000, got %s", clock.InitialPrices["BTC"])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Config{
		Market: MarketConfig{EventProbability: 2},
		Cron:   CronConfig{Enabled: true},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "profile_id", "tick_interval", "event_probability", "quest_reset"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestClock_DefaultSymbols(t *testing.T) {
	cfg, _ := Load("")
	clock := cfg.Market.Clock()
	if len(clock.InitialPrices) != 5 {
		t.Errorf("expected 5 reference symbols, got %d", len(clock.InitialPrices))
	}
	if clock.SpawnProbability != 0.10 {
		t.Errorf("expected spawn probability 0.10, got %v", clock.SpawnProbability)
	}
}
