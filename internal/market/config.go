package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds configuration for the market clock.
type Config struct {
	// TickInterval is the wall-clock period between ticks.
	TickInterval time.Duration
	// Volatility is the base per-tick fractional move.
	Volatility float64
	// WindowSize is the number of candles kept per symbol.
	WindowSize int
	// HistorySeed is the number of candles generated per symbol at startup.
	HistorySeed int
	// SpawnProbability is the per-tick chance of firing a catalog event.
	SpawnProbability float64
	// InitialPrices maps every tracked symbol to its opening price.
	InitialPrices map[string]decimal.Decimal
}

// DefaultConfig returns a Config with the reference market.
func DefaultConfig() Config {
	return Config{
		TickInterval:     2 * time.Second,
		Volatility:       0.002,
		WindowSize:       40,
		HistorySeed:      40,
		SpawnProbability: SpawnProbability,
		InitialPrices: map[string]decimal.Decimal{
			"BTC":  decimal.NewFromInt(65000),
			"ETH":  decimal.NewFromInt(3500),
			"SOL":  decimal.NewFromInt(145),
			"AAPL": decimal.NewFromInt(180),
			"TSLA": decimal.NewFromInt(240),
		},
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.Volatility <= 0 {
		c.Volatility = def.Volatility
	}
	if c.WindowSize <= 0 {
		c.WindowSize = def.WindowSize
	}
	if c.HistorySeed < 0 {
		c.HistorySeed = 0
	}
	if c.HistorySeed > c.WindowSize {
		c.HistorySeed = c.WindowSize
	}
	if c.SpawnProbability < 0 {
		c.SpawnProbability = 0
	}
	if c.InitialPrices == nil {
		c.InitialPrices = def.InitialPrices
	}
	return c
}
