package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one simulated price bar.
type Candle struct {
	Open  decimal.Decimal `json:"open"`
	High  decimal.Decimal `json:"high"`
	Low   decimal.Decimal `json:"low"`
	Close decimal.Decimal `json:"close"`
	Time  time.Time       `json:"time"`
}

// Trend is the sign of the last tick's move.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// EventKind classifies a market event for display.
type EventKind string

const (
	EventMacro     EventKind = "macro"
	EventNews      EventKind = "news"
	EventBlackSwan EventKind = "black_swan"
)

// MarketEvent is a time-boxed news shock that biases prices of the symbols
// it targets. Impact is an additive bias per symbol; Volatility multiplies
// the base volatility of those symbols while the event is active.
type MarketEvent struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Kind           EventKind          `json:"kind"`
	Icon           string             `json:"icon,omitempty"`
	Impact         map[string]float64 `json:"impact"`
	Volatility     float64            `json:"volatility"`
	Duration       int                `json:"duration"`        // ticks, catalog value
	RemainingTicks int                `json:"remaining_ticks"` // live counter
}

// Targets reports whether the event biases symbol.
func (e MarketEvent) Targets(symbol string) bool {
	_, ok := e.Impact[symbol]
	return ok
}

// MarketSnapshot is a read-only view of the simulated market after a tick.
type MarketSnapshot struct {
	Tick         int64                      `json:"tick"`
	Prices       map[string]decimal.Decimal `json:"prices"`
	History      map[string][]Candle        `json:"history"`
	Trend        map[string]Trend           `json:"trend"`
	ActiveEvents []MarketEvent              `json:"active_events"`
}
