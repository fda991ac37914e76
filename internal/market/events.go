package market

import (
	"github.com/mercadomaster/economy-engine/internal/model"
)

// SpawnProbability is the per-tick chance of drawing a catalog event while
// no event is active.
const SpawnProbability = 0.10

// Catalog returns the static set of news shocks the engine can fire.
func Catalog() []model.MarketEvent {
	return []model.MarketEvent{
		{
			ID:          "tech_boom",
			Title:       "AI boom",
			Description: "A new technology reshapes the sector. Tech stocks rally hard.",
			Kind:        model.EventMacro,
			Icon:        "🤖",
			Impact:      map[string]float64{"AAPL": 2.5, "TSLA": 3.0},
			Volatility:  1.2,
			Duration:    15,
		},
		{
			ID:          "crypto_regulation",
			Title:       "Strict regulation",
			Description: "Governments announce a crackdown on crypto. Panic selling follows.",
			Kind:        model.EventNews,
			Icon:        "⚖️",
			Impact:      map[string]float64{"BTC": -2.0, "ETH": -2.5, "SOL": -3.0},
			Volatility:  2.5,
			Duration:    10,
		},
		{
			ID:          "inflation_spike",
			Title:       "Hot inflation print",
			Description: "Inflation comes in above expectations. Fear spreads across markets.",
			Kind:        model.EventMacro,
			Icon:        "📈",
			Impact:      map[string]float64{"AAPL": -1.5, "BTC": -1.2},
			Volatility:  1.5,
			Duration:    8,
		},
		{
			ID:          "etf_approval",
			Title:       "Spot ETF approved",
			Description: "Regulators approve spot crypto ETFs. Institutional money pours in.",
			Kind:        model.EventNews,
			Icon:        "🏛️",
			Impact:      map[string]float64{"BTC": 4.0, "ETH": 3.0},
			Volatility:  1.8,
			Duration:    20,
		},
		{
			ID:          "exchange_hack",
			Title:       "Exchange hacked",
			Description: "A major exchange has been hacked. Uncertainty is extreme.",
			Kind:        model.EventBlackSwan,
			Icon:        "💀",
			Impact:      map[string]float64{"BTC": -4.0, "ETH": -4.0, "SOL": -5.0},
			Volatility:  4.0,
			Duration:    5,
		},
		{
			ID:          "fed_pivot",
			Title:       "Fed cuts rates",
			Description: "Cheap money floods the market. Stocks and crypto party.",
			Kind:        model.EventMacro,
			Icon:        "🏦",
			Impact:      map[string]float64{"AAPL": 2.0, "BTC": 2.0, "TSLA": 3.0},
			Volatility:  0.8,
			Duration:    25,
		},
	}
}

// MaybeSpawn draws one catalog event with the given probability when no
// event is active. It returns the new active set and the spawned event, or
// the unchanged set and nil. Only one event runs at a time so a price move
// can always be attributed to a single headline.
func MaybeSpawn(rng RNG, catalog, active []model.MarketEvent, probability float64) ([]model.MarketEvent, *model.MarketEvent) {
	if len(active) > 0 || len(catalog) == 0 {
		return active, nil
	}
	if rng.Float64() >= probability {
		return active, nil
	}

	ev := cloneEvent(catalog[rng.IntN(len(catalog))])
	ev.RemainingTicks = ev.Duration

	next := append(append([]model.MarketEvent(nil), active...), ev)
	return next, &ev
}

// Influence folds every active event that targets symbol into one bias and
// one volatility multiplier: biases add, multipliers compound.
func Influence(active []model.MarketEvent, symbol string) (bias, volMultiplier float64) {
	volMultiplier = 1
	for _, ev := range active {
		if !ev.Targets(symbol) {
			continue
		}
		bias += ev.Impact[symbol]
		if ev.Volatility > 0 {
			volMultiplier *= ev.Volatility
		}
	}
	return bias, volMultiplier
}

// TickEvents decrements every event's remaining ticks and drops the ones
// that reach zero. Events always run to completion.
func TickEvents(active []model.MarketEvent) []model.MarketEvent {
	var next []model.MarketEvent
	for _, ev := range active {
		ev.RemainingTicks--
		if ev.RemainingTicks <= 0 {
			continue
		}
		next = append(next, ev)
	}
	return next
}

func cloneEvent(ev model.MarketEvent) model.MarketEvent {
	impact := make(map[string]float64, len(ev.Impact))
	for k, v := range ev.Impact {
		impact[k] = v
	}
	ev.Impact = impact
	return ev
}
