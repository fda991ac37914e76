package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/metrics"
	"github.com/mercadomaster/economy-engine/internal/model"
)

// ErrUnknownSymbol is returned for symbols the clock does not track.
var ErrUnknownSymbol = errors.New("market: unknown symbol")

// Publisher receives market notifications after each tick. Implementations
// must not block; the WebSocket hub drops messages when its buffer is full.
type Publisher interface {
	PublishTick(snap model.MarketSnapshot)
	PublishEvent(ev model.MarketEvent)
}

type symbolState struct {
	window *Window
	price  decimal.Decimal
	trend  model.Trend
}

// Clock is the only autonomous actor in the engine: once per tick it may
// spawn an event, generates one candle per tracked symbol and decays the
// active events. Readers get copies; nothing outside the clock mutates
// market state.
type Clock struct {
	cfg       Config
	rng       RNG
	catalog   []model.MarketEvent
	publisher Publisher
	now       func() time.Time

	mu      sync.RWMutex
	symbols map[string]*symbolState
	order   []string // sorted, so a seeded RNG replays identically
	active  []model.MarketEvent
	latest  *model.MarketEvent
	tick    int64
}

// NewClock creates a clock and seeds every configured symbol with
// cfg.HistorySeed candles. Pass nil for pub if no one listens.
func NewClock(cfg Config, rng RNG, pub Publisher) (*Clock, error) {
	cfg = cfg.withDefaults()
	c := &Clock{
		cfg:       cfg,
		rng:       rng,
		catalog:   Catalog(),
		publisher: pub,
		now:       func() time.Time { return time.Now().UTC() },
		symbols:   make(map[string]*symbolState, len(cfg.InitialPrices)),
	}

	syms := make([]string, 0, len(cfg.InitialPrices))
	for sym := range cfg.InitialPrices {
		syms = append(syms, sym)
	}
	sort.Strings(syms)

	for _, sym := range syms {
		c.Register(sym)
		if err := c.Seed(sym, cfg.InitialPrices[sym]); err != nil {
			return nil, fmt.Errorf("seed %s: %w", sym, err)
		}
	}
	return c, nil
}

// SetCatalog replaces the event catalog. Intended for tests and tuning.
func (c *Clock) SetCatalog(catalog []model.MarketEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = catalog
}

// Register starts tracking symbol with an empty history. The symbol is
// skipped on every tick until Seed gives it a price.
func (c *Clock) Register(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.symbols[symbol]; ok {
		return
	}
	c.symbols[symbol] = &symbolState{
		window: NewWindow(c.cfg.WindowSize),
		trend:  model.TrendFlat,
	}
	c.order = append(c.order, symbol)
	sort.Strings(c.order)
}

// Seed fills symbol's window with generated history ending at basePrice's
// random walk. With HistorySeed == 0 a single flat candle at basePrice is
// written so the symbol starts ticking.
func (c *Clock) Seed(symbol string, basePrice decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.symbols[symbol]
	if !ok {
		return ErrUnknownSymbol
	}
	if !basePrice.IsPositive() {
		return ErrInvalidInput
	}

	now := c.now()
	var candles []model.Candle
	if c.cfg.HistorySeed > 0 {
		hist, err := History(c.rng, basePrice, c.cfg.Volatility, c.cfg.HistorySeed, now, c.cfg.TickInterval)
		if err != nil {
			return err
		}
		candles = hist
	} else {
		candles = []model.Candle{{Open: basePrice, High: basePrice, Low: basePrice, Close: basePrice, Time: now}}
	}

	for _, cd := range candles {
		st.window.Append(cd)
	}
	last, _ := st.window.Last()
	st.price = last.Close
	return nil
}

// TickResult is what one tick produced.
type TickResult struct {
	Snapshot model.MarketSnapshot
	Spawned  *model.MarketEvent
}

// Tick advances the market by one step synchronously.
func (c *Clock) Tick() TickResult {
	c.mu.Lock()

	c.tick++
	now := c.now()

	active, spawned := MaybeSpawn(c.rng, c.catalog, c.active, c.cfg.SpawnProbability)
	if spawned != nil {
		ev := *spawned
		c.latest = &ev
		slog.Info("market event fired",
			"event", ev.ID,
			"title", ev.Title,
			"duration", ev.Duration,
		)
	}

	for _, sym := range c.order {
		st := c.symbols[sym]
		last, ok := st.window.Last()
		if !ok {
			continue // not initialized yet
		}

		bias, volMult := Influence(active, sym)
		candle, err := NextCandle(c.rng, last.Close, c.cfg.Volatility*volMult, bias, now)
		if err != nil {
			slog.Warn("candle generation failed", "symbol", sym, "err", err)
			continue
		}

		if candle.Close.GreaterThan(last.Close) {
			st.trend = model.TrendUp
		} else {
			st.trend = model.TrendDown
		}
		st.price = candle.Close
		st.window.Append(candle)
	}

	c.active = TickEvents(active)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	metrics.MarketTicks.Inc()
	metrics.ActiveMarketEvents.Set(float64(len(snap.ActiveEvents)))
	if spawned != nil {
		metrics.MarketEventsFired.WithLabelValues(spawned.ID).Inc()
	}

	if c.publisher != nil {
		if spawned != nil {
			c.publisher.PublishEvent(*spawned)
		}
		c.publisher.PublishTick(snap)
	}

	return TickResult{Snapshot: snap, Spawned: spawned}
}

// Run ticks every TickInterval until ctx is cancelled.
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	slog.Info("market clock started", "interval", c.cfg.TickInterval.String(), "symbols", len(c.order))
	for {
		select {
		case <-ctx.Done():
			slog.Info("market clock stopped", "ticks", c.Ticks())
			return ctx.Err()
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Price returns the last close for symbol. A trade must read the price
// once through this call and fill at that value.
func (c *Clock) Price(symbol string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st, ok := c.symbols[symbol]
	if !ok {
		return decimal.Zero, ErrUnknownSymbol
	}
	if st.window.Len() == 0 {
		return decimal.Zero, fmt.Errorf("%w: %s has no price yet", ErrUnknownSymbol, symbol)
	}
	return st.price, nil
}

// Snapshot returns a copy of the current market.
func (c *Clock) Snapshot() model.MarketSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Symbols returns the tracked symbols in tick order.
func (c *Clock) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// Ticks returns the number of ticks run so far.
func (c *Clock) Ticks() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// LatestEvent returns the most recently fired event until it is cleared.
func (c *Clock) LatestEvent() (model.MarketEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return model.MarketEvent{}, false
	}
	return cloneEvent(*c.latest), true
}

// ClearLatestEvent acknowledges the latest-event notification.
func (c *Clock) ClearLatestEvent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = nil
}

func (c *Clock) snapshotLocked() model.MarketSnapshot {
	snap := model.MarketSnapshot{
		Tick:         c.tick,
		Prices:       make(map[string]decimal.Decimal, len(c.symbols)),
		History:      make(map[string][]model.Candle, len(c.symbols)),
		Trend:        make(map[string]model.Trend, len(c.symbols)),
		ActiveEvents: make([]model.MarketEvent, 0, len(c.active)),
	}
	for sym, st := range c.symbols {
		if st.window.Len() == 0 {
			continue
		}
		snap.Prices[sym] = st.price
		snap.History[sym] = st.window.Candles()
		snap.Trend[sym] = st.trend
	}
	for _, ev := range c.active {
		snap.ActiveEvents = append(snap.ActiveEvents, cloneEvent(ev))
	}
	return snap
}
