// Package market simulates asset prices: a pure candle generator, a small
// event engine of time-boxed news shocks, and a clock that drives both on a
// fixed interval.
//
// Prices are shopspring/decimal. The random walk itself is computed in
// float64 and converted immediately, the same way the pricing math in this
// service has always handled transcendental steps.
package market

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/model"
)

var (
	// ErrInvalidInput is returned when a candle input is non-finite or out
	// of range.
	ErrInvalidInput = errors.New("market: candle input must be finite and non-negative")

	// MinPrice is the floor for any generated close or low. A strongly
	// negative bias can otherwise drive the walk through zero.
	MinPrice = decimal.New(1, -8)

	// PriceScale is the number of decimal places kept on candle prices.
	PriceScale int32 = 8

	// BiasScale converts an event bias into a fraction of volatility.
	BiasScale = 0.25
)

// RNG is the random source threaded through the generator and event engine.
// *rand.Rand from math/rand/v2 satisfies it; tests pass a seeded PCG.
type RNG interface {
	Float64() float64
	IntN(n int) int
}

// NextCandle produces the next bar from the previous close.
//
//	open  = prevClose
//	close = open * (1 + U[-v, v] + bias*v*BiasScale)
//	high  = max(open, close) * (1 + U[0, v/2])
//	low   = min(open, close) * (1 - U[0, v/2])
//
// Bias shifts the expected direction without removing randomness. The
// result always satisfies low <= open, close <= high.
func NextCandle(rng RNG, prevClose decimal.Decimal, volatility, bias float64, at time.Time) (model.Candle, error) {
	if !finite(volatility) || !finite(bias) || volatility < 0 {
		return model.Candle{}, ErrInvalidInput
	}
	if !prevClose.IsPositive() {
		return model.Candle{}, ErrInvalidInput
	}

	open := prevClose
	of := open.InexactFloat64()

	move := rng.Float64()*volatility*2 - volatility
	scaledBias := bias * volatility * BiasScale
	cf := of * (1 + move + scaledBias)

	hi := math.Max(of, cf) * (1 + rng.Float64()*volatility*0.5)
	lo := math.Min(of, cf) * (1 - rng.Float64()*volatility*0.5)

	closeP := floor(toPrice(cf))
	high := toPrice(hi)
	low := floor(toPrice(lo))

	// Rounding can nudge the wicks inside the body; clamp them back out.
	high = decimal.Max(high, open, closeP)
	low = decimal.Min(low, open, closeP)

	return model.Candle{
		Open:  open,
		High:  high,
		Low:   low,
		Close: closeP,
		Time:  at,
	}, nil
}

// History generates count candles starting from basePrice, oldest first,
// spaced interval apart and ending at end.
func History(rng RNG, basePrice decimal.Decimal, volatility float64, count int, end time.Time, interval time.Duration) ([]model.Candle, error) {
	out := make([]model.Candle, 0, count)
	price := basePrice
	for i := 0; i < count; i++ {
		at := end.Add(-time.Duration(count-1-i) * interval)
		c, err := NextCandle(rng, price, volatility, 0, at)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		price = c.Close
	}
	return out, nil
}

func toPrice(f float64) decimal.Decimal {
	if !finite(f) {
		return MinPrice
	}
	return decimal.NewFromFloat(f).Round(PriceScale)
}

func floor(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(MinPrice) {
		return MinPrice
	}
	return p
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
