// Package ledger executes simulated buy and sell orders against a user's
// cash and holdings.
//
// The ledger is pure: it takes a UserState by value and returns a new one.
// Solvency is checked on the same value that is then mutated, so there is no
// window between the check and the write. Callers serialize access to the
// stored state themselves.
package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/model"
)

var (
	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("ledger: quantity must be positive")

	// ErrInvalidPrice is returned for zero or negative fill prices.
	ErrInvalidPrice = errors.New("ledger: price must be positive")

	// ErrInvalidSymbol is returned for an empty symbol.
	ErrInvalidSymbol = errors.New("ledger: symbol is required")

	// ErrInsufficientFunds is returned when a buy costs more than the
	// available cash.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInsufficientHoldings is returned when a sell exceeds the quantity
	// held.
	ErrInsufficientHoldings = errors.New("ledger: insufficient holdings")
)

// NewID generates transaction ids. Tests may replace it.
var NewID = func() string { return uuid.New().String() }

// ValidateTrade checks a trade against state without mutating anything.
func ValidateTrade(state model.UserState, dir model.Direction, symbol string, qty, price decimal.Decimal) error {
	if strings.TrimSpace(symbol) == "" {
		return ErrInvalidSymbol
	}
	if !qty.IsPositive() {
		return ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return ErrInvalidPrice
	}

	switch dir {
	case model.DirectionBuy:
		if qty.Mul(price).GreaterThan(state.Cash) {
			return ErrInsufficientFunds
		}
	case model.DirectionSell:
		if qty.GreaterThan(state.Holding(symbol)) {
			return ErrInsufficientHoldings
		}
	}
	return nil
}

// Buy spends qty × price of cash on symbol. On rejection the returned state
// is the input state and the transaction is zero.
func Buy(state model.UserState, symbol string, qty, price decimal.Decimal, now time.Time) (model.UserState, model.Transaction, error) {
	return execute(state, model.DirectionBuy, symbol, qty, price, now)
}

// Sell converts qty of symbol back into cash at price. A position that
// reaches zero is removed from Holdings.
func Sell(state model.UserState, symbol string, qty, price decimal.Decimal, now time.Time) (model.UserState, model.Transaction, error) {
	return execute(state, model.DirectionSell, symbol, qty, price, now)
}

func execute(state model.UserState, dir model.Direction, symbol string, qty, price decimal.Decimal, now time.Time) (model.UserState, model.Transaction, error) {
	if err := ValidateTrade(state, dir, symbol, qty, price); err != nil {
		return state, model.Transaction{}, err
	}

	tx := model.Transaction{
		ID:        NewID(),
		Direction: dir,
		Symbol:    symbol,
		Quantity:  qty,
		Price:     price,
		Timestamp: now.UTC(),
	}

	next := state.Clone()
	switch dir {
	case model.DirectionBuy:
		next.Cash = next.Cash.Sub(tx.Total())
		next.Holdings[symbol] = next.Holdings[symbol].Add(qty)
	case model.DirectionSell:
		next.Cash = next.Cash.Add(tx.Total())
		remaining := next.Holdings[symbol].Sub(qty)
		if remaining.IsZero() {
			delete(next.Holdings, symbol)
		} else {
			next.Holdings[symbol] = remaining
		}
	}

	next.Transactions = append([]model.Transaction{tx}, next.Transactions...)

	return next, tx, nil
}

// PortfolioValue marks holdings to market with prices and adds cash.
// Symbols without a price are valued at zero.
func PortfolioValue(state model.UserState, prices map[string]decimal.Decimal) decimal.Decimal {
	total := state.Cash
	for sym, qty := range state.Holdings {
		if p, ok := prices[sym]; ok {
			total = total.Add(qty.Mul(p))
		}
	}
	return total
}
