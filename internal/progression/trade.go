package progression

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/ledger"
	"github.com/mercadomaster/economy-engine/internal/metrics"
	"github.com/mercadomaster/economy-engine/internal/model"
)

// Buy fills a simulated buy at price. The caller reads price once from the
// market clock; the controller never re-reads it.
func (c *Controller) Buy(ctx context.Context, symbol string, qty, price decimal.Decimal) (Outcome, error) {
	return c.trade(ctx, model.DirectionBuy, symbol, qty, price)
}

// Sell fills a simulated sell at price.
func (c *Controller) Sell(ctx context.Context, symbol string, qty, price decimal.Decimal) (Outcome, error) {
	return c.trade(ctx, model.DirectionSell, symbol, qty, price)
}

func (c *Controller) trade(ctx context.Context, dir model.Direction, symbol string, qty, price decimal.Decimal) (Outcome, error) {
	start := time.Now()
	side := string(dir)

	out, err := c.apply(ctx, "trade_"+side, func(s *model.UserState) ([]model.Transaction, error) {
		var (
			next model.UserState
			tx   model.Transaction
			err  error
		)
		if dir == model.DirectionBuy {
			next, tx, err = ledger.Buy(*s, symbol, qty, price, c.now())
		} else {
			next, tx, err = ledger.Sell(*s, symbol, qty, price, c.now())
		}
		if err != nil {
			return nil, err
		}
		*s = next
		return []model.Transaction{tx}, nil
	})
	if err != nil {
		if !errors.Is(err, ErrPersist) {
			metrics.TradeRejections.WithLabelValues(rejectionReason(err)).Inc()
		}
		slog.Warn("trade rejected",
			"side", side,
			"symbol", symbol,
			"qty", qty.String(),
			"price", price.String(),
			"err", err,
		)
		return out, err
	}

	metrics.TradesTotal.WithLabelValues(side).Inc()
	metrics.TradeLatency.WithLabelValues(side).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"trade_id", out.Transaction.ID,
		"side", side,
		"symbol", symbol,
		"qty", qty.String(),
		"price", price.String(),
		"cash", out.State.Cash.String(),
	)
	return out, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ledger.ErrInsufficientHoldings):
		return "insufficient_holdings"
	default:
		return "invalid_input"
	}
}
