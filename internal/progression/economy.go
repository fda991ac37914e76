package progression

import (
	"context"
	"fmt"
	"strings"

	"github.com/mercadomaster/economy-engine/internal/model"
)

// Shop prices in coins.
const (
	DefaultRefillCost int64 = 300
	DefaultStake      int64 = 100
	ChestReward       int64 = 20
)

// Item is a consumable lesson power-up.
type Item string

const (
	ItemHint5050   Item = "hint5050"
	ItemTimeFreeze Item = "time_freeze"
	ItemSkip       Item = "skip"
)

// ItemCosts is the coin price of an item when none is in the inventory.
var ItemCosts = map[Item]int64{
	ItemHint5050:   50,
	ItemTimeFreeze: 100,
	ItemSkip:       150,
}

// DeductHeart removes one heart, never going below zero.
func (c *Controller) DeductHeart(ctx context.Context) (Outcome, error) {
	return c.apply(ctx, "deduct_heart", func(s *model.UserState) ([]model.Transaction, error) {
		loseHeart(s)
		return nil, nil
	})
}

func loseHeart(s *model.UserState) {
	if s.Hearts > 0 {
		s.Hearts--
	}
}

// RefillHearts buys a full set of hearts for cost coins.
func (c *Controller) RefillHearts(ctx context.Context, cost int64) (Outcome, error) {
	if cost < 0 {
		return c.rejected(ErrInvalidAmount)
	}
	return c.apply(ctx, "refill_hearts", func(s *model.UserState) ([]model.Transaction, error) {
		if s.Coins < cost {
			return nil, fmt.Errorf("%w: refill costs %d, have %d", ErrInsufficientCoins, cost, s.Coins)
		}
		s.Coins -= cost
		s.Hearts = s.MaxHearts
		return nil, nil
	})
}

// SpendItem uses one item, taking it from the inventory when available and
// paying its coin price otherwise.
func (c *Controller) SpendItem(ctx context.Context, item Item) (Outcome, error) {
	cost, ok := ItemCosts[item]
	if !ok {
		return c.rejected(fmt.Errorf("%w: %q", ErrUnknownItem, item))
	}

	return c.apply(ctx, "spend_item", func(s *model.UserState) ([]model.Transaction, error) {
		slot := inventorySlot(&s.Inventory, item)
		if *slot > 0 {
			*slot--
			return nil, nil
		}
		if s.Coins < cost {
			return nil, fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientCoins, item, cost, s.Coins)
		}
		s.Coins -= cost
		return nil, nil
	})
}

func inventorySlot(inv *model.Inventory, item Item) *int {
	switch item {
	case ItemHint5050:
		return &inv.Hint5050
	case ItemTimeFreeze:
		return &inv.TimeFreeze
	default:
		return &inv.Skip
	}
}

// Stake locks amount coins.
func (c *Controller) Stake(ctx context.Context, amount int64) (Outcome, error) {
	if amount <= 0 {
		return c.rejected(ErrInvalidAmount)
	}
	return c.apply(ctx, "stake", func(s *model.UserState) ([]model.Transaction, error) {
		if s.Coins < amount {
			return nil, fmt.Errorf("%w: stake %d, have %d", ErrInsufficientCoins, amount, s.Coins)
		}
		s.Coins -= amount
		s.StakedCoins += amount
		return nil, nil
	})
}

// Unstake returns every staked coin. With nothing staked it is a no-op.
func (c *Controller) Unstake(ctx context.Context) (Outcome, error) {
	return c.apply(ctx, "unstake", func(s *model.UserState) ([]model.Transaction, error) {
		s.Coins += s.StakedCoins
		s.StakedCoins = 0
		return nil, nil
	})
}

// OpenChest pays ChestReward the first time chestID is opened. Opening it
// again changes nothing.
func (c *Controller) OpenChest(ctx context.Context, chestID string) (Outcome, error) {
	chestID = strings.TrimSpace(chestID)
	if chestID == "" {
		return c.rejected(fmt.Errorf("%w: chest id is required", ErrInvalidInput))
	}
	return c.apply(ctx, "open_chest", func(s *model.UserState) ([]model.Transaction, error) {
		if contains(s.OpenedChests, chestID) {
			return nil, nil
		}
		s.OpenedChests = append(s.OpenedChests, chestID)
		s.Coins += ChestReward
		return nil, nil
	})
}

// MineCoin is the idle clicker: one coin per call.
func (c *Controller) MineCoin(ctx context.Context) (Outcome, error) {
	return c.apply(ctx, "mine_coin", func(s *model.UserState) ([]model.Transaction, error) {
		s.Coins++
		s.MinedCoins++
		return nil, nil
	})
}

// AddBookmark saves a glossary term once.
func (c *Controller) AddBookmark(ctx context.Context, term string) (Outcome, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return c.rejected(fmt.Errorf("%w: term is required", ErrInvalidInput))
	}
	return c.apply(ctx, "add_bookmark", func(s *model.UserState) ([]model.Transaction, error) {
		if !contains(s.Bookmarks, term) {
			s.Bookmarks = append(s.Bookmarks, term)
		}
		return nil, nil
	})
}

var themeCycle = []model.Theme{model.ThemeDefault, model.ThemeCyberpunk, model.ThemeTerminal}

// ToggleTheme advances to the next cosmetic theme.
func (c *Controller) ToggleTheme(ctx context.Context) (Outcome, error) {
	return c.apply(ctx, "toggle_theme", func(s *model.UserState) ([]model.Transaction, error) {
		next := 0
		for i, t := range themeCycle {
			if t == s.Theme {
				next = (i + 1) % len(themeCycle)
				break
			}
		}
		s.Theme = themeCycle[next]
		return nil, nil
	})
}

// UpdateNotes replaces the learner's scratchpad.
func (c *Controller) UpdateNotes(ctx context.Context, notes string) (Outcome, error) {
	return c.apply(ctx, "update_notes", func(s *model.UserState) ([]model.Transaction, error) {
		s.QuickNotes = notes
		return nil, nil
	})
}
