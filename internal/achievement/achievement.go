// Package achievement evaluates a static rule set against a user state
// snapshot. Evaluation is pure: it reports what would unlock and never
// touches the state it is given.
package achievement

import (
	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/model"
)

// Per-unlock bonuses.
const (
	BonusXP    int64 = 100
	BonusCoins int64 = 50
)

// Rule is one achievement definition. Rules are static; they are never
// created or removed at runtime.
type Rule struct {
	ID          string                       `json:"id"`
	Title       string                       `json:"title"`
	Description string                       `json:"description"`
	Icon        string                       `json:"icon"`
	Predicate   func(s model.UserState) bool `json:"-"`
}

// Result holds the deltas of one evaluation.
type Result struct {
	NewlyUnlocked []string `json:"newly_unlocked"`
	BonusXP       int64    `json:"bonus_xp"`
	BonusCoins    int64    `json:"bonus_coins"`
}

// Empty reports whether nothing unlocked.
func (r Result) Empty() bool { return len(r.NewlyUnlocked) == 0 }

var (
	savingsTarget = decimal.NewFromInt(15000)
	btcTarget     = decimal.NewFromFloat(0.5)
)

// DefaultRules returns the product's achievement set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "first_steps",
			Title:       "First steps",
			Description: "Make your first trade.",
			Icon:        "🌱",
			Predicate:   func(s model.UserState) bool { return len(s.Transactions) >= 1 },
		},
		{
			ID:          "savings_master",
			Title:       "Savings master",
			Description: "Grow your cash balance to 15,000.",
			Icon:        "💰",
			Predicate:   func(s model.UserState) bool { return s.Cash.GreaterThanOrEqual(savingsTarget) },
		},
		{
			ID:          "btc_holder",
			Title:       "HODLer",
			Description: "Hold at least 0.5 BTC.",
			Icon:        "₿",
			Predicate:   func(s model.UserState) bool { return s.Holding("BTC").GreaterThanOrEqual(btcTarget) },
		},
		{
			ID:          "level_up",
			Title:       "Level up",
			Description: "Reach level 2.",
			Icon:        "⭐",
			Predicate:   func(s model.UserState) bool { return s.Level >= 2 },
		},
		{
			ID:          "diversified",
			Title:       "Diversified",
			Description: "Hold three different assets at once.",
			Icon:        "🧺",
			Predicate:   func(s model.UserState) bool { return s.HeldSymbols() >= 3 },
		},
	}
}

// Evaluate scans every rule once. A rule unlocks when its id is not yet in
// state.UnlockedAchievements and its predicate holds. Calling Evaluate again
// after folding the result into the state yields an empty result.
func Evaluate(state model.UserState, rules []Rule) Result {
	var res Result
	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] || state.HasAchievement(r.ID) {
			continue
		}
		if r.Predicate == nil || !r.Predicate(state) {
			continue
		}
		seen[r.ID] = true
		res.NewlyUnlocked = append(res.NewlyUnlocked, r.ID)
		res.BonusXP += BonusXP
		res.BonusCoins += BonusCoins
	}
	return res
}

// Apply folds a result into a copy of state.
func Apply(state model.UserState, res Result) model.UserState {
	if res.Empty() {
		return state
	}
	next := state.Clone()
	for _, id := range res.NewlyUnlocked {
		if !next.HasAchievement(id) {
			next.UnlockedAchievements = append(next.UnlockedAchievements, id)
		}
	}
	next.XP += res.BonusXP
	next.Coins += res.BonusCoins
	return next
}

// Find returns the rule with id.
func Find(rules []Rule, id string) (Rule, bool) {
	for _, r := range rules {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}
