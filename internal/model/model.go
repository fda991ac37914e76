// Package model defines the core domain types shared across the economy engine.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a portfolio transaction.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Transaction is an immutable record of a ledger operation.
// Once created, these are never modified or deleted.
type Transaction struct {
	ID        string          `json:"id"`
	Direction Direction       `json:"direction"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // unit price at fill
	Timestamp time.Time       `json:"timestamp"`
}

// Total returns quantity × unit price.
func (t Transaction) Total() decimal.Decimal {
	return t.Quantity.Mul(t.Price)
}

// QuestType is the metric a daily quest accumulates.
type QuestType string

const (
	QuestXP      QuestType = "xp"
	QuestLessons QuestType = "lessons"
	QuestPerfect QuestType = "perfect"
)

// DailyQuest tracks progress toward one daily target.
type DailyQuest struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      QuestType `json:"type"`
	Target    int64     `json:"target"`
	Progress  int64     `json:"progress"`
	Completed bool      `json:"completed"`
	Reward    int64     `json:"reward"` // coins
}

// Inventory holds consumable lesson power-ups.
type Inventory struct {
	Hint5050     int `json:"hint5050"`
	TimeFreeze   int `json:"time_freeze"`
	Skip         int `json:"skip"`
	StreakFreeze int `json:"streak_freeze"`
	DoubleXP     int `json:"double_xp"`
}

// QuizStats aggregates answered questions across sessions.
type QuizStats struct {
	Answered  int64 `json:"answered"`
	Correct   int64 `json:"correct"`
	Combo     int64 `json:"combo"`
	BestCombo int64 `json:"best_combo"`
}

// Theme is a cosmetic preference; the engine only cycles it.
type Theme string

const (
	ThemeDefault   Theme = "default"
	ThemeCyberpunk Theme = "cyberpunk"
	ThemeTerminal  Theme = "terminal"
)

// UserState is the root aggregate for the single learner profile.
//
// Invariants: Cash >= 0, every Holdings quantity >= 0, 0 <= Hearts <= MaxHearts,
// UnlockedAchievements never shrinks and never holds duplicates, Level never
// decreases.
type UserState struct {
	XP     int64  `json:"xp"`
	Level  int64  `json:"level"`
	League string `json:"league"`
	Streak int64  `json:"streak"`

	Cash  decimal.Decimal `json:"cash"`  // simulated trading cash
	Coins int64           `json:"coins"` // gamified currency

	Hearts    int `json:"hearts"`
	MaxHearts int `json:"max_hearts"`

	Holdings     map[string]decimal.Decimal `json:"holdings"`
	Transactions []Transaction              `json:"transactions"` // newest first

	UnlockedAchievements []string `json:"unlocked_achievements"`

	DailyQuests      []DailyQuest     `json:"daily_quests"`
	PathProgress     map[string]int64 `json:"path_progress"`
	CompletedLessons []string         `json:"completed_lessons"`
	LevelRatings     map[string]int   `json:"level_ratings"`
	Inventory        Inventory        `json:"inventory"`
	Bookmarks        []string         `json:"bookmarks"`
	OpenedChests     []string         `json:"opened_chests"`
	QuizStats        QuizStats        `json:"quiz_stats"`

	StakedCoins int64 `json:"staked_coins"`
	MinedCoins  int64 `json:"mined_coins"`
	Prestige    int64 `json:"prestige"`

	LastLogin  *time.Time `json:"last_login,omitempty"`
	Theme      Theme      `json:"theme"`
	QuickNotes string     `json:"quick_notes"`
}

// Starting balances for a fresh profile.
var (
	StartingCash        = decimal.NewFromInt(10000)
	StartingCoins int64 = 350
	DefaultHearts       = 5
)

// Learning paths known to the curriculum.
const (
	PathStocks = "stocks"
	PathCrypto = "crypto"
)

// DefaultQuests returns the quest set a new day starts with.
func DefaultQuests() []DailyQuest {
	return []DailyQuest{
		{ID: "q1", Text: "Earn 50 XP", Type: QuestXP, Target: 50, Reward: 50},
		{ID: "q2", Text: "Complete 2 lessons", Type: QuestLessons, Target: 2, Reward: 100},
		{ID: "q3", Text: "Finish a perfect run", Type: QuestPerfect, Target: 1, Reward: 200},
	}
}

// NewUserState returns the state of a brand-new profile.
func NewUserState() UserState {
	return UserState{
		Level:       1,
		League:      "Bronze",
		Streak:      1,
		Cash:        StartingCash,
		Coins:       StartingCoins,
		Hearts:      DefaultHearts,
		MaxHearts:   DefaultHearts,
		Holdings:    map[string]decimal.Decimal{},
		DailyQuests: DefaultQuests(),
		PathProgress: map[string]int64{
			PathStocks: 0,
			PathCrypto: 0,
		},
		LevelRatings: map[string]int{},
		Inventory: Inventory{
			Hint5050:     3,
			TimeFreeze:   2,
			Skip:         1,
			StreakFreeze: 1,
		},
		Theme: ThemeDefault,
	}
}

// HasAchievement reports whether id is already unlocked.
func (s *UserState) HasAchievement(id string) bool {
	for _, a := range s.UnlockedAchievements {
		if a == id {
			return true
		}
	}
	return false
}

// Holding returns the quantity held for symbol (zero if none).
func (s *UserState) Holding(symbol string) decimal.Decimal {
	return s.Holdings[symbol]
}

// HeldSymbols counts symbols with a strictly positive quantity.
func (s *UserState) HeldSymbols() int {
	n := 0
	for _, q := range s.Holdings {
		if q.IsPositive() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can derive a new state without
// touching the receiver.
func (s UserState) Clone() UserState {
	out := s

	out.Holdings = make(map[string]decimal.Decimal, len(s.Holdings))
	for k, v := range s.Holdings {
		out.Holdings[k] = v
	}
	out.PathProgress = make(map[string]int64, len(s.PathProgress))
	for k, v := range s.PathProgress {
		out.PathProgress[k] = v
	}
	out.LevelRatings = make(map[string]int, len(s.LevelRatings))
	for k, v := range s.LevelRatings {
		out.LevelRatings[k] = v
	}

	out.Transactions = append([]Transaction(nil), s.Transactions...)
	out.UnlockedAchievements = append([]string(nil), s.UnlockedAchievements...)
	out.DailyQuests = append([]DailyQuest(nil), s.DailyQuests...)
	out.CompletedLessons = append([]string(nil), s.CompletedLessons...)
	out.Bookmarks = append([]string(nil), s.Bookmarks...)
	out.OpenedChests = append([]string(nil), s.OpenedChests...)

	if s.LastLogin != nil {
		t := *s.LastLogin
		out.LastLogin = &t
	}
	return out
}
