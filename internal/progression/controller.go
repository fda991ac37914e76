// Package progression owns the learner's state and is the only place it
// changes.
//
// Every public operation follows the same protocol under one mutex:
// mutate a copy, recompute level, evaluate achievements until nothing new
// unlocks, persist, swap, notify. Achievements are therefore always judged
// on the post-mutation state. A failed persist leaves the previous state in
// place.
package progression

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mercadomaster/economy-engine/internal/achievement"
	"github.com/mercadomaster/economy-engine/internal/metrics"
	"github.com/mercadomaster/economy-engine/internal/model"
	"github.com/mercadomaster/economy-engine/internal/store"
)

var (
	// ErrInsufficientCoins is returned when a purchase costs more coins
	// than the learner has.
	ErrInsufficientCoins = errors.New("progression: not enough coins")

	// ErrInvalidAmount is returned for negative rewards, costs or stakes.
	ErrInvalidAmount = errors.New("progression: amount must be positive")

	// ErrUnknownItem is returned for inventory items that do not exist.
	ErrUnknownItem = errors.New("progression: unknown item")

	// ErrInvalidInput is returned for empty identifiers.
	ErrInvalidInput = errors.New("progression: invalid input")

	// ErrPersist wraps store failures. The state is left as it was.
	ErrPersist = errors.New("progression: failed to persist state")
)

// Notifier receives state notifications. Implementations must not block.
type Notifier interface {
	PublishAchievement(rule achievement.Rule)
	PublishState(state model.UserState)
}

// Outcome is the result of a successful operation.
type Outcome struct {
	State       model.UserState    `json:"state"`
	Unlocked    []achievement.Rule `json:"unlocked,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	OutOfHearts bool               `json:"out_of_hearts,omitempty"`
}

// Controller serializes all mutations of a single profile.
type Controller struct {
	store     store.Store
	profileID string
	rules     []achievement.Rule
	notifier  Notifier
	now       func() time.Time

	mu     sync.Mutex
	state  model.UserState
	latest *achievement.Rule
}

// New loads profileID from st, creating and saving a fresh profile if none
// exists. Pass nil for n if no one listens.
func New(ctx context.Context, st store.Store, profileID string, n Notifier) (*Controller, error) {
	state, err := st.LoadState(ctx, profileID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state = model.NewUserState()
		if err := st.SaveState(ctx, profileID, state); err != nil {
			return nil, fmt.Errorf("create profile %s: %w", profileID, err)
		}
		slog.Info("created profile", "profile", profileID)
	case err != nil:
		return nil, fmt.Errorf("load profile %s: %w", profileID, err)
	default:
		slog.Info("loaded profile",
			"profile", profileID,
			"xp", state.XP,
			"level", state.Level,
			"achievements", len(state.UnlockedAchievements),
		)
	}

	return &Controller{
		store:     st,
		profileID: profileID,
		rules:     achievement.DefaultRules(),
		notifier:  n,
		now:       func() time.Time { return time.Now().UTC() },
		state:     state,
	}, nil
}

// ProfileID returns the profile this controller serves.
func (c *Controller) ProfileID() string { return c.profileID }

// Rules returns the achievement catalog.
func (c *Controller) Rules() []achievement.Rule {
	return append([]achievement.Rule(nil), c.rules...)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() model.UserState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// LatestAchievement returns the most recent unlock until it is cleared.
func (c *Controller) LatestAchievement() (achievement.Rule, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return achievement.Rule{}, false
	}
	return *c.latest, true
}

// ClearLatestAchievement acknowledges the latest-achievement notification.
func (c *Controller) ClearLatestAchievement() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = nil
}

// Transactions returns the persisted journal, newest first.
func (c *Controller) Transactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	return c.store.ListTransactions(ctx, c.profileID, limit)
}

// mutation edits s in place and returns journal entries to persist with it.
// Returning an error rejects the operation.
type mutation func(s *model.UserState) ([]model.Transaction, error)

func (c *Controller) apply(ctx context.Context, op string, fn mutation) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.state.Clone()
	journal, err := fn(&next)
	if err != nil {
		return Outcome{State: c.state.Clone()}, err
	}

	unlocked := c.settle(&next)

	if err := c.store.SaveState(ctx, c.profileID, next, journal...); err != nil {
		metrics.PersistFailures.Inc()
		slog.Error("persist failed, keeping previous state", "op", op, "err", err)
		return Outcome{State: c.state.Clone()}, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	c.state = next
	for i := range unlocked {
		metrics.AchievementsUnlocked.WithLabelValues(unlocked[i].ID).Inc()
		slog.Info("achievement unlocked", "op", op, "achievement", unlocked[i].ID)
	}
	if len(unlocked) > 0 {
		last := unlocked[len(unlocked)-1]
		c.latest = &last
	}

	out := Outcome{
		State:       next.Clone(),
		Unlocked:    unlocked,
		OutOfHearts: next.Hearts == 0,
	}
	if len(journal) > 0 {
		tx := journal[len(journal)-1]
		out.Transaction = &tx
	}

	if c.notifier != nil {
		for _, r := range unlocked {
			c.notifier.PublishAchievement(r)
		}
		c.notifier.PublishState(out.State)
	}
	return out, nil
}

// settle recomputes the level and folds achievement unlocks into s until
// a pass unlocks nothing. Bonus XP can raise the level, which can unlock
// level-based rules, so one pass is not enough.
func (c *Controller) settle(s *model.UserState) []achievement.Rule {
	var unlocked []achievement.Rule
	for {
		s.Level = max(s.Level, Level(s.XP))

		res := achievement.Evaluate(*s, c.rules)
		if res.Empty() {
			return unlocked
		}
		*s = achievement.Apply(*s, res)
		for _, id := range res.NewlyUnlocked {
			if r, ok := achievement.Find(c.rules, id); ok {
				unlocked = append(unlocked, r)
			}
		}
	}
}
