package progression

import (
	"context"
	"log/slog"

	"github.com/mercadomaster/economy-engine/internal/model"
)

// XPPerLevel is the experience needed for each level.
const XPPerLevel = 500

// Level derives the level from cumulative experience.
//
//	Level(499) == 1
//	Level(500) == 2
func Level(xp int64) int64 {
	if xp < 0 {
		return 1
	}
	return xp/XPPerLevel + 1
}

// LessonReward describes a finished lesson.
type LessonReward struct {
	XP             int64  `json:"xp"`
	PathID         string `json:"path_id"`
	LevelIncrement int64  `json:"level_increment"`
	PerfectRun     bool   `json:"perfect_run"`

	// Optional bookkeeping for the curriculum map.
	LessonID string `json:"lesson_id,omitempty"`
	Stars    int    `json:"stars,omitempty"`
}

// ApplyLessonReward grants experience, pays half of it in coins, advances
// the learning path and accumulates daily quests. Quests that complete in
// this call pay their reward.
func (c *Controller) ApplyLessonReward(ctx context.Context, r LessonReward) (Outcome, error) {
	if r.XP < 0 || r.LevelIncrement < 0 || r.Stars < 0 {
		return c.rejected(ErrInvalidAmount)
	}

	return c.apply(ctx, "lesson_reward", func(s *model.UserState) ([]model.Transaction, error) {
		s.XP += r.XP
		s.Coins += r.XP / 2

		if r.PathID != "" {
			s.PathProgress[r.PathID] += r.LevelIncrement
		}
		if r.LessonID != "" {
			if !contains(s.CompletedLessons, r.LessonID) {
				s.CompletedLessons = append(s.CompletedLessons, r.LessonID)
			}
			if r.Stars > s.LevelRatings[r.LessonID] {
				s.LevelRatings[r.LessonID] = r.Stars
			}
		}

		paid := advanceQuests(s, r)
		s.Coins += paid

		slog.Info("lesson completed",
			"xp", r.XP,
			"path", r.PathID,
			"perfect", r.PerfectRun,
			"quest_rewards", paid,
		)
		return nil, nil
	})
}

// advanceQuests adds this lesson's contribution to every open quest and
// returns the coins owed for quests that completed now. Completed quests
// no longer accumulate.
func advanceQuests(s *model.UserState, r LessonReward) int64 {
	var paid int64
	for i := range s.DailyQuests {
		q := &s.DailyQuests[i]
		if q.Completed {
			continue
		}

		switch q.Type {
		case model.QuestXP:
			q.Progress += r.XP
		case model.QuestLessons:
			if r.LevelIncrement > 0 {
				q.Progress++
			}
		case model.QuestPerfect:
			if r.PerfectRun {
				q.Progress++
			}
		}

		if q.Progress >= q.Target {
			q.Completed = true
			paid += q.Reward
		}
	}
	return paid
}

// ResetDailyQuests restores the day's initial quest set. It is driven by
// the midnight scheduler.
func (c *Controller) ResetDailyQuests(ctx context.Context) (Outcome, error) {
	return c.apply(ctx, "reset_quests", func(s *model.UserState) ([]model.Transaction, error) {
		s.DailyQuests = model.DefaultQuests()
		now := c.now()
		s.LastLogin = &now
		return nil, nil
	})
}

// rejected returns the current state with err, without touching it.
func (c *Controller) rejected(err error) (Outcome, error) {
	return Outcome{State: c.Snapshot()}, err
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
