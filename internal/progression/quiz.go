package progression

import (
	"context"
	"log/slog"

	"github.com/mercadomaster/economy-engine/internal/metrics"
	"github.com/mercadomaster/economy-engine/internal/model"
	"github.com/mercadomaster/economy-engine/internal/quiz"
)

// RecordQuizAnswer updates quiz statistics. A wrong answer costs a heart;
// Outcome.OutOfHearts tells survival-mode callers the run is over.
func (c *Controller) RecordQuizAnswer(ctx context.Context, correct bool, q quiz.Question) (Outcome, error) {
	kind := "unknown"
	if q != nil {
		kind = string(q.Kind())
	}

	out, err := c.apply(ctx, "quiz_answer", func(s *model.UserState) ([]model.Transaction, error) {
		st := &s.QuizStats
		st.Answered++
		if correct {
			st.Correct++
			st.Combo++
			st.BestCombo = max(st.BestCombo, st.Combo)
		} else {
			st.Combo = 0
			loseHeart(s)
		}
		return nil, nil
	})
	if err != nil {
		return out, err
	}

	result := "wrong"
	if correct {
		result = "correct"
	}
	metrics.QuizAnswers.WithLabelValues(kind, result).Inc()
	return out, nil
}

// SubmitAnswer validates answer against q and records the result.
// Malformed questions return quiz.ErrMalformedQuestion and record nothing;
// the caller should skip them.
func (c *Controller) SubmitAnswer(ctx context.Context, q quiz.Question, answer quiz.Answer) (bool, Outcome, error) {
	correct, err := quiz.Validate(q, answer)
	if err != nil {
		slog.Warn("quiz answer not graded", "err", err)
		out, _ := c.rejected(err)
		return false, out, err
	}

	out, err := c.RecordQuizAnswer(ctx, correct, q)
	return correct, out, err
}
