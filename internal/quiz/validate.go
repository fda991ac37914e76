package quiz

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

var (
	// ErrMalformedQuestion is returned when a question lacks the answer-key
	// data its variant needs. Callers skip such questions.
	ErrMalformedQuestion = errors.New("quiz: question is missing its answer key")

	// ErrAnswerMismatch is returned when the answer shape does not belong to
	// the question variant.
	ErrAnswerMismatch = errors.New("quiz: answer does not fit question type")

	// ErrUnknownType is returned for variants this package does not know.
	ErrUnknownType = errors.New("quiz: unknown question type")
)

// optionPrefix matches enumerators like "a) ", "B. " or "1) " that content
// authors prepend to options inconsistently.
var optionPrefix = regexp.MustCompile(`(?i)^[a-z0-9][\)\.]\s*`)

// Normalize strips a leading enumerator, trims and lower-cases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(optionPrefix.ReplaceAllString(s, "")))
}

// Check reports whether q carries enough answer-key data to be validated.
func Check(q Question) error {
	var ok bool
	switch q := q.(type) {
	case MultipleChoice:
		ok = choiceKeyed(q)
	case TrueFalse:
		ok = choiceKeyed(MultipleChoice(q))
	case BinaryPrediction:
		ok = choiceKeyed(MultipleChoice(q))
	case CandleChart:
		ok = q.Trend == TrendUp || q.Trend == TrendDown || choiceKeyed(q.choiceKey())
	case Matching:
		ok = len(q.Pairs) > 0
	case Ordering:
		ok = len(q.CorrectOrder) > 0
	case RiskSlider:
		ok = true // zero values fall back to the defaults
	case PortfolioBalancing:
		ok = len(q.Assets) > 0
	case SentimentSwipe:
		ok = len(q.Cards) > 0
	case FillInBlank:
		ok = len(q.Options) > 0 && q.Answer != ""
	case nil:
		return ErrMalformedQuestion
	default:
		return fmt.Errorf("%w: %T", ErrUnknownType, q)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMalformedQuestion, q.Kind())
	}
	return nil
}

// Answerable reports whether q can be presented and validated.
func Answerable(q Question) bool {
	return Check(q) == nil
}

// Validate decides correctness of answer for q. The error is non-nil only
// for malformed questions or an answer of the wrong shape; a wrong answer is
// (false, nil).
func Validate(q Question, answer Answer) (bool, error) {
	if err := Check(q); err != nil {
		return false, err
	}

	switch q := q.(type) {
	case MultipleChoice:
		return withChoice(answer, func(a ChoiceAnswer) bool { return validateChoice(q, a) })
	case TrueFalse:
		return withChoice(answer, func(a ChoiceAnswer) bool { return validateChoice(MultipleChoice(q), a) })
	case BinaryPrediction:
		return withChoice(answer, func(a ChoiceAnswer) bool { return validateChoice(MultipleChoice(q), a) })
	case CandleChart:
		return withChoice(answer, func(a ChoiceAnswer) bool { return validateCandleChart(q, a) })
	case FillInBlank:
		return withChoice(answer, func(a ChoiceAnswer) bool { return validateFillInBlank(q, a) })
	case Matching:
		a, ok := answer.(MatchingAnswer)
		if !ok {
			return false, mismatch(q, answer)
		}
		return validateMatching(q, a), nil
	case Ordering:
		a, ok := answer.(OrderingAnswer)
		if !ok {
			return false, mismatch(q, answer)
		}
		return validateOrdering(q, a), nil
	case RiskSlider:
		a, ok := answer.(SliderAnswer)
		if !ok {
			return false, mismatch(q, answer)
		}
		return validateSlider(q, a), nil
	case PortfolioBalancing:
		a, ok := answer.(AllocationAnswer)
		if !ok {
			return false, mismatch(q, answer)
		}
		return validatePortfolio(q, a), nil
	case SentimentSwipe:
		a, ok := answer.(SwipeAnswer)
		if !ok {
			return false, mismatch(q, answer)
		}
		return validateSwipe(q, a), nil
	}
	// Unreachable: Check rejects unknown variants.
	return false, ErrUnknownType
}

func withChoice(answer Answer, fn func(ChoiceAnswer) bool) (bool, error) {
	a, ok := answer.(ChoiceAnswer)
	if !ok {
		return false, fmt.Errorf("%w: want ChoiceAnswer, got %T", ErrAnswerMismatch, answer)
	}
	return fn(a), nil
}

func mismatch(q Question, answer Answer) error {
	return fmt.Errorf("%w: %s got %T", ErrAnswerMismatch, q.Kind(), answer)
}

func choiceKeyed(q MultipleChoice) bool {
	if len(q.Options) == 0 {
		return false
	}
	return q.CorrectIndex != nil || strings.TrimSpace(q.CorrectText) != ""
}

// validateChoice accepts either an index match or a normalized text match,
// so a key whose index and text drifted apart still grades the intended
// option as correct.
func validateChoice(q MultipleChoice, a ChoiceAnswer) bool {
	if a.Selected < 0 || a.Selected >= len(q.Options) {
		return false
	}
	if q.CorrectIndex != nil && *q.CorrectIndex == a.Selected {
		return true
	}
	if q.CorrectText == "" {
		return false
	}
	return Normalize(q.Options[a.Selected]) == Normalize(q.CorrectText)
}

func validateCandleChart(q CandleChart, a ChoiceAnswer) bool {
	switch q.Trend {
	case TrendUp:
		return a.Selected == 0
	case TrendDown:
		return a.Selected == 1
	default:
		return validateChoice(q.choiceKey(), a)
	}
}

func validateFillInBlank(q FillInBlank, a ChoiceAnswer) bool {
	if a.Selected < 0 || a.Selected >= len(q.Options) {
		return false
	}
	return q.Options[a.Selected] == q.Answer
}

// validateMatching passes once both sides of every pair are matched.
// Repeated ids count once.
func validateMatching(q Matching, a MatchingAnswer) bool {
	seen := make(map[string]struct{}, len(a.Matched))
	for _, id := range a.Matched {
		seen[id] = struct{}{}
	}
	return len(seen) == 2*len(q.Pairs)
}

func validateOrdering(q Ordering, a OrderingAnswer) bool {
	if len(a.Sequence) != len(q.CorrectOrder) {
		return false
	}
	for i := range q.CorrectOrder {
		if a.Sequence[i] != q.CorrectOrder[i] {
			return false
		}
	}
	return true
}

func validateSlider(q RiskSlider, a SliderAnswer) bool {
	if !finite(a.Value) {
		return false
	}
	target := q.Target
	if target == 0 {
		target = DefaultSliderTarget
	}
	tol := q.Tolerance
	if tol == 0 {
		tol = DefaultSliderTolerance
	}
	return math.Abs(a.Value-target) <= tol
}

// validatePortfolio requires the weights to sum to 100 (±1) and the
// weighted risk Σ(w/100 × risk) to land within 15 of the target. Weights for
// names not in the question are ignored in the risk score but still count
// toward the total.
func validatePortfolio(q PortfolioBalancing, a AllocationAnswer) bool {
	total := 0.0
	for _, w := range a.Weights {
		if !finite(w) || w < 0 {
			return false
		}
		total += w
	}
	if math.Abs(total-AllocationTotal) > AllocationSlack {
		return false
	}

	risk := 0.0
	for _, asset := range q.Assets {
		risk += a.Weights[asset.Name] / 100 * asset.RiskScore
	}
	target := q.TargetRisk
	if target == 0 {
		target = DefaultTargetRisk
	}
	return math.Abs(risk-target) <= TargetRiskSlack
}

// validateSwipe grades card by card; cards without a choice count as wrong.
func validateSwipe(q SentimentSwipe, a SwipeAnswer) bool {
	correct := 0
	for i, card := range q.Cards {
		if i < len(a.Choices) && a.Choices[i] == card.Sentiment {
			correct++
		}
	}
	return float64(correct) >= float64(len(q.Cards))*SentimentPassRatio
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
