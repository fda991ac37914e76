package quiz

import (
	"encoding/json"
	"fmt"
)

// rawQuestion is the flat content format lessons are authored in: one
// object keyed by "type" with optional per-variant fields.
type rawQuestion struct {
	Type        string `json:"type"`
	Question    string `json:"question"`
	Difficulty  string `json:"difficulty"`
	Explanation string `json:"explanation"`

	Options           []string `json:"options"`
	CorrectIndex      *int     `json:"correctIndex"`
	CorrectAnswerText string   `json:"correctAnswerText"`

	Pairs        []Pair   `json:"pairs"`
	CorrectOrder []string `json:"correctOrder"`

	ChartData *struct {
		Trend         string `json:"trend"`
		IndicatorHint string `json:"indicatorHint"`
	} `json:"chartData"`

	RiskScenario *struct {
		CorrectValue float64 `json:"correctValue"`
		Tolerance    float64 `json:"tolerance"`
		MinLabel     string  `json:"minLabel"`
		MaxLabel     string  `json:"maxLabel"`
	} `json:"riskScenario"`

	PortfolioAssets     []Asset `json:"portfolioAssets"`
	PortfolioTargetRisk float64 `json:"portfolioTargetRisk"`

	SentimentCards []Card `json:"sentimentCards"`
}

// Decode parses one question in the content format. The result may still
// be malformed; use Answerable before presenting it.
func Decode(data []byte) (Question, error) {
	var raw rawQuestion
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}
	return raw.question()
}

// DecodeAll parses a lesson's question list, keeping order.
func DecodeAll(data []byte) ([]Question, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	out := make([]Question, 0, len(raws))
	for i, r := range raws {
		q, err := Decode(r)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func (r rawQuestion) question() (Question, error) {
	base := Base{Text: r.Question, Difficulty: r.Difficulty, Explanation: r.Explanation}
	choice := MultipleChoice{
		Base:         base,
		Options:      r.Options,
		CorrectIndex: r.CorrectIndex,
		CorrectText:  r.CorrectAnswerText,
	}

	switch Type(r.Type) {
	case TypeMultipleChoice:
		return choice, nil
	case TypeTrueFalse:
		return TrueFalse(choice), nil
	case TypeBinaryPrediction:
		return BinaryPrediction(choice), nil
	case TypeCandleChart:
		q := CandleChart{Base: base, Options: r.Options, CorrectIndex: r.CorrectIndex, CorrectText: r.CorrectAnswerText}
		if r.ChartData != nil {
			q.Trend = r.ChartData.Trend
			q.IndicatorHint = r.ChartData.IndicatorHint
		}
		return q, nil
	case TypeMatching:
		return Matching{Base: base, Pairs: r.Pairs}, nil
	case TypeOrdering:
		return Ordering{Base: base, CorrectOrder: r.CorrectOrder}, nil
	case TypeRiskSlider:
		q := RiskSlider{Base: base}
		if r.RiskScenario != nil {
			q.Target = r.RiskScenario.CorrectValue
			q.Tolerance = r.RiskScenario.Tolerance
			q.MinLabel = r.RiskScenario.MinLabel
			q.MaxLabel = r.RiskScenario.MaxLabel
		}
		return q, nil
	case TypePortfolioBalancing:
		return PortfolioBalancing{Base: base, Assets: r.PortfolioAssets, TargetRisk: r.PortfolioTargetRisk}, nil
	case TypeSentimentSwipe:
		return SentimentSwipe{Base: base, Cards: r.SentimentCards}, nil
	case TypeFillInBlank, "word_construction":
		return FillInBlank{Base: base, Options: r.Options, Answer: r.CorrectAnswerText}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, r.Type)
	}
}

// rawAnswer accepts every answer shape; the question type picks the fields.
type rawAnswer struct {
	Selected *int               `json:"selected"`
	Matched  []string           `json:"matched"`
	Sequence []string           `json:"sequence"`
	Value    *float64           `json:"value"`
	Weights  map[string]float64 `json:"weights"`
	Choices  []Sentiment        `json:"choices"`
}

// DecodeAnswer parses an answer for a question of type t. Missing fields
// decode as an empty interaction, which validates as false.
func DecodeAnswer(t Type, data []byte) (Answer, error) {
	var raw rawAnswer
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
	}

	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeBinaryPrediction, TypeCandleChart, TypeFillInBlank:
		sel := -1
		if raw.Selected != nil {
			sel = *raw.Selected
		}
		return ChoiceAnswer{Selected: sel}, nil
	case TypeMatching:
		return MatchingAnswer{Matched: raw.Matched}, nil
	case TypeOrdering:
		return OrderingAnswer{Sequence: raw.Sequence}, nil
	case TypeRiskSlider:
		// An untouched slider sits at the midpoint.
		v := DefaultSliderTarget
		if raw.Value != nil {
			v = *raw.Value
		}
		return SliderAnswer{Value: v}, nil
	case TypePortfolioBalancing:
		return AllocationAnswer{Weights: raw.Weights}, nil
	case TypeSentimentSwipe:
		return SwipeAnswer{Choices: raw.Choices}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}
