// Package quiz decides whether a learner's interaction with a question is
// correct.
//
// Questions form a closed set of variants. Each variant carries its own
// answer key and is paired with one answer shape:
//
//	MultipleChoice, TrueFalse, BinaryPrediction  ChoiceAnswer
//	CandleChart, FillInBlank                     ChoiceAnswer
//	Matching                                     MatchingAnswer
//	Ordering                                     OrderingAnswer
//	RiskSlider                                   SliderAnswer
//	PortfolioBalancing                           AllocationAnswer
//	SentimentSwipe                               SwipeAnswer
//
// Validate is total: it never panics and always returns a boolean. Content
// whose answer key is missing is reported as ErrMalformedQuestion so the
// caller can skip it.
package quiz

// Type is the wire name of a question variant.
type Type string

const (
	TypeMultipleChoice     Type = "multiple_choice"
	TypeTrueFalse          Type = "true_false"
	TypeBinaryPrediction   Type = "binary_prediction"
	TypeCandleChart        Type = "candle_chart"
	TypeMatching           Type = "matching"
	TypeOrdering           Type = "ordering"
	TypeRiskSlider         Type = "risk_slider"
	TypePortfolioBalancing Type = "portfolio_balancing"
	TypeSentimentSwipe     Type = "sentiment_swipe"
	TypeFillInBlank        Type = "fill_in_blank"
)

// Question is implemented only by the variant types in this package.
type Question interface {
	Kind() Type
	Prompt() string
	isQuestion()
}

// Base holds the fields every variant shares.
type Base struct {
	Text        string `json:"question"`
	Difficulty  string `json:"difficulty,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

func (b Base) Prompt() string { return b.Text }

func (Base) isQuestion() {}

// MultipleChoice is answered by picking one option. Either CorrectIndex or
// CorrectText identifies the key; when both are present either may match.
type MultipleChoice struct {
	Base
	Options      []string
	CorrectIndex *int
	CorrectText  string
}

// TrueFalse is a two-option MultipleChoice.
type TrueFalse MultipleChoice

// BinaryPrediction asks whether a scenario moves a price up or down.
type BinaryPrediction MultipleChoice

// Chart trends a CandleChart can show.
const (
	TrendUp           = "up"
	TrendDown         = "down"
	TrendVolatile     = "volatile"
	TrendDojiReversal = "doji_reversal"
)

// CandleChart shows a simulated chart and asks for its direction. Option 0
// means up and option 1 means down. Other trends are graded by the choice
// key and are malformed without one.
type CandleChart struct {
	Base
	Options       []string
	Trend         string
	IndicatorHint string
	CorrectIndex  *int
	CorrectText   string
}

// choiceKey returns the chart's explicit answer key as a plain choice.
func (q CandleChart) choiceKey() MultipleChoice {
	return MultipleChoice{Base: q.Base, Options: q.Options, CorrectIndex: q.CorrectIndex, CorrectText: q.CorrectText}
}

// Pair is one left/right item of a Matching question.
type Pair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// Matching is complete once every item of every pair has been matched.
type Matching struct {
	Base
	Pairs []Pair
}

// Ordering expects the exact key sequence.
type Ordering struct {
	Base
	CorrectOrder []string
}

// Slider defaults applied when the content leaves them at zero.
const (
	DefaultSliderTarget    = 50.0
	DefaultSliderTolerance = 15.0
)

// RiskSlider accepts any value within Tolerance of Target.
type RiskSlider struct {
	Base
	Target    float64
	Tolerance float64
	MinLabel  string
	MaxLabel  string
}

// Asset is one line of a PortfolioBalancing question.
type Asset struct {
	Name      string  `json:"name"`
	Class     string  `json:"type"`
	RiskScore float64 `json:"riskScore"`
}

// Scoring tolerances.
const (
	DefaultTargetRisk  = 50.0
	AllocationTotal    = 100.0
	AllocationSlack    = 1.0
	TargetRiskSlack    = 15.0
	SentimentPassRatio = 0.8
)

// PortfolioBalancing asks for percentage weights summing to 100 whose
// weighted risk score lands near TargetRisk.
type PortfolioBalancing struct {
	Base
	Assets     []Asset
	TargetRisk float64
}

// Sentiment is a swipe classification.
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
)

// Card is one headline of a SentimentSwipe question.
type Card struct {
	Text      string    `json:"text"`
	Sentiment Sentiment `json:"sentiment"`
}

// SentimentSwipe passes when at least 80% of cards are classified right.
type SentimentSwipe struct {
	Base
	Cards []Card
}

// FillInBlank is a cloze question: the chosen option's text must equal
// Answer exactly, with no normalization.
type FillInBlank struct {
	Base
	Options []string
	Answer  string
}

func (MultipleChoice) Kind() Type     { return TypeMultipleChoice }
func (TrueFalse) Kind() Type          { return TypeTrueFalse }
func (BinaryPrediction) Kind() Type   { return TypeBinaryPrediction }
func (CandleChart) Kind() Type        { return TypeCandleChart }
func (Matching) Kind() Type           { return TypeMatching }
func (Ordering) Kind() Type           { return TypeOrdering }
func (RiskSlider) Kind() Type         { return TypeRiskSlider }
func (PortfolioBalancing) Kind() Type { return TypePortfolioBalancing }
func (SentimentSwipe) Kind() Type     { return TypeSentimentSwipe }
func (FillInBlank) Kind() Type        { return TypeFillInBlank }

// Answer is implemented only by the answer types in this package.
type Answer interface {
	isAnswer()
}

// ChoiceAnswer is the index of the selected option; -1 means none.
type ChoiceAnswer struct {
	Selected int `json:"selected"`
}

// MatchingAnswer lists the ids of every matched item (two per pair).
type MatchingAnswer struct {
	Matched []string `json:"matched"`
}

// OrderingAnswer is the sequence the learner built.
type OrderingAnswer struct {
	Sequence []string `json:"sequence"`
}

// SliderAnswer is the slider position.
type SliderAnswer struct {
	Value float64 `json:"value"`
}

// AllocationAnswer maps asset name to percentage weight.
type AllocationAnswer struct {
	Weights map[string]float64 `json:"weights"`
}

// SwipeAnswer holds one classification per card, in card order.
type SwipeAnswer struct {
	Choices []Sentiment `json:"choices"`
}

func (ChoiceAnswer) isAnswer()     {}
func (MatchingAnswer) isAnswer()   {}
func (OrderingAnswer) isAnswer()   {}
func (SliderAnswer) isAnswer()     {}
func (AllocationAnswer) isAnswer() {}
func (SwipeAnswer) isAnswer()      {}
