package quiz

import (
	"errors"
	"testing"
)

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Type
	}{
		{"multiple choice", `{"type":"multiple_choice","question":"q","options":["a","b"],"correctIndex":1}`, TypeMultipleChoice},
		{"true false", `{"type":"true_false","question":"q","options":["True","False"],"correctIndex":0}`, TypeTrueFalse},
		{"binary", `{"type":"binary_prediction","options":["Up","Down"],"correctAnswerText":"Up"}`, TypeBinaryPrediction},
		{"candle", `{"type":"candle_chart","options":["Up","Down"],"chartData":{"trend":"down"}}`, TypeCandleChart},
		{"doji candle", `{"type":"candle_chart","options":["Reversal","Continuation"],"correctIndex":0,"chartData":{"trend":"doji_reversal"}}`, TypeCandleChart},
		{"matching", `{"type":"matching","pairs":[{"left":"P/E","right":"Valuation"}]}`, TypeMatching},
		{"ordering", `{"type":"ordering","correctOrder":["A","B"]}`, TypeOrdering},
		{"slider", `{"type":"risk_slider","riskScenario":{"correctValue":20,"tolerance":10}}`, TypeRiskSlider},
		{"portfolio", `{"type":"portfolio_balancing","portfolioAssets":[{"name":"X","type":"stock","riskScore":50}]}`, TypePortfolioBalancing},
		{"swipe", `{"type":"sentiment_swipe","sentimentCards":[{"text":"t","sentiment":"bullish"}]}`, TypeSentimentSwipe},
		{"cloze", `{"type":"fill_in_blank","options":["x","y"],"correctAnswerText":"y"}`, TypeFillInBlank},
		{"word construction", `{"type":"word_construction","options":["x"],"correctAnswerText":"x"}`, TypeFillInBlank},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Decode([]byte(tt.json))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Kind() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, q.Kind())
			}
			if !Answerable(q) {
				t.Errorf("expected %s to be answerable", tt.name)
			}
		})
	}
}

func TestDecode_CarriesAnswerKey(t *testing.T) {
	q, err := Decode([]byte(`{"type":"risk_slider","question":"How risky?","riskScenario":{"correctValue":20,"tolerance":10,"minLabel":"safe","maxLabel":"wild"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slider, ok := q.(RiskSlider)
	if !ok {
		t.Fatalf("expected RiskSlider, got %T", q)
	}
	if slider.Target != 20 || slider.Tolerance != 10 || slider.Prompt() != "How risky?" {
		t.Errorf("unexpected slider %+v", slider)
	}
	if ok, _ := Validate(slider, SliderAnswer{Value: 50}); ok {
		t.Error("expected 50 to miss target 20±10")
	}
}

func TestDecode_MalformedMinigameIsNotAnswerable(t *testing.T) {
	for _, js := range []string{
		`{"type":"portfolio_balancing","question":"balance"}`,
		`{"type":"sentiment_swipe","question":"swipe"}`,
		`{"type":"matching","question":"match"}`,
	} {
		q, err := Decode([]byte(js))
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", js, err)
		}
		if Answerable(q) {
			t.Errorf("expected %s to be skipped", q.Kind())
		}
	}
}

func TestDecode_UnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"chart_point"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestDecode_InvalidJSON(t *testing.T) {
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestDecodeAll(t *testing.T) {
	qs, err := DecodeAll([]byte(`[
		{"type":"ordering","correctOrder":["A","B","C"]},
		{"type":"risk_slider"}
	]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(qs) != 2 || qs[0].Kind() != TypeOrdering || qs[1].Kind() != TypeRiskSlider {
		t.Errorf("unexpected questions %+v", qs)
	}
}

func TestDecodeAnswer(t *testing.T) {
	a, err := DecodeAnswer(TypeOrdering, []byte(`{"sequence":["A","B","C"]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := Ordering{CorrectOrder: []string{"A", "B", "C"}}
	if ok, _ := Validate(q, a); !ok {
		t.Error("expected decoded answer to validate")
	}

	a, _ = DecodeAnswer(TypeMultipleChoice, []byte(`{}`))
	if c, ok := a.(ChoiceAnswer); !ok || c.Selected != -1 {
		t.Errorf("expected no selection, got %+v", a)
	}

	a, _ = DecodeAnswer(TypeRiskSlider, nil)
	if s, ok := a.(SliderAnswer); !ok || s.Value != DefaultSliderTarget {
		t.Errorf("expected untouched slider at midpoint, got %+v", a)
	}

	if _, err := DecodeAnswer("chart_point", []byte(`{}`)); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}
