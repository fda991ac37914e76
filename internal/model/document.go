package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// EncodeState serializes the whole aggregate as one flat document.
func EncodeState(s UserState) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeState rehydrates a saved document. Decoding starts from a fresh
// profile and overlays the stored fields, so documents written before a
// field existed load with that field's default.
func DecodeState(data []byte) (UserState, error) {
	s := NewUserState()
	if err := json.Unmarshal(data, &s); err != nil {
		return UserState{}, fmt.Errorf("decode user state: %w", err)
	}
	normalize(&s)
	return s, nil
}

// normalize repairs fields an older or hand-edited document may carry as
// null or out of range.
func normalize(s *UserState) {
	if s.Holdings == nil {
		s.Holdings = map[string]decimal.Decimal{}
	}
	if s.PathProgress == nil {
		s.PathProgress = map[string]int64{}
	}
	if s.LevelRatings == nil {
		s.LevelRatings = map[string]int{}
	}
	if s.DailyQuests == nil {
		s.DailyQuests = DefaultQuests()
	}
	if s.MaxHearts <= 0 {
		s.MaxHearts = DefaultHearts
	}
	if s.Hearts > s.MaxHearts {
		s.Hearts = s.MaxHearts
	}
	if s.Hearts < 0 {
		s.Hearts = 0
	}
	if s.Level < 1 {
		s.Level = 1
	}
	if s.Theme == "" {
		s.Theme = ThemeDefault
	}
}
