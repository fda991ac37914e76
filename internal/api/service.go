// Package api exposes the economy engine over HTTP and WebSocket.
//
// Handlers are thin: they decode the request, call the progression
// controller or the market clock, and map sentinel errors to status codes.
// All monetary values use shopspring/decimal, never float64 for money.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mercadomaster/economy-engine/internal/ledger"
	"github.com/mercadomaster/economy-engine/internal/market"
	"github.com/mercadomaster/economy-engine/internal/model"
	"github.com/mercadomaster/economy-engine/internal/progression"
	"github.com/mercadomaster/economy-engine/internal/quiz"
)

// Service binds the controller and the clock to HTTP handlers.
type Service struct {
	ctrl  *progression.Controller
	clock *market.Clock
}

// NewService creates a new API service.
func NewService(ctrl *progression.Controller, clock *market.Clock) *Service {
	return &Service{ctrl: ctrl, clock: clock}
}

// --- Request/Response types ---

// StateResponse is the body of GET /state.
type StateResponse struct {
	State          model.UserState `json:"state"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"` // cash + holdings at last close
}

// TradeRequest is the JSON body for POST /trades/{side}.
type TradeRequest struct {
	Symbol   string          `json:"symbol"`
	Quantity decimal.Decimal `json:"quantity"`
}

// SymbolResponse is the body of GET /market/{symbol}.
type SymbolResponse struct {
	Symbol  string          `json:"symbol"`
	Price   decimal.Decimal `json:"price"`
	Trend   model.Trend     `json:"trend"`
	History []model.Candle  `json:"history"`
}

// AnswerRequest carries a question in the lesson content format and the
// learner's interaction with it.
type AnswerRequest struct {
	Question json.RawMessage `json:"question"`
	Answer   json.RawMessage `json:"answer"`
}

// AnswerResponse is the body returned from POST /quiz/answers.
type AnswerResponse struct {
	Correct bool                `json:"correct"`
	Outcome progression.Outcome `json:"outcome"`
}

// AchievementView is one catalog entry with its unlock status.
type AchievementView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Unlocked    bool   `json:"unlocked"`
}

// --- Queries ---

// GetState handles GET /api/v1/state
func (s *Service) GetState(w http.ResponseWriter, r *http.Request) {
	state := s.ctrl.Snapshot()
	prices := s.clock.Snapshot().Prices

	writeJSON(w, http.StatusOK, StateResponse{
		State:          state,
		PortfolioValue: ledger.PortfolioValue(state, prices),
	})
}

// GetMarket handles GET /api/v1/market
func (s *Service) GetMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clock.Snapshot())
}

// GetSymbol handles GET /api/v1/market/{symbol}
func (s *Service) GetSymbol(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	price, err := s.clock.Price(symbol)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}
	snap := s.clock.Snapshot()

	writeJSON(w, http.StatusOK, SymbolResponse{
		Symbol:  symbol,
		Price:   price,
		Trend:   snap.Trend[symbol],
		History: snap.History[symbol],
	})
}

// GetLatestEvent handles GET /api/v1/market/events/latest
func (s *Service) GetLatestEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.clock.LatestEvent()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// ClearLatestEvent handles DELETE /api/v1/market/events/latest
func (s *Service) ClearLatestEvent(w http.ResponseWriter, r *http.Request) {
	s.clock.ClearLatestEvent()
	w.WriteHeader(http.StatusNoContent)
}

// ListAchievements handles GET /api/v1/achievements
func (s *Service) ListAchievements(w http.ResponseWriter, r *http.Request) {
	state := s.ctrl.Snapshot()
	rules := s.ctrl.Rules()

	out := make([]AchievementView, 0, len(rules))
	for _, rule := range rules {
		out = append(out, AchievementView{
			ID:          rule.ID,
			Title:       rule.Title,
			Description: rule.Description,
			Icon:        rule.Icon,
			Unlocked:    state.HasAchievement(rule.ID),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetLatestAchievement handles GET /api/v1/achievements/latest
func (s *Service) GetLatestAchievement(w http.ResponseWriter, r *http.Request) {
	rule, ok := s.ctrl.LatestAchievement()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// ClearLatestAchievement handles DELETE /api/v1/achievements/latest
func (s *Service) ClearLatestAchievement(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearLatestAchievement()
	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions handles GET /api/v1/transactions?limit=N
func (s *Service) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	txs, err := s.ctrl.Transactions(r.Context(), limit)
	if err != nil {
		writeError(w, "failed to load transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// --- Actions ---

// Buy handles POST /api/v1/trades/buy
func (s *Service) Buy(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, model.DirectionBuy)
}

// Sell handles POST /api/v1/trades/sell
func (s *Service) Sell(w http.ResponseWriter, r *http.Request) {
	s.trade(w, r, model.DirectionSell)
}

func (s *Service) trade(w http.ResponseWriter, r *http.Request, dir model.Direction) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Symbol == "" {
		writeError(w, "symbol is required", http.StatusBadRequest)
		return
	}

	// The fill price is read exactly once.
	price, err := s.clock.Price(req.Symbol)
	if err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	var out progression.Outcome
	if dir == model.DirectionBuy {
		out, err = s.ctrl.Buy(r.Context(), req.Symbol, req.Quantity, price)
	} else {
		out, err = s.ctrl.Sell(r.Context(), req.Symbol, req.Quantity, price)
	}
	respond(w, out, err)
}

// CompleteLesson handles POST /api/v1/lessons/complete
func (s *Service) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req progression.LessonReward
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	out, err := s.ctrl.ApplyLessonReward(r.Context(), req)
	respond(w, out, err)
}

// SubmitAnswer handles POST /api/v1/quiz/answers
func (s *Service) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	q, err := quiz.Decode(req.Question)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	answer, err := quiz.DecodeAnswer(q.Kind(), req.Answer)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	correct, out, err := s.ctrl.SubmitAnswer(r.Context(), q, answer)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, AnswerResponse{Correct: correct, Outcome: out})
}

// DeductHeart handles POST /api/v1/hearts/deduct
func (s *Service) DeductHeart(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.DeductHeart(r.Context())
	respond(w, out, err)
}

// RefillHearts handles POST /api/v1/hearts/refill. The body is optional:
// {"cost": N} overrides the default price.
func (s *Service) RefillHearts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cost *int64 `json:"cost"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}
	cost := progression.DefaultRefillCost
	if req.Cost != nil {
		cost = *req.Cost
	}
	out, err := s.ctrl.RefillHearts(r.Context(), cost)
	respond(w, out, err)
}

// UseItem handles POST /api/v1/items/{item}/use
func (s *Service) UseItem(w http.ResponseWriter, r *http.Request) {
	item := progression.Item(chi.URLParam(r, "item"))
	out, err := s.ctrl.SpendItem(r.Context(), item)
	respond(w, out, err)
}

// Stake handles POST /api/v1/coins/stake. The body is optional:
// {"amount": N} overrides the default stake.
func (s *Service) Stake(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount *int64 `json:"amount"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}
	amount := progression.DefaultStake
	if req.Amount != nil {
		amount = *req.Amount
	}
	out, err := s.ctrl.Stake(r.Context(), amount)
	respond(w, out, err)
}

// Unstake handles POST /api/v1/coins/unstake
func (s *Service) Unstake(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.Unstake(r.Context())
	respond(w, out, err)
}

// MineCoin handles POST /api/v1/coins/mine
func (s *Service) MineCoin(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.MineCoin(r.Context())
	respond(w, out, err)
}

// OpenChest handles POST /api/v1/chests/{chestID}/open
func (s *Service) OpenChest(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.OpenChest(r.Context(), chi.URLParam(r, "chestID"))
	respond(w, out, err)
}

// ResetQuests handles POST /api/v1/quests/reset
func (s *Service) ResetQuests(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.ResetDailyQuests(r.Context())
	respond(w, out, err)
}

// ToggleTheme handles PUT /api/v1/preferences/theme
func (s *Service) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	out, err := s.ctrl.ToggleTheme(r.Context())
	respond(w, out, err)
}

// UpdateNotes handles PUT /api/v1/preferences/notes
func (s *Service) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	out, err := s.ctrl.UpdateNotes(r.Context(), req.Notes)
	respond(w, out, err)
}

// AddBookmark handles POST /api/v1/bookmarks
func (s *Service) AddBookmark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Term string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	out, err := s.ctrl.AddBookmark(r.Context(), req.Term)
	respond(w, out, err)
}

// --- Helpers ---

// decodeOptional decodes a body when one was sent. It reports false after
// writing a 400 for a body that does not parse.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func respond(w http.ResponseWriter, out progression.Outcome, err error) {
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, progression.ErrPersist):
		return http.StatusInternalServerError
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientHoldings),
		errors.Is(err, progression.ErrInsufficientCoins):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrMalformedQuestion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, ledger.ErrInvalidSymbol),
		errors.Is(err, progression.ErrInvalidAmount),
		errors.Is(err, progression.ErrInvalidInput),
		errors.Is(err, progression.ErrUnknownItem),
		errors.Is(err, quiz.ErrAnswerMismatch),
		errors.Is(err, quiz.ErrUnknownType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
