package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mercadomaster/economy-engine/internal/metrics"
)

// NewRouter builds the full HTTP surface. Pass nil for hub to serve without
// the WebSocket endpoint.
func NewRouter(svc *Service, hub *WSHub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"economy-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if hub != nil {
			r.Get("/ws", hub.HandleWS)
		}

		r.Get("/state", svc.GetState)
		r.Get("/transactions", svc.ListTransactions)

		// Market.
		r.Get("/market", svc.GetMarket)
		r.Get("/market/events/latest", svc.GetLatestEvent)
		r.Delete("/market/events/latest", svc.ClearLatestEvent)
		r.Get("/market/{symbol}", svc.GetSymbol)

		// Portfolio.
		r.Post("/trades/buy", svc.Buy)
		r.Post("/trades/sell", svc.Sell)

		// Learning.
		r.Post("/lessons/complete", svc.CompleteLesson)
		r.Post("/quiz/answers", svc.SubmitAnswer)
		r.Post("/quests/reset", svc.ResetQuests)

		// Economy.
		r.Post("/hearts/deduct", svc.DeductHeart)
		r.Post("/hearts/refill", svc.RefillHearts)
		r.Post("/items/{item}/use", svc.UseItem)
		r.Post("/coins/stake", svc.Stake)
		r.Post("/coins/unstake", svc.Unstake)
		r.Post("/coins/mine", svc.MineCoin)
		r.Post("/chests/{chestID}/open", svc.OpenChest)

		// Achievements.
		r.Get("/achievements", svc.ListAchievements)
		r.Get("/achievements/latest", svc.GetLatestAchievement)
		r.Delete("/achievements/latest", svc.ClearLatestAchievement)

		// Preferences.
		r.Put("/preferences/theme", svc.ToggleTheme)
		r.Put("/preferences/notes", svc.UpdateNotes)
		r.Post("/bookmarks", svc.AddBookmark)
	})

	return r
}

// cors lets the browser front end call the API cross-origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
