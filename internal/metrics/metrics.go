// Package metrics provides Prometheus instrumentation for the economy engine.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts simulated trades executed, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_trades_total",
		Help: "Total number of simulated trades executed",
	}, []string{"side"})

	// TradeLatency tracks end-to-end trade latency including persistence.
	TradeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mm_trade_latency_seconds",
		Help:    "Trade execution latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"side"})

	// TradeRejections counts trades refused by the ledger, by reason.
	TradeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_trade_rejections_total",
		Help: "Trades rejected by the portfolio ledger",
	}, []string{"reason"})

	// MarketTicks counts market clock ticks.
	MarketTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_market_ticks_total",
		Help: "Total market clock ticks",
	})

	// ActiveMarketEvents tracks the number of running market events.
	ActiveMarketEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_active_market_events",
		Help: "Number of currently active market events",
	})

	// MarketEventsFired counts spawned market events by catalog id.
	MarketEventsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_market_events_fired_total",
		Help: "Market events spawned by the event engine",
	}, []string{"event"})

	// AchievementsUnlocked counts achievement unlocks by id.
	AchievementsUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_achievements_unlocked_total",
		Help: "Achievements unlocked",
	}, []string{"achievement"})

	// QuizAnswers counts validated quiz answers by question type and result.
	QuizAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_quiz_answers_total",
		Help: "Quiz answers validated",
	}, []string{"type", "result"})

	// PersistFailures counts state mutations rolled back because the store
	// rejected the write.
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mm_persist_failures_total",
		Help: "State writes that failed and were rolled back",
	})

	// StateCacheLookups counts Redis lookups for user state by result.
	StateCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_state_cache_lookups_total",
		Help: "User state cache lookups",
	}, []string{"result"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mm_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mm_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mm_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern prefers the matched chi pattern over the raw path to keep
// label cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware. A hijacked
// connection is recorded as 101.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err == nil {
		w.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
