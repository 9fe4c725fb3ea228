// Package api exposes the planning service over HTTP: REST endpoints plus
// SSE and WebSocket streams for live plan events.
package api

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"fleetroute/internal/metrics"
	"fleetroute/internal/opt"
	"fleetroute/internal/plan"
	"fleetroute/internal/store"
)

// Server holds the handler dependencies. Construct with NewServer and mount
// Routes on an http.Server.
type Server struct {
	store   store.Store
	planner *plan.Planner
	broker  EventBroker
	solved  *opt.MetricsStore
	log     zerolog.Logger
	limiter *rate.Limiter
	ready   func() error
}

type Options struct {
	Store        store.Store
	Planner      *plan.Planner
	Broker       EventBroker
	SolverStats  *opt.MetricsStore
	Log          zerolog.Logger
	RateLimitRPS float64
	RateBurst    int
	Ready        func() error
}

func NewServer(o Options) *Server {
	if o.Broker == nil {
		o.Broker = NewMemoryBroker()
	}
	if o.RateLimitRPS <= 0 {
		o.RateLimitRPS = 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	return &Server{
		store:   o.Store,
		planner: o.Planner,
		broker:  o.Broker,
		solved:  o.SolverStats,
		log:     o.Log,
		limiter: rate.NewLimiter(rate.Limit(o.RateLimitRPS), o.RateBurst),
		ready:   o.Ready,
	}
}

// Routes builds the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /version", s.handleVersion)

	mux.HandleFunc("GET /v1/stores", s.handleListStores)
	mux.HandleFunc("GET /v1/stores/{id}/metrics", s.handleStoreMetrics)
	mux.HandleFunc("GET /v1/stores/{id}/plans/stream", s.handlePlanStream)

	mux.HandleFunc("POST /v1/orders", s.handleCreateOrders)
	mux.HandleFunc("GET /v1/orders", s.handleListOrders)

	mux.HandleFunc("POST /v1/plans", s.handleCreatePlan)
	mux.HandleFunc("GET /v1/plans", s.handleListPlans)
	mux.HandleFunc("GET /v1/plans/{id}", s.handleGetPlan)
	mux.HandleFunc("GET /v1/plans/{id}/schedule", s.handlePlanSchedule)
	mux.HandleFunc("GET /v1/plans/{id}/summary", s.handlePlanSummary)
	mux.HandleFunc("GET /v1/plans/{id}/export", s.handlePlanExport)
	mux.HandleFunc("GET /v1/plans/ws", s.handlePlanWS)

	mux.HandleFunc("POST /v1/predict", s.handlePredict)
	mux.HandleFunc("POST /v1/sales", s.handleAppendSales)

	mux.HandleFunc("POST /v1/webhooks/subscriptions", s.handleCreateSubscription)
	mux.HandleFunc("GET /v1/webhooks/subscriptions", s.handleListSubscriptions)
	mux.HandleFunc("DELETE /v1/webhooks/subscriptions/{id}", s.handleDeleteSubscription)
	mux.HandleFunc("GET /v1/webhooks/deliveries", s.handleListDeliveries)

	return s.rateLimit(s.observe(mux))
}

// observe wraps handlers with request logging and Prometheus counters.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)
		pattern := r.Pattern
		if pattern == "" {
			pattern = r.URL.Path
		}
		observeRequest(r.Method, pattern, rec.status, elapsed)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", elapsed).
			Msg("http request")
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeProblem(w, http.StatusTooManyRequests, "rate limited", "request rate exceeds service limits")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.status = code
		r.written = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.written = true
	return r.ResponseWriter.Write(b)
}

// Flush lets SSE streaming work through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrade work through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

func observeRequest(method, pattern string, status int, elapsed time.Duration) {
	metrics.HTTPRequests.WithLabelValues(method, pattern, strconv.Itoa(status)).Inc()
	metrics.HTTPDuration.WithLabelValues(method, pattern).Observe(elapsed.Seconds())
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
