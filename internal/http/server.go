package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"

	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

const (
	apiPrefix         = "/api/v1"
	defaultUserHeader = "X-User-ID"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	UserHeader         string
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	Logger             *log.Logger
}

type Server struct {
	http.Server
	ledger     *services.Ledger
	pinger     Pinger
	userHeader string
	started    time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, ledger *services.Ledger, pinger Pinger) *Server {
	if opts.UserHeader == "" {
		opts.UserHeader = defaultUserHeader
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		ledger:     ledger,
		pinger:     pinger,
		userHeader: http.CanonicalHeaderKey(opts.UserHeader),
		started:    time.Now(),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:   detector,
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	if len(opts.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: opts.CORSAllowedOrigins,
			AllowedMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodPatch,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowedHeaders: []string{"Accept", "Content-Type", s.userHeader, trace.RequestIDHeader},
			ExposedHeaders: []string{trace.RequestIDHeader, "Retry-After"},
			MaxAge:         300,
		}).Handler(handler)
	}
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireUser(s.rateLimit(h)))
	}

	api("GET "+apiPrefix+"/accounts", s.handleListAccounts)
	api("POST "+apiPrefix+"/accounts", s.handleCreateAccount)
	api("GET "+apiPrefix+"/accounts/{id}", s.handleGetAccount)
	api("PATCH "+apiPrefix+"/accounts/{id}", s.handleUpdateAccount)
	api("DELETE "+apiPrefix+"/accounts/{id}", s.handleDeleteAccount)

	api("GET "+apiPrefix+"/categories", s.handleListCategories)
	api("POST "+apiPrefix+"/categories", s.handleCreateCategory)
	api("GET "+apiPrefix+"/categories/{id}", s.handleGetCategory)
	api("PATCH "+apiPrefix+"/categories/{id}", s.handleUpdateCategory)
	api("DELETE "+apiPrefix+"/categories/{id}", s.handleDeleteCategory)

	api("GET "+apiPrefix+"/transactions", s.handleListTransactions)
	api("POST "+apiPrefix+"/transactions", s.handleCreateTransaction)
	api("GET "+apiPrefix+"/transactions/{id}", s.handleGetTransaction)
	api("PATCH "+apiPrefix+"/transactions/{id}", s.handleUpdateTransaction)
	api("DELETE "+apiPrefix+"/transactions/{id}", s.handleDeleteTransaction)

	api("GET "+apiPrefix+"/recurring", s.handleListRecurring)
	api("POST "+apiPrefix+"/recurring", s.handleCreateRecurring)
	api("POST "+apiPrefix+"/recurring/run", s.handleRunRecurring)
	api("GET "+apiPrefix+"/recurring/{id}", s.handleGetRecurring)
	api("PATCH "+apiPrefix+"/recurring/{id}", s.handleUpdateRecurring)
	api("DELETE "+apiPrefix+"/recurring/{id}", s.handleDeleteRecurring)

	api("GET "+apiPrefix+"/budgets", s.handleListBudgets)
	api("POST "+apiPrefix+"/budgets", s.handleCreateBudget)
	api("GET "+apiPrefix+"/budgets/{id}", s.handleGetBudget)
	api("PATCH "+apiPrefix+"/budgets/{id}", s.handleUpdateBudget)
	api("DELETE "+apiPrefix+"/budgets/{id}", s.handleDeleteBudget)
	api("POST "+apiPrefix+"/budgets/{id}/recalculate", s.handleRecalculateBudget)

	api("GET "+apiPrefix+"/dashboard/summary", s.handleDashboardSummary)
	api("GET "+apiPrefix+"/dashboard/categories", s.handleDashboardCategories)
	api("GET "+apiPrefix+"/dashboard/budgets", s.handleDashboardBudgets)
	api("GET "+apiPrefix+"/dashboard/trend", s.handleDashboardTrend)
	api("GET "+apiPrefix+"/dashboard/health", s.handleFinancialHealth)
	api("GET "+apiPrefix+"/dashboard/growth", s.handleSpendingGrowth)
	api("GET "+apiPrefix+"/dashboard/forecast", s.handleCashFlowForecast)
	api("GET "+apiPrefix+"/dashboard/burn-rate", s.handleBudgetBurnRate)
	api("GET "+apiPrefix+"/dashboard/patterns", s.handleSpendingPatterns)
	api("GET "+apiPrefix+"/dashboard/category-insights", s.handleCategoryInsights)
	api("GET "+apiPrefix+"/dashboard/statistics", s.handleTransactionStats)
	api("GET "+apiPrefix+"/dashboard/compare", s.handleComparePeriods)

	api("GET "+apiPrefix+"/audit", s.handleAudit)

	mux.HandleFunc(apiPrefix+"/", func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusNotFound, "no such endpoint").Write(w)
	})
}

// rateLimit applies the per-user request budget.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return s.limiter.Middleware(
		func(r *http.Request) string { return string(userFrom(r.Context())) },
		func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(),
				"Rate limit exceeded",
				log.FieldUserID, userFrom(r.Context()),
				log.FieldPath, r.URL.Path,
				log.FieldErrorType, log.ErrorTypeRateLimit)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, retry later").Write(w)
		},
	)(next)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
