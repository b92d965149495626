// Package http serves the JSON backend-for-frontend: it binds sessions to a
// cookie and forwards every call through the services layer.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"minitracker/internal/log"
	"minitracker/internal/middleware/ratelimit"
	"minitracker/internal/middleware/security"
	"minitracker/internal/middleware/trace"
	"minitracker/internal/services"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Accounts  *services.AccountService
	Ledger    *services.LedgerService
	Dashboard *services.DashboardService
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Config struct {
	Addr         string
	CookieSecure bool
	RateLimitRPM int
	Logger       *log.Logger
	// ReadyChecks run on /readyz, keyed by a name reported on failure.
	ReadyChecks map[string]ReadyCheck
}

type Server struct {
	http.Server
	svc          Services
	cookieSecure bool
	readyChecks  map[string]ReadyCheck
	logger       *log.Logger

	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		svc:          svc,
		cookieSecure: cfg.CookieSecure,
		readyChecks:  cfg.ReadyChecks,
		logger:       logger,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		tracer:       trace.NewMiddleware(logger, detector.ExtractClientIP),
		detector:     detector,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /api/session", s.authed(s.handleSession))

	mux.HandleFunc("GET /api/dashboard", s.authed(s.handleDashboard))

	mux.HandleFunc("GET /api/revenues", s.authed(s.handleListRevenues))
	mux.HandleFunc("POST /api/revenues", s.authed(s.handleCreateRevenue))
	mux.HandleFunc("DELETE /api/revenues/{id}", s.authed(s.handleDeleteRevenue))
	mux.HandleFunc("GET /api/expenses", s.authed(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.authed(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.authed(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/profile", s.authed(s.handleGetProfile))
	mux.HandleFunc("PUT /api/profile", s.authed(s.handleUpdateProfile))

	mux.HandleFunc("GET /api/users", s.authed(s.handleListUsers))
	mux.HandleFunc("PATCH /api/users/{id}/lock", s.authed(s.handleSetLocked(true)))
	mux.HandleFunc("PATCH /api/users/{id}/unlock", s.authed(s.handleSetLocked(false)))

	limited := s.limiter.Middleware(detector.ExtractClientIP, s.rateLimited)(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.tracer.Middleware(headers.Middleware(detector.Middleware(limited))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:     "rate limit exceeded, try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failing := map[string]string{}
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "failing", failing)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failing": failing})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
