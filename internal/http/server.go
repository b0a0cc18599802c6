// Package http serves the dashboard JSON API, live Server-Sent Event
// streams and printable reports.
package http

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"transferdash/internal/log"
	"transferdash/internal/middleware/ratelimit"
	"transferdash/internal/middleware/security"
	"transferdash/internal/middleware/trace"
	"transferdash/internal/notify"
	"transferdash/internal/report"
	"transferdash/internal/services"
	appweb "transferdash/web"
)

const (
	submitTimeout  = 30 * time.Second
	heartbeatEvery = 25 * time.Second
	staticMaxAge   = 3600
)

// Pinger is implemented by dependencies that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes requests to. Transfers and
// Accounts are required.
type Deps struct {
	Transfers *services.TransferService
	Accounts  *services.AccountService
	// Checks are pinged by /readyz, keyed by name.
	Checks map[string]Pinger
	// Notifier is told about transfers submitted through this server when
	// no event bus forwards them to the worker.
	Notifier  notify.Notifier
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Now       func() time.Time
}

type Server struct {
	http.Server
	transfers *services.TransferService
	accounts  *services.AccountService
	checks    map[string]Pinger
	notifier  notify.Notifier
	renderer  *report.Renderer
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *log.Logger
	now       func() time.Time

	// streams is cancelled on shutdown so open event streams return.
	streams     context.Context
	stopStreams context.CancelFunc

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Transfers == nil || deps.Accounts == nil {
		return nil, fmt.Errorf("new server: transfer and account services are required")
	}
	renderer, err := report.NewRenderer(appweb.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("new server: %w", err)
	}
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}

	logger := log.OrDiscard(deps.Logger)
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	rl := deps.RateLimit
	if rl.RequestsPerMinute == 0 {
		rl = ratelimit.DefaultConfig()
	}

	detector := security.NewDetector()
	s := &Server{
		transfers: deps.Transfers,
		accounts:  deps.Accounts,
		checks:    deps.Checks,
		notifier:  deps.Notifier,
		renderer:  renderer,
		limiter:   ratelimit.NewLimiter(rl),
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, logger),
		logger:    logger.WithComponent(log.ComponentHTTP),
		now:       now,
	}
	s.streams, s.stopStreams = context.WithCancel(context.Background())

	r := mux.NewRouter()
	r.Use(
		log.Middleware(logger),
		s.tracer.Middleware,
		log.RequestIDMiddleware(trace.RequestIDFromRequest),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
		detector.Middleware,
		s.limiter.Middleware(detector.ExtractClientIP, nil),
	)

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transfers", s.handleListTransfers).Methods(http.MethodGet)
	api.HandleFunc("/transfers", s.handleCreateTransfer).Methods(http.MethodPost)
	api.HandleFunc("/transfers/stream", s.handleTransferStream).Methods(http.MethodGet)
	api.HandleFunc("/transfers/{id}", s.handleGetTransfer).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleTodayStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/dynamic", s.handleDynamicStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/stream", s.handleStatsStream).Methods(http.MethodGet)
	api.HandleFunc("/filters", s.handleGetFilters).Methods(http.MethodGet)
	api.HandleFunc("/filters", s.handleSetFilters).Methods(http.MethodPut)
	api.HandleFunc("/auto-refresh", s.handleSetAutoRefresh).Methods(http.MethodPut)
	api.HandleFunc("/accounts", s.handleListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts/refresh", s.handleRefreshAccounts).Methods(http.MethodPost)

	reports := r.PathPrefix("/reports").Subrouter()
	reports.HandleFunc("/transfers.csv", s.handleTransfersCSV).Methods(http.MethodGet)
	reports.HandleFunc("/transfers", s.handleTransfersReport).Methods(http.MethodGet)
	reports.HandleFunc("/dashboard", s.handleDashboardReport).Methods(http.MethodGet)
	reports.HandleFunc("/accounts/{id}", s.handleAccountStatement).Methods(http.MethodGet)

	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(staticMaxAge)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Server.RegisterOnShutdown(s.stopStreams)
	return s, nil
}

// Shutdown stops the rate limiter, ends open event streams and gracefully
// shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.stopStreams()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics reports request, rate limit and detection counters.
type Metrics struct {
	Trace     trace.Metrics
	RateLimit ratelimit.Metrics
	Security  security.DetectionMetrics
}

func (s *Server) Metrics() Metrics {
	return Metrics{
		Trace:     s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, c := range s.checks {
		if err := c.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", log.FieldBackend, name, log.FieldError, err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		NewJSONResponse().Status(http.StatusServiceUnavailable).
			Body(map[string]any{"status": "unavailable", "failed": failed}).Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
