package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kasa/internal/cache"
	"kasa/internal/core"
	"kasa/internal/log"
	"kasa/internal/middleware/ratelimit"
	"kasa/internal/middleware/security"
	"kasa/internal/services"
)

const maxBodyBytes = 1 << 20

// Options tunes the server. Zero values pick defaults.
type Options struct {
	Logger            *log.Logger
	CacheTTL          time.Duration
	CacheSize         int
	MutationsPerMin   int
	ReadHeaderTimeout time.Duration
	// Ready reports backend readiness for /readyz.
	Ready func(ctx context.Context) error
	// Clock overrides the default "today" of dashboard endpoints.
	Clock func() core.Date
}

type Server struct {
	http.Server
	ledger  *services.LedgerService
	logger  *log.Logger
	views   *cache.LRUCache[any]
	caches  *cache.Manager
	limiter *ratelimit.Limiter
	ready   func(ctx context.Context) error
	today   func() core.Date

	shutdownOnce sync.Once
}

// NewServer wires the router; call ListenAndServe on the result.
func NewServer(addr string, ledger *services.LedgerService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = core.Today
	}

	s := &Server{
		ledger:  ledger,
		logger:  opts.Logger.WithComponent(log.ComponentHTTP),
		views:   cache.NewLRUCache[any](opts.CacheSize, opts.CacheTTL),
		caches:  cache.NewManager(opts.Logger),
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.MutationsPerMin}),
		ready:   opts.Ready,
		today:   opts.Clock,
	}
	s.caches.Register(s.views)
	if opts.CacheTTL > 0 {
		s.caches.StartCleanup(opts.CacheTTL)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.limiter.Middleware(s.onRateLimit, http.MethodPost, http.MethodPut, http.MethodDelete))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", s.handleSummary)
			r.Get("/last-7-days", s.handleLast7Days)
			r.Get("/last-12-months", s.handleLast12Months)
			r.Get("/expense-by-type", s.handleExpenseByType)
			r.Get("/recent", s.handleRecent)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/detailed", s.handleDetailed)
			r.Get("/detailed/export.csv", s.handleDetailedCSV)
			r.Get("/analytics", s.handleAnalytics)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Get("/{id}", s.handleGetTransaction)
			r.Put("/{id}", s.handleUpdateTransaction)
			r.Delete("/{id}", s.handleDeleteTransaction)
		})

		r.Route("/expense-types", func(r chi.Router) {
			r.Get("/", s.handleListExpenseTypes)
			r.Post("/", s.handleCreateExpenseType)
			r.Put("/{id}", s.handleRenameExpenseType)
			r.Delete("/{id}", s.handleDeleteExpenseType)
		})

		r.Route("/settings/export", func(r chi.Router) {
			r.Get("/", s.handleGetExportSettings)
			r.Put("/", s.handlePutExportSettings)
			r.Post("/run", s.handleRunExport)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", r.Method)
	})

	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, ratelimit.ClientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	respondError(w, http.StatusTooManyRequests, "rate limit exceeded", "try again later")
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "not ready", err.Error())
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
