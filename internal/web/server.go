// Package web serves the import endpoint and the dashboard's JSON data API.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/salesdash/internal/config"
	"github.com/JonMunkholm/salesdash/internal/core"
	"github.com/JonMunkholm/salesdash/internal/domain"
	"github.com/JonMunkholm/salesdash/internal/report"
	"github.com/JonMunkholm/salesdash/internal/web/middleware"
)

// Importer runs sheet imports. *core.Service implements it.
type Importer interface {
	Import(ctx context.Context, fileName string, r io.Reader) *core.Result
	RecentImports(ctx context.Context, limit int) ([]domain.ImportRun, error)
	Limiter() *core.ImportLimiter
}

// Reporter builds the dashboard views. *report.Service implements it.
type Reporter interface {
	Overview(ctx context.Context, f report.Filter) (*report.Overview, error)
	Market(ctx context.Context, f report.Filter) (*report.MarketView, error)
	Customer(ctx context.Context, f report.Filter) (*report.CustomerView, error)
	Product(ctx context.Context, f report.Filter) (*report.ProductView, error)
	Filters(ctx context.Context) (*report.Filters, error)
}

// Server is the HTTP server for imports and dashboard data.
type Server struct {
	imports Importer
	reports Reporter
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	stopLimiters func()
}

// NewServer creates a Server and wires its routes.
func NewServer(imports Importer, reports Reporter, cfg *config.Config) *Server {
	s := &Server{
		imports: imports,
		reports: reports,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))
}

func (s *Server) setupRoutes() {
	var (
		reportLimit = passThrough
		importLimit = passThrough
	)
	if s.cfg.Rate.Enabled {
		rl := newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		il := newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute)
		reportLimit, importLimit = rl.middleware, il.middleware
		s.stopLimiters = func() {
			rl.stop()
			il.stop()
		}
	}

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Imports carry their own timeout; the request timeout does not apply.
		r.Group(func(r chi.Router) {
			r.Use(importLimit)
			r.Post("/import", s.handleImport)
		})

		r.Group(func(r chi.Router) {
			r.Use(reportLimit)
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/imports", s.handleListImports)
			r.Get("/import/status", s.handleImportStatus)

			r.Get("/overview-data", s.handleOverviewData)
			r.Get("/market-data", s.handleMarketData)
			r.Get("/customer-data", s.handleCustomerData)
			r.Get("/product-data", s.handleProductData)
			r.Get("/filters", s.handleFilters)
		})
	})
}

func passThrough(next http.Handler) http.Handler { return next }

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopLimiters != nil {
		s.stopLimiters()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// JSON only: nothing here should ever load a resource.
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	done     chan struct{}
	now      func() time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

// cleanup drops visitors idle for two windows.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if rl.now().Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) stop() {
	close(rl.done)
}

// allow consumes a token for ip if one is left in the current window.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr has already been rewritten by TrustedRealIP.
		ip := middleware.ClientIP(r)
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v with the given status. Encoding errors are logged
// since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
