package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"slipway/internal/history"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// RequestTimeout bounds each request via chi's Timeout middleware.
	RequestTimeout = 60 * time.Second

	// GlobalRateLimit is requests per minute per client IP.
	GlobalRateLimit = 60
)

// Server serves the run ledger over HTTP.
type Server struct {
	History  *history.History
	Logger   *slog.Logger
	TestMode bool

	httpServer *http.Server
}

// NewServer creates a new server instance. Test mode disables rate
// limiting so tests can issue rapid request bursts.
func NewServer(hist *history.History, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		History:  hist,
		Logger:   logger,
		TestMode: testMode,
	}
}

// Router assembles the middleware chain and routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Request log with final status and timing.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", req.Method,
					"path", req.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, req)
		})
	})

	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	r.Get("/healthz", s.HandleHealth)
	r.Get("/api/runs", s.HandleListRuns)
	r.Get("/api/runs/latest", s.HandleLatestRun)
	r.Get("/api/runs/{runID}", s.HandleGetRun)

	return r
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the run ledger.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	if s.History != nil {
		return s.History.Close()
	}
	return nil
}
