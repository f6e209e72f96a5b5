// Package server exposes the settlement engine over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/outcomelab/mutuel/internal/domain"
	"github.com/outcomelab/mutuel/internal/server/handler"
	"github.com/outcomelab/mutuel/internal/server/middleware"
	"github.com/outcomelab/mutuel/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port             int
	CORSOrigins      []string
	AdminTokenDigest string // PBKDF2 digest guarding the admin routes
	RateLimit        int    // requests per second per client; 0 disables
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Markets   *handler.MarketHandler
	Bets      *handler.BetHandler
	Positions *handler.PositionHandler
	Admin     *handler.AdminHandler
}

// Server is the HTTP + WebSocket API server for the settlement engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting) and attaches the
// WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market read endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/pools", handlers.Markets.GetPools)
	mux.HandleFunc("GET /api/markets/{id}/status", handlers.Markets.GetStatus)
	mux.HandleFunc("GET /api/vault", handlers.Markets.GetVault)

	// Trading endpoints.
	mux.HandleFunc("POST /api/markets/{id}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("POST /api/markets/{id}/claims", handlers.Bets.Claim)

	// Trader read endpoints.
	mux.HandleFunc("GET /api/traders/{trader}/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("GET /api/traders/{trader}/positions/{id}", handlers.Positions.GetPosition)
	mux.HandleFunc("GET /api/traders/{trader}/balance", handlers.Positions.GetBalance)

	// Admin endpoints behind token auth.
	adminAuth := middleware.AdminAuth(cfg.AdminTokenDigest)
	mux.Handle("POST /api/admin/initialize", adminAuth(http.HandlerFunc(handlers.Admin.Initialize)))
	mux.Handle("POST /api/admin/markets", adminAuth(http.HandlerFunc(handlers.Admin.CreateMarket)))
	mux.Handle("POST /api/admin/markets/{id}/resolve", adminAuth(http.HandlerFunc(handlers.Admin.ResolveMarket)))
	mux.Handle("POST /api/admin/deposits", adminAuth(http.HandlerFunc(handlers.Admin.Deposit)))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Second)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
