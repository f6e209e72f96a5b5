// Package app provides the top-level application lifecycle for the
// settlement engine. It wires together storage, caches, blob archival, the
// HTTP/WebSocket server, and notifications, and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outcomelab/mutuel/internal/config"
	"github.com/outcomelab/mutuel/internal/domain"
	"github.com/outcomelab/mutuel/internal/server"
	"github.com/outcomelab/mutuel/internal/server/handler"
	"github.com/outcomelab/mutuel/internal/server/ws"
	"github.com/outcomelab/mutuel/internal/settle"
)

// shutdownGrace is how long in-flight HTTP requests get to finish once
// shutdown begins.
const shutdownGrace = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the server
// and background jobs, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "app: starting",
		slog.String("backend", a.cfg.Storage.Backend),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	engine := settle.NewEngine(deps.Ledger, deps.eventSink(), a.logger,
		settle.WithAudit(deps.Audit),
	)

	// Avoid handing Views a typed-nil interface when Redis is disabled.
	var cache domain.SnapshotCache
	if deps.SnapshotCache != nil {
		cache = deps.SnapshotCache
	}
	views := settle.NewViews(deps.Ledger, cache, nil)

	g, gctx := errgroup.WithContext(ctx)

	// --- HTTP + WebSocket server ---
	if a.cfg.Server.Enabled {
		var hub *ws.Hub
		if deps.EventBus != nil {
			hub = ws.NewHub(deps.EventBus, a.logger)
			g.Go(func() error {
				if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("app: ws hub: %w", err)
				}
				return nil
			})
		}

		srv := server.NewServer(
			server.Config{
				Port:             a.cfg.Server.Port,
				CORSOrigins:      a.cfg.Server.CORSOrigins,
				AdminTokenDigest: a.cfg.Admin.TokenDigest,
				RateLimit:        a.cfg.Server.RateLimit,
			},
			server.Handlers{
				Health:    handler.NewHealthHandler(a.logger, deps.Pingers),
				Markets:   handler.NewMarketHandler(views, a.logger),
				Bets:      handler.NewBetHandler(engine, a.logger),
				Positions: handler.NewPositionHandler(views, a.logger),
				Admin:     handler.NewAdminHandler(engine, a.logger),
			},
			hub,
			deps.RateLimiter,
			a.logger,
		)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	// --- Periodic ledger archival ---
	if deps.Archiver != nil {
		g.Go(func() error {
			a.runArchiveLoop(gctx, deps)
			return nil
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

// runArchiveLoop periodically archives settlement history older than the
// configured retention window. Failures are logged and retried on the next
// tick.
func (a *App) runArchiveLoop(ctx context.Context, deps *Dependencies) {
	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Archive.RetentionDays)
			if err := deps.Archiver.Run(ctx, cutoff); err != nil {
				a.logger.ErrorContext(ctx, "app: archive run failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			a.logger.InfoContext(ctx, "app: archive run complete",
				slog.Time("cutoff", cutoff),
			)
		}
	}
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("app: shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
