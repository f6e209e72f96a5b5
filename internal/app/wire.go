package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/outcomelab/mutuel/internal/blob/s3"
	"github.com/outcomelab/mutuel/internal/cache/redis"
	"github.com/outcomelab/mutuel/internal/config"
	"github.com/outcomelab/mutuel/internal/domain"
	"github.com/outcomelab/mutuel/internal/notify"
	"github.com/outcomelab/mutuel/internal/server/handler"
	"github.com/outcomelab/mutuel/internal/settle"
	"github.com/outcomelab/mutuel/internal/store/memory"
	"github.com/outcomelab/mutuel/internal/store/postgres"
)

// snapshotTTL is how long cached market snapshots stay valid for polling
// clients.
const snapshotTTL = 5 * time.Second

// Dependencies bundles every concrete dependency the application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Storage
	Ledger  domain.Ledger
	Audit   domain.AuditStore
	Entries domain.LedgerEntryStore

	// Redis (nil when disabled)
	EventBus      *redis.EventBus
	SnapshotCache *redis.SnapshotCache
	RateLimiter   domain.RateLimiter

	// Blob storage (nil when disabled)
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Health probes by dependency name.
	Pingers map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- Ledger backend ---
	switch strings.ToLower(cfg.Storage.Backend) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Ledger = postgres.NewLedger(pool)
		deps.Audit = postgres.NewAuditStore(pool)
		deps.Entries = postgres.NewLedgerEntryStore(pool)
		deps.Pingers["postgres"] = pgClient

	default:
		ledger := memory.NewLedger()
		deps.Ledger = ledger
		deps.Audit = memory.NewAuditStore()
		deps.Entries = ledger
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.EventBus = redis.NewEventBus(redisClient)
		deps.SnapshotCache = redis.NewSnapshotCache(redisClient, snapshotTTL)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Pingers["redis"] = redisClient
	}

	// --- S3 blob storage ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Pingers["s3"] = s3Client

		if cfg.Archive.Enabled {
			deps.Archiver = s3blob.NewArchiver(
				s3blob.NewWriter(s3Client),
				s3blob.NewReader(s3Client),
				deps.Entries,
				deps.Audit,
			)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

// eventSink assembles the post-commit sink chain: Redis feed, snapshot
// invalidation, and operator alerts. Returns nil when nothing is wired.
func (d *Dependencies) eventSink() domain.EventSink {
	var sinks []domain.EventSink
	if d.EventBus != nil {
		sinks = append(sinks, d.EventBus)
	}
	if d.SnapshotCache != nil {
		sinks = append(sinks, redis.NewInvalidatorSink(d.SnapshotCache))
	}
	if d.Notifier != nil {
		sinks = append(sinks, notify.NewSink(d.Notifier))
	}
	if len(sinks) == 0 {
		return nil
	}
	return settle.NewFanoutSink(sinks...)
}
