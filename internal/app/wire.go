package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/betbot/internal/blob/s3"
	"github.com/alanyoungcy/betbot/internal/cache/redis"
	"github.com/alanyoungcy/betbot/internal/config"
	"github.com/alanyoungcy/betbot/internal/domain"
	"github.com/alanyoungcy/betbot/internal/notify"
	"github.com/alanyoungcy/betbot/internal/platform/advisor"
	"github.com/alanyoungcy/betbot/internal/platform/betfair"
	"github.com/alanyoungcy/betbot/internal/service"
	"github.com/alanyoungcy/betbot/internal/store/postgres"
)

// Dependencies bundles every dependency that the application modes need to
// operate. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Stores
	BetStore        domain.BetStore
	SuggestionStore domain.SuggestionStore
	WalletStore     domain.WalletStore
	LearningsStore  domain.LearningsStore
	SettingsStore   domain.SettingsStore

	// Caches and coordination
	LockManager domain.LockManager
	OddsCache   domain.DiscoveryCache
	LockTTL     time.Duration

	// Blob storage
	Archiver service.Archiver

	// Platform clients
	Exchange *betfair.Client
	Placer   service.OrderPlacer
	Advisor  *advisor.Client

	// Notifications
	Notifier *notify.Notifier

	// Raw clients, kept for health checks.
	PG    *postgres.Client
	Redis *redis.Client
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

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PG = pgClient
	deps.BetStore = postgres.NewBetStore(pool)
	deps.SuggestionStore = postgres.NewSuggestionStore(pool)
	deps.WalletStore = postgres.NewWalletStore(pool)
	deps.LearningsStore = postgres.NewLearningsStore(pool)
	deps.SettingsStore = postgres.NewSettingsStore(pool)

	// --- Redis ---
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

	oddsTTL := 2 * time.Minute
	if cfg.Redis.OddsTTLSeconds > 0 {
		oddsTTL = time.Duration(cfg.Redis.OddsTTLSeconds) * time.Second
	}
	deps.LockTTL = 4 * time.Minute
	if cfg.Redis.LockTTLSeconds > 0 {
		deps.LockTTL = time.Duration(cfg.Redis.LockTTLSeconds) * time.Second
	}

	deps.Redis = redisClient
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.OddsCache = redis.NewDiscoveryCache(redisClient, oddsTTL)

	// --- S3 blob storage (optional cold-storage archival) ---
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
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Exchange ---
	exchange, err := betfair.New(betfair.Config{
		AppKey:     cfg.Betfair.AppKey,
		Username:   cfg.Betfair.Username,
		Password:   cfg.Betfair.Password,
		CertFile:   cfg.Betfair.CertFile,
		KeyFile:    cfg.Betfair.KeyFile,
		APIHost:    cfg.Betfair.APIHost,
		LoginHost:  cfg.Betfair.LoginHost,
		Timeout:    time.Duration(cfg.Betfair.TimeoutSeconds) * time.Second,
		MaxResults: cfg.Betfair.MaxResults,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: betfair: %w", err)
	}
	deps.Exchange = exchange

	// Discovery and settlement always use the real exchange; simulate mode
	// swaps only order placement.
	if cfg.Betfair.Simulate {
		logger.Warn("exchange simulation enabled, orders will not reach the exchange")
		deps.Placer = betfair.NewSimulator(logger)
	} else {
		deps.Placer = exchange
	}

	// --- Advisor ---
	deps.Advisor = advisor.New(advisor.Config{
		BaseURL: cfg.Advisor.BaseURL,
		APIKey:  cfg.Advisor.APIKey,
		Model:   cfg.Advisor.Model,
		Timeout: time.Duration(cfg.Advisor.TimeoutSeconds) * time.Second,
	}, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
