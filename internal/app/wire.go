package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"

	s3blob "github.com/Magnify-Cash/magnify-monorepo-sub001/internal/blob/s3"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/cache/redis"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/config"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/domain"
	feedevm "github.com/Magnify-Cash/magnify-monorepo-sub001/internal/feed/evm"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/notify"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/platform/evm"
	"github.com/Magnify-Cash/magnify-monorepo-sub001/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Store    domain.Store
	Meta     domain.TokenMetadataSource
	Eth      *ethclient.Client
	Decoder  *feedevm.Decoder
	Archiver *s3blob.Archiver // nil when archival is disabled
	Notifier *notify.Notifier
}

// needsChain returns true for modes that read the settlement layer.
func needsChain(mode string) bool {
	return mode != "migrate"
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
	mode := strings.ToLower(cfg.Mode)

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

	if cfg.Database.RunMigrations || mode == "migrate" {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.Store = postgres.NewStore(pgClient)

	// --- Settlement layer ---
	if needsChain(mode) {
		eth, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: eth rpc: %w", err)
		}
		closers = append(closers, eth.Close)
		deps.Eth = eth

		deps.Decoder, err = feedevm.NewDecoder(feedevm.Contracts{
			Lending:         cfg.Chain.LendingContract,
			LendingKeys:     cfg.Chain.LendingKeysContract,
			ObligationNotes: cfg.Chain.ObligationNotesContract,
			PromissoryNotes: cfg.Chain.PromissoryNotesContract,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: decoder: %w", err)
		}

		tokenClient, err := evm.NewTokenClient(eth, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: token client: %w", err)
		}
		deps.Meta = tokenClient

		// --- Redis metadata cache (optional) ---
		if cfg.Redis.Addr != "" {
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
			deps.Meta = redis.NewMetadataCache(redisClient, tokenClient, logger)
		}
	}

	// --- S3 event archive (optional) ---
	if cfg.S3.Bucket != "" {
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

		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), s3blob.ArchiverConfig{
			Prefix:        cfg.Archive.Prefix,
			RunID:         uuid.NewString(),
			FlushEvents:   cfg.Archive.FlushEvents,
			FlushInterval: cfg.Archive.FlushInterval.Duration,
		}, logger)
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
