package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"jan-server/services/claims-api/internal/config"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/retry"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/infrastructure/database"
	"jan-server/services/claims-api/internal/infrastructure/lifecycle"
	"jan-server/services/claims-api/internal/infrastructure/llmprovider"
	"jan-server/services/claims-api/internal/infrastructure/queue"
	claimrepo "jan-server/services/claims-api/internal/infrastructure/repository/claim"
	"jan-server/services/claims-api/internal/infrastructure/seed"
	"jan-server/services/claims-api/internal/interfaces/httpserver"
	"jan-server/services/claims-api/internal/webhook"
	"jan-server/services/claims-api/internal/worker"
)

func newGormDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, func(), error) {
	db, err := database.Connect(database.ConfigFrom(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, cleanup, nil
}

// newClaimRepository builds the claim store and seeds the demo claim set when enabled.
func newClaimRepository(ctx context.Context, cfg *config.Config, db *gorm.DB, log zerolog.Logger) (*claimrepo.ClaimGormRepository, error) {
	repo, err := claimrepo.NewClaimGormRepository(db, cfg.ClaimCacheSize)
	if err != nil {
		return nil, err
	}
	if cfg.SeedClaims {
		if err := seed.Run(ctx, repo, log); err != nil {
			return nil, fmt.Errorf("seed claims: %w", err)
		}
	}
	return repo, nil
}

// newRedisClient returns a nil client when lifecycle records live in memory.
func newRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.LifecycleStore != config.LifecycleStoreRedis {
		return nil, func() {}, nil
	}
	client, err := lifecycle.NewRedisClient(ctx, cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("close redis")
		}
	}
	return client, cleanup, nil
}

func newLifecycleStore(cfg *config.Config, client redis.UniversalClient, log zerolog.Logger) decision.Store {
	if client == nil {
		log.Info().Msg("tool call lifecycle kept in memory")
		return lifecycle.NewMemoryStore()
	}
	log.Info().Dur("ttl", cfg.LifecycleTTL).Msg("tool call lifecycle kept in redis")
	return lifecycle.NewRedisStore(client, cfg.LifecycleTTL, cfg.DecisionLockTTL, log)
}

func newWebhookService(cfg *config.Config, log zerolog.Logger) *webhook.HTTPService {
	return webhook.NewHTTPService(cfg.DecisionWebhookURL, log)
}

// newDecisionNotifier routes decision webhooks through the durable outbox when a
// receiver is configured. Without one, the HTTP service logs and skips.
func newDecisionNotifier(ctx context.Context, cfg *config.Config, db *gorm.DB, webhookService *webhook.HTTPService, log zerolog.Logger) (decision.Notifier, func(), error) {
	if cfg.DecisionWebhookURL == "" {
		return webhookService, func() {}, nil
	}
	outbox := queue.NewPostgresQueue(db, queue.Config{MaxAttempts: cfg.WebhookMaxAttempts}, log)
	pool := worker.NewPool(outbox, webhookService, worker.Config{
		WorkerCount:  cfg.WebhookWorkers,
		PollInterval: cfg.WebhookPollInterval,
	}, log)
	pool.Start(ctx)
	return outbox, pool.Stop, nil
}

func newLLMProvider(cfg *config.Config) *llmprovider.Client {
	return llmprovider.NewClient(llmprovider.Config{
		BaseURL: cfg.LLMAPIURL,
		APIKey:  cfg.LLMAPIKey,
		Timeout: cfg.LLMRequestTimeout,
	})
}

func newOrchestratorConfig(cfg *config.Config) tool.OrchestratorConfig {
	temperature := cfg.LLMTemperature
	return tool.OrchestratorConfig{
		Model:            cfg.LLMModel,
		Temperature:      &temperature,
		MaxSteps:         cfg.MaxToolSteps,
		MaxInvalidInputs: cfg.MaxInvalidToolInputs,
		ToolTimeout:      cfg.ToolTimeout,
		StreamRetry:      retry.StreamOpenPolicy(cfg.LLMStreamRetries),
	}
}

func newReadinessChecks(db *gorm.DB, client redis.UniversalClient) []httpserver.ReadinessCheck {
	checks := []httpserver.ReadinessCheck{{
		Name:  "database",
		Check: func(ctx context.Context) error { return database.Ping(ctx, db) },
	}}
	if client != nil {
		checks = append(checks, httpserver.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}
	return checks
}
