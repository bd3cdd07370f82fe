package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/config"
	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/infrastructure/logger"
	"jan-server/services/claims-api/internal/infrastructure/observability"
	conversationrepo "jan-server/services/claims-api/internal/infrastructure/repository/conversation"
	"jan-server/services/claims-api/internal/interfaces/httpserver"
	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, closeDB, err := newGormDB(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize database")
	}
	defer closeDB()

	claimRepository, err := newClaimRepository(ctx, cfg, db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize claim repository")
	}
	conversationRepository := conversationrepo.NewConversationGormRepository(db)

	redisClient, closeRedis, err := newRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize redis")
	}
	defer closeRedis()
	lifecycleStore := newLifecycleStore(cfg, redisClient, log)

	claimService := claim.NewService(claimRepository, log)
	conversationService := conversation.NewService(conversationRepository, log)
	registry := tool.NewRegistry(tool.NewLookupResolver(claimRepository))

	notifier, stopDelivery, err := newDecisionNotifier(ctx, cfg, db, newWebhookService(cfg, log), log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize decision delivery")
	}
	defer stopDelivery()

	decisionService := decision.NewService(
		lifecycleStore,
		registry,
		claimRepository,
		conversationService,
		notifier,
		log,
	)

	orchestrator := tool.NewOrchestrator(newLLMProvider(cfg), registry, decisionService, newOrchestratorConfig(cfg), log)

	handlerProvider := handlers.NewProvider(orchestrator, decisionService, claimService, conversationService, log)
	httpServer := httpserver.New(cfg, log, handlerProvider, newReadinessChecks(db, redisClient)...)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
