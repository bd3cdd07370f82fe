//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/config"
	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/domain/conversation"
	"jan-server/services/claims-api/internal/domain/decision"
	"jan-server/services/claims-api/internal/domain/llm"
	"jan-server/services/claims-api/internal/domain/tool"
	"jan-server/services/claims-api/internal/infrastructure/llmprovider"
	"jan-server/services/claims-api/internal/infrastructure/logger"
	claimrepo "jan-server/services/claims-api/internal/infrastructure/repository/claim"
	conversationrepo "jan-server/services/claims-api/internal/infrastructure/repository/conversation"
	"jan-server/services/claims-api/internal/interfaces/httpserver"
	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
)

var storageSet = wire.NewSet(
	newGormDB,
	newClaimRepository,
	wire.Bind(new(claim.DataSource), new(*claimrepo.ClaimGormRepository)),
	wire.Bind(new(claim.MutationStore), new(*claimrepo.ClaimGormRepository)),
	conversationrepo.NewConversationGormRepository,
	wire.Bind(new(conversation.Repository), new(*conversationrepo.ConversationGormRepository)),
	newRedisClient,
	newLifecycleStore,
)

var claimsSet = wire.NewSet(
	claim.NewService,
	wire.Bind(new(claim.Service), new(*claim.ServiceImpl)),
	conversation.NewService,
	wire.Bind(new(conversation.Service), new(*conversation.ServiceImpl)),
	wire.Bind(new(decision.ConversationWriter), new(*conversation.ServiceImpl)),
	tool.NewLookupResolver,
	tool.NewRegistry,
	newWebhookService,
	newDecisionNotifier,
	decision.NewService,
	wire.Bind(new(decision.Service), new(*decision.ServiceImpl)),
	wire.Bind(new(tool.ProposalRecorder), new(*decision.ServiceImpl)),
	newLLMProvider,
	wire.Bind(new(llm.Provider), new(*llmprovider.Client)),
	newOrchestratorConfig,
	tool.NewOrchestrator,
	wire.Bind(new(handlers.TurnRunner), new(*tool.Orchestrator)),
)

// BuildApplication assembles the claims service with Wire.
func BuildApplication(ctx context.Context) (*Application, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		storageSet,
		claimsSet,
		handlers.NewProvider,
		newReadinessChecks,
		newHTTPServer,
		NewApplication,
	)
	return nil, nil, nil
}

func newHTTPServer(cfg *config.Config, log zerolog.Logger, provider *handlers.Provider, checks []httpserver.ReadinessCheck) *httpserver.HttpServer {
	return httpserver.New(cfg, log, provider, checks...)
}
