package routes

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
	v1 "jan-server/services/claims-api/internal/interfaces/httpserver/routes/v1"
)

// Provider coordinates all route registrations.
type Provider struct {
	handlers *handlers.Provider
	V1       *v1.Routes
}

// NewProvider constructs the route provider.
func NewProvider(handlerProvider *handlers.Provider) *Provider {
	return &Provider{
		handlers: handlerProvider,
		V1:       v1.NewRoutes(handlerProvider),
	}
}

// Register attaches all available routes to the gin engine.
// The chat gateway stays unversioned for existing chat clients.
func (p *Provider) Register(engine *gin.Engine) {
	engine.POST("/chat", p.handlers.Chat.Chat)
	p.V1.Register(engine)
}
