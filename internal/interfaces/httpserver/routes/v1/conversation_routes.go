package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
)

func registerConversationRoutes(router gin.IRoutes, handler *handlers.ConversationHandler) {
	router.GET("/conversations/:conversation_id", handler.Get)
}
