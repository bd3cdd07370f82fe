package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
)

func registerToolCallRoutes(router gin.IRoutes, handler *handlers.DecisionHandler) {
	router.GET("/tool-calls/:call_id", handler.Get)
	router.POST("/tool-calls/:call_id/decision", handler.Decide)
}
