package v1

import (
	"github.com/gin-gonic/gin"

	"jan-server/services/claims-api/internal/interfaces/httpserver/handlers"
)

func registerClaimRoutes(router gin.IRoutes, handler *handlers.ClaimHandler) {
	router.GET("/claims", handler.List)
	router.GET("/claims/:claim_id", handler.Get)
}
