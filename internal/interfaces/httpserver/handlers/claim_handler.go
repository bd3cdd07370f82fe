package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/claims-api/internal/domain/claim"
	"jan-server/services/claims-api/internal/interfaces/httpserver/responses"
	"jan-server/services/claims-api/internal/utils/platformerrors"
)

// ClaimHandler serves read access to claims.
type ClaimHandler struct {
	service claim.Service
	log     zerolog.Logger
}

// NewClaimHandler constructs the handler.
func NewClaimHandler(service claim.Service, log zerolog.Logger) *ClaimHandler {
	return &ClaimHandler{
		service: service,
		log:     log.With().Str("handler", "claim").Logger(),
	}
}

// List handles GET /v1/claims?status=
func (h *ClaimHandler) List(c *gin.Context) {
	var filter claim.Filter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := claim.Status(raw)
		if !status.Valid() {
			responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
				fmt.Sprintf("unknown claim status %q", raw), "claim-list-status-001")
			return
		}
		filter.Status = &status
	}

	claims, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		responses.HandleError(c, err, "failed to list claims")
		return
	}
	if claims == nil {
		claims = []*claim.Claim{}
	}
	c.JSON(http.StatusOK, responses.ClaimListResponse{Data: claims, Total: len(claims)})
}

// Get handles GET /v1/claims/:claim_id
func (h *ClaimHandler) Get(c *gin.Context) {
	found, err := h.service.Get(c.Request.Context(), c.Param("claim_id"))
	if err != nil {
		responses.HandleError(c, err, "failed to load claim")
		return
	}
	c.JSON(http.StatusOK, found)
}
