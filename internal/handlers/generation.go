package handlers

import (
	"context"

	"github.com/elevatespaces/staging-api/internal/cache"
	"github.com/elevatespaces/staging-api/internal/middleware"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/elevatespaces/staging-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type GenerationHandler struct {
	metering *services.MeteringService
	credits  *cache.CreditCache
}

func NewGenerationHandler(metering *services.MeteringService, credits *cache.CreditCache) *GenerationHandler {
	return &GenerationHandler{metering: metering, credits: credits}
}

// Create charges one credit and queues a staging generation. The charge
// commits before any work starts; a failed charge means no generation.
func (h *GenerationHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.GenerationRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.ImageURL == "" {
		c.BadRequest("image_url is required")
		return
	}

	ctx := context.Background()

	event, err := h.metering.ChargeForGeneration(ctx, userID, req.TeamID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if event.PayerKind == models.PayerPersonal {
		h.credits.InvalidatePersonal(ctx, userID)
	} else if event.TeamID != nil {
		h.credits.InvalidateTeam(ctx, *event.TeamID)
	}

	_ = c.JSON(202, dto.GenerationResponse{
		EventID:   event.ID,
		PayerKind: event.PayerKind,
		Charged:   event.Amount,
		Status:    "queued",
		CreatedAt: event.CreatedAt,
	})
}
