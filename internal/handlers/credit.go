package handlers

import (
	"context"

	"github.com/elevatespaces/staging-api/internal/cache"
	"github.com/elevatespaces/staging-api/internal/middleware"
	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/elevatespaces/staging-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type CreditHandler struct {
	ledger  *services.LedgerService
	credits *cache.CreditCache
}

func NewCreditHandler(ledger *services.LedgerService, credits *cache.CreditCache) *CreditHandler {
	return &CreditHandler{ledger: ledger, credits: credits}
}

// Transfer moves credits from the caller's personal balance into the team
// wallet. Only the team owner may do this.
func (h *CreditHandler) Transfer(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	var req dto.TransferRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	ctx := context.Background()

	if err := h.ledger.TransferPersonalToTeam(ctx, userID, teamID, req.Amount); err != nil {
		respondServiceError(c, err)
		return
	}

	h.credits.InvalidatePersonal(ctx, userID)
	h.credits.InvalidateTeam(ctx, teamID)

	_ = c.JSON(200, map[string]string{"message": "credits transferred"})
}

// Allocate grants credits to a team member from the caller's source: the
// wallet for owners and admins, their own allocation for agents.
func (h *CreditHandler) Allocate(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	var req dto.AllocateRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.UserID == uuid.Nil {
		c.BadRequest("user_id is required")
		return
	}

	ctx := context.Background()

	if err := h.ledger.AllocateToMember(ctx, teamID, userID, req.UserID, req.Amount); err != nil {
		respondServiceError(c, err)
		return
	}

	h.credits.InvalidateTeam(ctx, teamID)

	_ = c.JSON(200, map[string]string{"message": "credits allocated"})
}

// PaymentWebhook is the payment provider's completion callback. Replays of
// the same payment_ref are acknowledged without crediting twice.
func (h *CreditHandler) PaymentWebhook(c *drift.Context) {
	var req dto.PaymentWebhookRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.PaymentRef == "" {
		c.BadRequest("payment_ref is required")
		return
	}
	if (req.UserID == nil) == (req.TeamID == nil) {
		c.BadRequest("exactly one of user_id or team_id is required")
		return
	}

	ctx := context.Background()

	var err error
	if req.UserID != nil {
		err = h.ledger.TopUpPersonal(ctx, *req.UserID, req.Credits, req.PaymentRef, req.PriceUSD)
	} else {
		err = h.ledger.TopUpTeamWallet(ctx, *req.TeamID, req.Credits, req.PaymentRef, req.PriceUSD)
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if req.UserID != nil {
		h.credits.InvalidatePersonal(ctx, *req.UserID)
	} else {
		h.credits.InvalidateTeam(ctx, *req.TeamID)
	}

	_ = c.JSON(200, map[string]string{"message": "payment processed"})
}
