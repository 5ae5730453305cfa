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

type UserHandler struct {
	userService UserServiceInterface
	ledger      *services.LedgerService
	credits     *cache.CreditCache
}

func NewUserHandler(userService UserServiceInterface, ledger *services.LedgerService, credits *cache.CreditCache) *UserHandler {
	return &UserHandler{userService: userService, ledger: ledger, credits: credits}
}

func (h *UserHandler) GetMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	user, err := h.userService.GetByID(context.Background(), userID)
	if err != nil {
		c.NotFound("user not found")
		return
	}

	_ = c.JSON(200, dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

func (h *UserHandler) UpdateMe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	user, err := h.userService.Update(context.Background(), userID, req.Name)
	if err != nil {
		c.InternalServerError("failed to update user")
		return
	}

	_ = c.JSON(200, dto.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	})
}

// GetMyCredits returns the personal balance, served from cache when a recent
// snapshot exists. The value is for display; deductions re-check the balance.
func (h *UserHandler) GetMyCredits(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	ctx := context.Background()

	if snap, ok := h.credits.GetPersonal(ctx, userID); ok {
		_ = c.JSON(200, dto.PersonalCreditsResponse{Balance: snap.Balance})
		return
	}

	balance, err := h.ledger.GetPersonalBalance(ctx, userID)
	if err != nil {
		c.InternalServerError("failed to get balance")
		return
	}

	h.credits.SetPersonal(ctx, userID, cache.PersonalSnapshot{Balance: balance})

	_ = c.JSON(200, dto.PersonalCreditsResponse{Balance: balance})
}
