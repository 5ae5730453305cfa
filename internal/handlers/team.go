package handlers

import (
	"context"
	"errors"

	"github.com/elevatespaces/staging-api/internal/cache"
	"github.com/elevatespaces/staging-api/internal/middleware"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/elevatespaces/staging-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type TeamHandler struct {
	teamService *services.TeamService
	ledger      *services.LedgerService
	credits     *cache.CreditCache
}

func NewTeamHandler(teamService *services.TeamService, ledger *services.LedgerService, credits *cache.CreditCache) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		ledger:      ledger,
		credits:     credits,
	}
}

func (h *TeamHandler) Create(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.CreateTeamRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Name == "" {
		c.BadRequest("name is required")
		return
	}

	team, err := h.teamService.Create(context.Background(), req.Name, req.Description, userID)
	if err != nil {
		c.InternalServerError("failed to create team")
		return
	}

	_ = c.JSON(201, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        models.RoleOwner,
		CreatedAt:   team.CreatedAt,
	})
}

func (h *TeamHandler) List(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teams, roles, err := h.teamService.GetUserTeams(context.Background(), userID)
	if err != nil {
		c.InternalServerError("failed to get teams")
		return
	}

	response := make([]dto.TeamResponse, len(teams))
	for i, team := range teams {
		response[i] = dto.TeamResponse{
			ID:          team.ID,
			Name:        team.Name,
			Description: team.Description,
			OwnerID:     team.OwnerID,
			Role:        roles[i],
			CreatedAt:   team.CreatedAt,
		}
	}

	_ = c.JSON(200, response)
}

func (h *TeamHandler) Get(c *drift.Context) {
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

	ctx := context.Background()

	role, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		// Outsiders see the same response as a missing team.
		c.NotFound("team not found")
		return
	}

	team, err := h.teamService.GetByID(ctx, teamID)
	if err != nil {
		c.NotFound("team not found")
		return
	}

	_ = c.JSON(200, dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		OwnerID:     team.OwnerID,
		Role:        role,
		CreatedAt:   team.CreatedAt,
	})
}

func (h *TeamHandler) Delete(c *drift.Context) {
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

	ctx := context.Background()

	if err := h.teamService.SoftDelete(ctx, teamID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	h.credits.InvalidateTeam(ctx, teamID)

	_ = c.JSON(200, map[string]string{"message": "team deleted"})
}

func (h *TeamHandler) GetMembers(c *drift.Context) {
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

	ctx := context.Background()

	if _, err := h.teamService.RoleOf(ctx, teamID, userID); err != nil {
		c.NotFound("team not found")
		return
	}

	members, err := h.teamService.GetMembers(ctx, teamID)
	if err != nil {
		c.InternalServerError("failed to get members")
		return
	}

	response := make([]dto.TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = dto.TeamMemberResponse{
			ID:        m.ID,
			UserID:    m.UserID,
			Role:      m.Role,
			Allocated: m.Allocated,
			Used:      m.Used,
			Remaining: m.Remaining(),
			JoinedAt:  m.JoinedAt,
			User: dto.UserResponse{
				ID:        m.User.ID,
				Email:     m.User.Email,
				Name:      m.User.Name,
				CreatedAt: m.User.CreatedAt,
			},
		}
	}

	_ = c.JSON(200, response)
}

// GetCredits returns the wallet plus per-member counters, cached briefly.
func (h *TeamHandler) GetCredits(c *drift.Context) {
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

	ctx := context.Background()

	if _, err := h.teamService.RoleOf(ctx, teamID, userID); err != nil {
		c.NotFound("team not found")
		return
	}

	if snap, ok := h.credits.GetTeam(ctx, teamID); ok {
		_ = c.JSON(200, dto.TeamCreditsResponse{Wallet: snap.Wallet, Members: snap.Members})
		return
	}

	wallet, members, err := h.ledger.GetTeamCredits(ctx, teamID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.credits.SetTeam(ctx, teamID, cache.TeamSnapshot{Wallet: wallet, Members: members})

	_ = c.JSON(200, dto.TeamCreditsResponse{Wallet: wallet, Members: members})
}

func (h *TeamHandler) ChangeMemberRole(c *drift.Context) {
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

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	var req dto.ChangeMemberRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if err := h.teamService.ChangeMemberRole(context.Background(), teamID, userID, memberID, req.Role); err != nil {
		respondServiceError(c, err)
		return
	}

	_ = c.JSON(200, map[string]string{"message": "role updated"})
}

// RemoveMember soft-deletes a membership and returns its unused allocation
// to the wallet. Owners and admins may remove anyone; admins removing
// themselves go through Leave.
func (h *TeamHandler) RemoveMember(c *drift.Context) {
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

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		c.BadRequest("invalid member id")
		return
	}

	ctx := context.Background()

	actorRole, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if memberID != userID && !models.CanRemoveMember(actorRole) {
		c.Forbidden("not allowed to remove members")
		return
	}

	reclaimed, err := h.ledger.ReclaimOnRemoval(ctx, teamID, memberID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.credits.InvalidateTeam(ctx, teamID)

	_ = c.JSON(200, dto.ReclaimResponse{Message: "member removed", Reclaimed: reclaimed})
}

func (h *TeamHandler) Leave(c *drift.Context) {
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

	ctx := context.Background()

	role, err := h.teamService.RoleOf(ctx, teamID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if role == models.RoleOwner {
		c.BadRequest("owner cannot leave the team, delete it instead")
		return
	}

	reclaimed, err := h.ledger.ReclaimOnRemoval(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, services.ErrNotAMember) {
			c.NotFound("not a member of this team")
			return
		}
		respondServiceError(c, err)
		return
	}

	h.credits.InvalidateTeam(ctx, teamID)

	_ = c.JSON(200, dto.ReclaimResponse{Message: "left team", Reclaimed: reclaimed})
}
