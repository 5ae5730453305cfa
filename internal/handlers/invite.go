package handlers

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/elevatespaces/staging-api/internal/middleware"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/elevatespaces/staging-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
)

type InviteHandler struct {
	inviteService *services.InviteService
	teamService   *services.TeamService
	userService   UserServiceInterface
	emailService  EmailServiceInterface
	frontendURL   string
}

func NewInviteHandler(
	inviteService *services.InviteService,
	teamService *services.TeamService,
	userService UserServiceInterface,
	emailService EmailServiceInterface,
	frontendURL string,
) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
		teamService:   teamService,
		userService:   userService,
		emailService:  emailService,
		frontendURL:   frontendURL,
	}
}

// Create issues (or refreshes) an invitation and emails the accept link.
// When the email cannot be delivered the invite is marked failed so the
// inviter can retry.
func (h *InviteHandler) Create(c *drift.Context) {
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

	var req dto.CreateInviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		c.BadRequest("invalid email address")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	ctx := context.Background()

	invite, err := h.inviteService.Issue(ctx, teamID, userID, req.Email, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.sendInviteEmail(ctx, invite, userID); err != nil {
		_ = h.inviteService.MarkFailed(ctx, invite.ID)
		c.InternalServerError("failed to send invitation email")
		return
	}

	_ = c.JSON(201, toInviteResponse(invite))
}

// Resend reissues the invitation for an email that already has a row,
// keeping its role and generating a fresh token and expiry.
func (h *InviteHandler) Resend(c *drift.Context) {
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

	var req dto.CreateInviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Email == "" {
		c.BadRequest("email is required")
		return
	}

	ctx := context.Background()

	existing, err := h.inviteService.GetByEmail(ctx, teamID, req.Email)
	if err != nil {
		c.NotFound("no invitation for this email")
		return
	}

	invite, err := h.inviteService.Issue(ctx, teamID, userID, existing.Email, existing.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if err := h.sendInviteEmail(ctx, invite, userID); err != nil {
		_ = h.inviteService.MarkFailed(ctx, invite.ID)
		c.InternalServerError("failed to send invitation email")
		return
	}

	_ = c.JSON(200, toInviteResponse(invite))
}

func (h *InviteHandler) List(c *drift.Context) {
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
		c.NotFound("team not found")
		return
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		c.Forbidden("not allowed to view invitations")
		return
	}

	invites, err := h.inviteService.ListForTeam(ctx, teamID)
	if err != nil {
		c.InternalServerError("failed to list invitations")
		return
	}

	response := make([]dto.InviteResponse, len(invites))
	for i := range invites {
		response[i] = toInviteResponse(&invites[i])
	}

	_ = c.JSON(200, response)
}

// Accept is public: the token itself is the credential.
func (h *InviteHandler) Accept(c *drift.Context) {
	var req dto.AcceptInviteRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.Token == "" {
		c.BadRequest("token is required")
		return
	}

	result, err := h.inviteService.Accept(context.Background(), req.Token, req.Name, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if result.RequiresSignup {
		_ = c.JSON(200, dto.AcceptInviteResponse{
			Message:        "signup required to accept this invitation",
			RequiresSignup: true,
		})
		return
	}

	_ = c.JSON(200, dto.AcceptInviteResponse{
		Message: "invitation accepted",
		TeamID:  result.Invite.TeamID,
	})
}

func (h *InviteHandler) sendInviteEmail(ctx context.Context, invite *models.Invite, inviterID uuid.UUID) error {
	if !h.emailService.IsConfigured() {
		return nil
	}

	team, err := h.teamService.GetByID(ctx, invite.TeamID)
	if err != nil {
		return err
	}
	inviter, err := h.userService.GetByID(ctx, inviterID)
	if err != nil {
		return err
	}

	acceptURL := fmt.Sprintf("%s/invites/accept?token=%s", h.frontendURL, url.QueryEscape(invite.Token))
	return h.emailService.SendTeamInvite(invite.Email, team.Name, inviter.Name, acceptURL)
}

func toInviteResponse(invite *models.Invite) dto.InviteResponse {
	return dto.InviteResponse{
		ID:        invite.ID,
		TeamID:    invite.TeamID,
		Email:     invite.Email,
		Role:      invite.Role,
		Status:    invite.Status,
		ExpiresAt: invite.ExpiresAt,
		CreatedAt: invite.CreatedAt,
	}
}
