package dto

import (
	"time"

	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
)

type CreateInviteRequest struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type InviteResponse struct {
	ID        uuid.UUID   `json:"id"`
	TeamID    uuid.UUID   `json:"team_id"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Status    string      `json:"status"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// AcceptInviteRequest redeems an invitation. Name and Password are only
// needed when the invited email has no account yet.
type AcceptInviteRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

type AcceptInviteResponse struct {
	Message        string    `json:"message"`
	TeamID         uuid.UUID `json:"team_id,omitempty"`
	RequiresSignup bool      `json:"requires_signup,omitempty"`
}
