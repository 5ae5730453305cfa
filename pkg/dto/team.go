package dto

import (
	"time"

	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
)

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TeamResponse struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Role        models.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
}

type TeamMemberResponse struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	Role      models.Role  `json:"role"`
	Allocated int64        `json:"allocated"`
	Used      int64        `json:"used"`
	Remaining int64        `json:"remaining"`
	JoinedAt  time.Time    `json:"joined_at"`
	User      UserResponse `json:"user"`
}

type ChangeMemberRoleRequest struct {
	Role models.Role `json:"role"`
}

type TeamCreditsResponse struct {
	Wallet  int64                  `json:"wallet"`
	Members []models.MemberCredits `json:"members"`
}
