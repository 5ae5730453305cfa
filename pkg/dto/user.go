package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateUserRequest struct {
	Name string `json:"name"`
}

type PersonalCreditsResponse struct {
	Balance int64 `json:"balance"`
}
