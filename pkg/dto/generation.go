package dto

import (
	"time"

	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
)

// GenerationRequest asks for one staged rendering of a room photo. TeamID
// selects which account pays; when absent the personal balance is charged.
type GenerationRequest struct {
	ImageURL string     `json:"image_url"`
	RoomType string     `json:"room_type"`
	Style    string     `json:"style"`
	TeamID   *uuid.UUID `json:"team_id,omitempty"`
}

type GenerationResponse struct {
	EventID   uuid.UUID        `json:"event_id"`
	PayerKind models.PayerKind `json:"payer_kind"`
	Charged   int64            `json:"charged"`
	Status    string           `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}
