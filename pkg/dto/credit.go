package dto

import "github.com/google/uuid"

type TransferRequest struct {
	Amount int64 `json:"amount"`
}

type AllocateRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Amount int64     `json:"amount"`
}

// PaymentWebhookRequest is the payment provider's completion callback.
// PaymentRef is the provider's session reference; delivering the same
// reference twice credits the account only once.
type PaymentWebhookRequest struct {
	PaymentRef string     `json:"payment_ref"`
	Credits    int64      `json:"credits"`
	PriceUSD   float64    `json:"price_usd"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	TeamID     *uuid.UUID `json:"team_id,omitempty"`
}

type ReclaimResponse struct {
	Message   string `json:"message"`
	Reclaimed int64  `json:"reclaimed"`
}
