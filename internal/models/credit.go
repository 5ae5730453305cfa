package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusCompleted = "completed"
	PurchaseStatusFailed    = "failed"
)

// Purchase is an external-payment-confirmed credit grant to either a personal
// balance or a team wallet. PaymentRef is the external payment-session
// reference; it is unique so the same confirmation can never apply twice.
type Purchase struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id,omitempty"`
	TeamID      uuid.UUID  `json:"team_id,omitempty"`
	Amount      int64      `json:"amount"`
	PriceUSD    float64    `json:"price_usd"`
	Status      string     `json:"status"`
	PaymentRef  string     `json:"payment_ref"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PayerKind identifies which pot of credits a deduction came from.
type PayerKind string

const (
	PayerPersonal         PayerKind = "personal"
	PayerTeamWallet       PayerKind = "team_wallet"
	PayerMemberAllocation PayerKind = "member_allocation"
)

// Payer is the resolved account a deduction is charged against.
type Payer struct {
	Kind   PayerKind `json:"kind"`
	UserID uuid.UUID `json:"user_id"`
	TeamID uuid.UUID `json:"team_id,omitempty"`
}

// UsageEvent is an append-only record of a single credit deduction.
type UsageEvent struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	TeamID    *uuid.UUID `json:"team_id,omitempty"`
	PayerKind PayerKind `json:"payer_kind"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// MemberCredits is a display snapshot of one member's credit position.
type MemberCredits struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Allocated int64     `json:"allocated"`
	Used      int64     `json:"used"`
	Remaining int64     `json:"remaining"`
}
