package models

import (
	"time"

	"github.com/google/uuid"
)

type Team struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Wallet      int64      `json:"wallet"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Membership links a user to a team with a role and two credit counters.
// allocated is what the member was granted, used is what they consumed.
type Membership struct {
	ID        uuid.UUID  `json:"id"`
	TeamID    uuid.UUID  `json:"team_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      Role       `json:"role"`
	Allocated int64      `json:"allocated"`
	Used      int64      `json:"used"`
	JoinedAt  time.Time  `json:"joined_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	User      *User      `json:"user,omitempty"`
}

// Remaining is the member's spendable credit, floored at zero because a
// reactivated membership keeps its used history while allocated restarts at 0.
func (m *Membership) Remaining() int64 {
	if r := m.Allocated - m.Used; r > 0 {
		return r
	}
	return 0
}

func (m *Membership) Active() bool {
	return m.DeletedAt == nil
}
