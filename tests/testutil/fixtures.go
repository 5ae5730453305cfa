package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/elevatespaces/staging-api/internal/database"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Fixtures provides factory methods for creating test data
type Fixtures struct {
	db      *database.DB
	counter int
}

// NewFixtures creates a new fixtures factory
func NewFixtures(db *database.DB) *Fixtures {
	return &Fixtures{db: db}
}

// CreateUser creates a test user with default values
func (f *Fixtures) CreateUser(t *testing.T, opts ...UserOption) *models.User {
	t.Helper()
	f.counter++

	user := &models.User{
		Email: fmt.Sprintf("user%d@example.com", f.counter),
		Name:  fmt.Sprintf("Test User %d", f.counter),
	}

	for _, opt := range opts {
		opt(user)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	ctx := context.Background()
	err = f.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, created_at, updated_at
	`, user.Email, user.Name, string(hash)).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return user
}

// UserOption configures a test user
type UserOption func(*models.User)

// WithEmail sets the user's email
func WithEmail(email string) UserOption {
	return func(u *models.User) {
		u.Email = email
	}
}

// WithName sets the user's name
func WithName(name string) UserOption {
	return func(u *models.User) {
		u.Name = name
	}
}

// CreateTeam creates a test team owned by the given user
func (f *Fixtures) CreateTeam(t *testing.T, owner *models.User, opts ...TeamOption) *models.Team {
	t.Helper()
	f.counter++

	team := &models.Team{
		Name:    fmt.Sprintf("Test Team %d", f.counter),
		OwnerID: owner.ID,
	}

	for _, opt := range opts {
		opt(team)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO teams (name, description, owner_id, wallet)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, description, owner_id, wallet, created_at, updated_at
	`, team.Name, team.Description, team.OwnerID, team.Wallet).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID,
		&team.Wallet, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		t.Fatalf("failed to create team: %v", err)
	}

	return team
}

// TeamOption configures a test team
type TeamOption func(*models.Team)

// WithTeamName sets the team's name
func WithTeamName(name string) TeamOption {
	return func(t *models.Team) {
		t.Name = name
	}
}

// WithWallet seeds the team wallet with credits
func WithWallet(credits int64) TeamOption {
	return func(t *models.Team) {
		t.Wallet = credits
	}
}

// AddMember adds an active member to a team with the given role
func (f *Fixtures) AddMember(t *testing.T, team *models.Team, user *models.User, role models.Role, opts ...MemberOption) *models.Membership {
	t.Helper()

	m := &models.Membership{
		TeamID: team.ID,
		UserID: user.ID,
		Role:   role,
	}

	for _, opt := range opts {
		opt(m)
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO team_membership (team_id, user_id, role, allocated, used)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at, created_at
	`, m.TeamID, m.UserID, m.Role, m.Allocated, m.Used).Scan(&m.ID, &m.JoinedAt, &m.CreatedAt)
	if err != nil {
		t.Fatalf("failed to add team member: %v", err)
	}

	return m
}

// MemberOption configures a test membership
type MemberOption func(*models.Membership)

// WithAllocation seeds the member's allocated and used credits
func WithAllocation(allocated, used int64) MemberOption {
	return func(m *models.Membership) {
		m.Allocated = allocated
		m.Used = used
	}
}

// SetPersonalBalance sets a user's personal credit balance
func (f *Fixtures) SetPersonalBalance(t *testing.T, userID uuid.UUID, balance int64) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO user_credit_balances (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = $2, updated_at = NOW()
	`, userID, balance)
	if err != nil {
		t.Fatalf("failed to set personal balance: %v", err)
	}
}

// CreateInvite inserts a pending invitation row
func (f *Fixtures) CreateInvite(t *testing.T, team *models.Team, inviterID uuid.UUID, email string, role models.Role, token string, expiresAt time.Time) *models.Invite {
	t.Helper()

	invite := &models.Invite{
		TeamID:    team.ID,
		Email:     email,
		Role:      role,
		InvitedBy: inviterID,
		Token:     token,
		Status:    models.InviteStatusPending,
		ExpiresAt: expiresAt,
	}

	ctx := context.Background()
	err := f.db.Pool.QueryRow(ctx, `
		INSERT INTO team_invites (team_id, email, role, invited_by, token, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, invite.TeamID, invite.Email, invite.Role, invite.InvitedBy,
		invite.Token, invite.Status, invite.ExpiresAt).Scan(&invite.ID, &invite.CreatedAt)
	if err != nil {
		t.Fatalf("failed to create invite: %v", err)
	}

	return invite
}

// CreateRefreshToken creates a test refresh token
func (f *Fixtures) CreateRefreshToken(t *testing.T, userID uuid.UUID, tokenHash string, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()

	_, err := f.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, userID, tokenHash, expiresAt)
	if err != nil {
		t.Fatalf("failed to create refresh token: %v", err)
	}
}
