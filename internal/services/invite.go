package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elevatespaces/staging-api/internal/database"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken  = errors.New("invalid invitation token")
	ErrInviteExpired = errors.New("invitation has expired")
	ErrAlreadyMember = errors.New("user is already a member of this team")
)

// InviteService runs the invitation lifecycle: pending on issue, then exactly
// one of accepted or failed. Re-inviting the same email overwrites the
// pending row, so at most one invite per (team, email) is live at a time.
type InviteService struct {
	db     *database.DB
	jwt    *JWTService
	expiry time.Duration
	now    func() time.Time
}

func NewInviteService(db *database.DB, jwt *JWTService, expiry time.Duration) *InviteService {
	return &InviteService{db: db, jwt: jwt, expiry: expiry, now: time.Now}
}

// AcceptResult reports what Accept did. RequiresSignup means the invite is
// valid but no account exists for its email, and no state was changed; the
// caller should collect signup details and retry with them.
type AcceptResult struct {
	Invite         *models.Invite `json:"invite"`
	User           *models.User   `json:"-"`
	RequiresSignup bool           `json:"requires_signup"`
	UserCreated    bool           `json:"user_created"`
}

// Issue creates or refreshes the invitation for email on the team. The
// inviter needs authority over the requested role, and the email must not
// already belong to an active member.
func (s *InviteService) Issue(ctx context.Context, teamID, inviterID uuid.UUID, email string, role models.Role) (*models.Invite, error) {
	if !models.ValidMemberRole(role) {
		return nil, ErrForbiddenRole
	}

	var ownerID uuid.UUID
	var deletedAt *time.Time
	err := s.db.Pool.QueryRow(ctx, `
		SELECT owner_id, deleted_at FROM teams WHERE id = $1
	`, teamID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if deletedAt != nil {
		return nil, ErrTeamDeleted
	}

	inviterRole := models.RoleOwner
	if ownerID != inviterID {
		err = s.db.Pool.QueryRow(ctx, `
			SELECT role FROM team_membership
			WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
		`, teamID, inviterID).Scan(&inviterRole)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotAMember
			}
			return nil, err
		}
	}
	if !models.CanInvite(inviterRole, role) {
		return nil, ErrForbiddenRole
	}

	var active bool
	err = s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM users u
			LEFT JOIN team_membership tm
			       ON tm.user_id = u.id AND tm.team_id = $1 AND tm.deleted_at IS NULL
			LEFT JOIN teams t ON t.id = $1 AND t.owner_id = u.id
			WHERE u.email = $2 AND (tm.id IS NOT NULL OR t.id IS NOT NULL)
		)
	`, teamID, email).Scan(&active)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, ErrAlreadyMember
	}

	token, err := s.jwt.GenerateInviteToken(email, teamID, string(role), inviterID)
	if err != nil {
		return nil, err
	}

	var invite models.Invite
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO team_invites (team_id, email, role, invited_by, token, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		ON CONFLICT (team_id, email) DO UPDATE
		SET role = EXCLUDED.role, invited_by = EXCLUDED.invited_by,
		    token = EXCLUDED.token, status = 'pending', expires_at = EXCLUDED.expires_at,
		    accepted_by = NULL, accepted_at = NULL, updated_at = NOW()
		RETURNING id, team_id, email, role, invited_by, token, status, expires_at,
		          accepted_by, accepted_at, created_at, updated_at
	`, teamID, email, role, inviterID, token, s.now().Add(s.expiry)).Scan(
		&invite.ID, &invite.TeamID, &invite.Email, &invite.Role, &invite.InvitedBy,
		&invite.Token, &invite.Status, &invite.ExpiresAt,
		&invite.AcceptedBy, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store invite: %w", err)
	}
	return &invite, nil
}

// MarkFailed flags an invite whose delivery failed so it can be reissued.
func (s *InviteService) MarkFailed(ctx context.Context, inviteID uuid.UUID) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE team_invites SET status = 'failed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, inviteID)
	return err
}

// Accept redeems an invitation token. Accepting an already-accepted invite is
// a no-op success. An expired invite is marked failed and rejected. When the
// email has no account and name/password are provided, the account is created
// as part of acceptance; when they are absent, RequiresSignup is returned and
// nothing changes.
func (s *InviteService) Accept(ctx context.Context, token, name, password string) (*AcceptResult, error) {
	if _, err := s.jwt.ValidateInviteToken(token); err != nil {
		return nil, ErrInvalidToken
	}

	var invite models.Invite
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, team_id, email, role, invited_by, token, status, expires_at,
		       accepted_by, accepted_at, created_at, updated_at
		FROM team_invites WHERE token = $1
	`, token).Scan(
		&invite.ID, &invite.TeamID, &invite.Email, &invite.Role, &invite.InvitedBy,
		&invite.Token, &invite.Status, &invite.ExpiresAt,
		&invite.AcceptedBy, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	switch invite.Status {
	case models.InviteStatusAccepted:
		return &AcceptResult{Invite: &invite}, nil
	case models.InviteStatusFailed:
		return nil, ErrInviteExpired
	}

	if s.now().After(invite.ExpiresAt) {
		if err := s.MarkFailed(ctx, invite.ID); err != nil {
			return nil, err
		}
		return nil, ErrInviteExpired
	}

	var deletedAt *time.Time
	err = s.db.Pool.QueryRow(ctx, `
		SELECT deleted_at FROM teams WHERE id = $1
	`, invite.TeamID).Scan(&deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if deletedAt != nil {
		return nil, ErrTeamDeleted
	}

	result := &AcceptResult{Invite: &invite}

	var userID uuid.UUID
	err = s.db.Pool.QueryRow(ctx, `
		SELECT id FROM users WHERE email = $1
	`, invite.Email).Scan(&userID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if name == "" || password == "" {
			result.RequiresSignup = true
			return result, nil
		}
		user, err := s.createUser(ctx, invite.Email, name, password)
		if err != nil {
			return nil, err
		}
		userID = user.ID
		result.User = user
		result.UserCreated = true
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// A previously removed member comes back with a fresh allocation but
	// keeps its lifetime used counter.
	_, err = tx.Exec(ctx, `
		INSERT INTO team_membership (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO UPDATE
		SET role = EXCLUDED.role,
		    allocated = CASE WHEN team_membership.deleted_at IS NOT NULL THEN 0 ELSE team_membership.allocated END,
		    deleted_at = NULL,
		    joined_at = NOW()
	`, invite.TeamID, userID, invite.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	err = tx.QueryRow(ctx, `
		UPDATE team_invites
		SET status = 'accepted', accepted_by = $2, accepted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING status, accepted_by, accepted_at, updated_at
	`, invite.ID, userID).Scan(&invite.Status, &invite.AcceptedBy, &invite.AcceptedAt, &invite.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Raced with another acceptance of the same token.
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to mark invite accepted: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func (s *InviteService) createUser(ctx context.Context, email, name, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user models.User
	err = s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, created_at, updated_at
	`, email, name, string(hash)).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetByEmail returns the invite row for (team, email), if any.
func (s *InviteService) GetByEmail(ctx context.Context, teamID uuid.UUID, email string) (*models.Invite, error) {
	var invite models.Invite
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, team_id, email, role, invited_by, token, status, expires_at,
		       accepted_by, accepted_at, created_at, updated_at
		FROM team_invites WHERE team_id = $1 AND email = $2
	`, teamID, email).Scan(
		&invite.ID, &invite.TeamID, &invite.Email, &invite.Role, &invite.InvitedBy,
		&invite.Token, &invite.Status, &invite.ExpiresAt,
		&invite.AcceptedBy, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &invite, nil
}

// ListForTeam returns the team's invites, newest first.
func (s *InviteService) ListForTeam(ctx context.Context, teamID uuid.UUID) ([]models.Invite, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, team_id, email, role, invited_by, token, status, expires_at,
		       accepted_by, accepted_at, created_at, updated_at
		FROM team_invites WHERE team_id = $1
		ORDER BY created_at DESC
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.Invite
	for rows.Next() {
		var invite models.Invite
		if err := rows.Scan(
			&invite.ID, &invite.TeamID, &invite.Email, &invite.Role, &invite.InvitedBy,
			&invite.Token, &invite.Status, &invite.ExpiresAt,
			&invite.AcceptedBy, &invite.AcceptedAt, &invite.CreatedAt, &invite.UpdatedAt,
		); err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

// SweepExpired marks pending invites past their expiry as failed. Safe to run
// repeatedly; acceptance checks expiry itself, so the sweep is housekeeping,
// not a correctness requirement.
func (s *InviteService) SweepExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE team_invites SET status = 'failed', updated_at = NOW()
		WHERE status = 'pending' AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
