package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/elevatespaces/staging-api/internal/database"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TeamService struct {
	db *database.DB
}

func NewTeamService(db *database.DB) *TeamService {
	return &TeamService{db: db}
}

func (s *TeamService) Create(ctx context.Context, name, description string, ownerID uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO teams (name, description, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, description, owner_id, wallet, deleted_at, created_at, updated_at
	`, name, description, ownerID).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID,
		&team.Wallet, &team.DeletedAt, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return &team, nil
}

// GetByID returns the team regardless of soft-delete state; callers that must
// reject deleted teams check DeletedAt or use an accounting operation, which
// enforces it in its update predicate.
func (s *TeamService) GetByID(ctx context.Context, teamID uuid.UUID) (*models.Team, error) {
	var team models.Team
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, name, description, owner_id, wallet, deleted_at, created_at, updated_at
		FROM teams WHERE id = $1
	`, teamID).Scan(
		&team.ID, &team.Name, &team.Description, &team.OwnerID,
		&team.Wallet, &team.DeletedAt, &team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &team, nil
}

// GetUserTeams lists active teams the user owns or has an active membership
// in, along with the user's role in each.
func (s *TeamService) GetUserTeams(ctx context.Context, userID uuid.UUID) ([]models.Team, []models.Role, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT t.id, t.name, t.description, t.owner_id, t.wallet, t.deleted_at, t.created_at, t.updated_at,
		       COALESCE(tm.role, 'owner')
		FROM teams t
		LEFT JOIN team_membership tm
		       ON t.id = tm.team_id AND tm.user_id = $1 AND tm.deleted_at IS NULL
		WHERE t.deleted_at IS NULL AND (t.owner_id = $1 OR tm.id IS NOT NULL)
		ORDER BY t.created_at DESC
	`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var teams []models.Team
	var roles []models.Role
	for rows.Next() {
		var team models.Team
		var role models.Role
		if err := rows.Scan(
			&team.ID, &team.Name, &team.Description, &team.OwnerID,
			&team.Wallet, &team.DeletedAt, &team.CreatedAt, &team.UpdatedAt, &role,
		); err != nil {
			return nil, nil, err
		}
		teams = append(teams, team)
		roles = append(roles, role)
	}
	return teams, roles, rows.Err()
}

// SoftDelete marks the team deleted. Once deleted, no accounting operation
// may touch its wallet or memberships.
func (s *TeamService) SoftDelete(ctx context.Context, teamID, ownerID uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE teams SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	`, teamID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		team, err := s.GetByID(ctx, teamID)
		if err != nil {
			return err
		}
		if team.DeletedAt != nil {
			return ErrTeamDeleted
		}
		return ErrNotTeamOwner
	}
	return nil
}

// RoleOf resolves a user's effective role in a team: the owner is implicit,
// everyone else needs an active membership row.
func (s *TeamService) RoleOf(ctx context.Context, teamID, userID uuid.UUID) (models.Role, error) {
	team, err := s.GetByID(ctx, teamID)
	if err != nil {
		return "", err
	}
	if team.DeletedAt != nil {
		return "", ErrTeamDeleted
	}
	if team.OwnerID == userID {
		return models.RoleOwner, nil
	}

	var role models.Role
	err = s.db.Pool.QueryRow(ctx, `
		SELECT role FROM team_membership
		WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, teamID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotAMember
		}
		return "", err
	}
	return role, nil
}

// GetMembers lists active memberships with their users.
func (s *TeamService) GetMembers(ctx context.Context, teamID uuid.UUID) ([]models.Membership, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.id, tm.team_id, tm.user_id, tm.role, tm.allocated, tm.used,
		       tm.joined_at, tm.deleted_at, tm.created_at,
		       u.id, u.email, u.name, u.created_at, u.updated_at
		FROM team_membership tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1 AND tm.deleted_at IS NULL
		ORDER BY tm.created_at
	`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var member models.Membership
		var user models.User
		if err := rows.Scan(
			&member.ID, &member.TeamID, &member.UserID, &member.Role, &member.Allocated, &member.Used,
			&member.JoinedAt, &member.DeletedAt, &member.CreatedAt,
			&user.ID, &user.Email, &user.Name, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		member.User = &user
		members = append(members, member)
	}
	return members, rows.Err()
}

// ChangeMemberRole reassigns an active member's role. The actor needs invite
// authority over the new role.
func (s *TeamService) ChangeMemberRole(ctx context.Context, teamID, actorID, targetUserID uuid.UUID, newRole models.Role) error {
	if !models.ValidMemberRole(newRole) {
		return ErrForbiddenRole
	}

	actorRole, err := s.RoleOf(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if !models.CanInvite(actorRole, newRole) {
		return ErrForbiddenRole
	}

	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE team_membership SET role = $1
		WHERE team_id = $2 AND user_id = $3 AND deleted_at IS NULL
	`, newRole, teamID, targetUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAMember
	}
	return nil
}

// IsActiveMember reports whether the user has a non-deleted membership row.
func (s *TeamService) IsActiveMember(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM team_membership
			WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
		)
	`, teamID, userID).Scan(&exists)
	return exists, err
}
