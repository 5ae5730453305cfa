package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/elevatespaces/staging-api/internal/database"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UsagePublisher receives a copy of every recorded usage event. Publishing is
// best effort; the deduction has already committed by the time it is called.
type UsagePublisher interface {
	PublishUsageRecorded(ctx context.Context, event *models.UsageEvent) error
}

// MeteringService sits between metered work and the ledger: it resolves which
// account pays, charges it, and emits the usage event. Work must not proceed
// when ChargeForGeneration returns an error.
type MeteringService struct {
	db        *database.DB
	ledger    *LedgerService
	publisher UsagePublisher
}

func NewMeteringService(db *database.DB, ledger *LedgerService, publisher UsagePublisher) *MeteringService {
	return &MeteringService{db: db, ledger: ledger, publisher: publisher}
}

// ResolvePayer maps a request context to the account that pays for it.
// Without a team the personal balance pays. Within a team, the owner spends
// from the wallet and members spend from their allocation.
func (s *MeteringService) ResolvePayer(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID) (models.Payer, error) {
	if teamID == nil {
		return models.Payer{Kind: models.PayerPersonal, UserID: userID}, nil
	}

	var ownerID uuid.UUID
	var deletedAt *time.Time
	err := s.db.Pool.QueryRow(ctx, `
		SELECT owner_id, deleted_at FROM teams WHERE id = $1
	`, *teamID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Payer{}, ErrAccountNotFound
		}
		return models.Payer{}, err
	}
	if deletedAt != nil {
		return models.Payer{}, ErrTeamDeleted
	}

	if ownerID == userID {
		return models.Payer{Kind: models.PayerTeamWallet, UserID: userID, TeamID: *teamID}, nil
	}

	var isMember bool
	err = s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM team_membership
			WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
		)
	`, *teamID, userID).Scan(&isMember)
	if err != nil {
		return models.Payer{}, err
	}
	if !isMember {
		return models.Payer{}, ErrNotAMember
	}
	return models.Payer{Kind: models.PayerMemberAllocation, UserID: userID, TeamID: *teamID}, nil
}

// ChargeForGeneration charges one credit for a single staging generation.
func (s *MeteringService) ChargeForGeneration(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID) (*models.UsageEvent, error) {
	return s.Charge(ctx, userID, teamID, 1)
}

// Charge resolves the payer, deducts amount, and publishes the usage event.
func (s *MeteringService) Charge(ctx context.Context, userID uuid.UUID, teamID *uuid.UUID, amount int64) (*models.UsageEvent, error) {
	payer, err := s.ResolvePayer(ctx, userID, teamID)
	if err != nil {
		return nil, err
	}

	event, err := s.ledger.Deduct(ctx, payer, amount)
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishUsageRecorded(ctx, event); err != nil {
			log.Printf("failed to publish usage event %s: %v", event.ID, err)
		}
	}
	return event, nil
}
