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
)

var (
	ErrInvalidAmount       = errors.New("amount must be a positive number")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTeamDeleted         = errors.New("team has been deleted")
	ErrNotTeamOwner        = errors.New("only the team owner may perform this operation")
	ErrNotAMember          = errors.New("user is not a member of this team")
	ErrForbiddenRole       = errors.New("role is not allowed to perform this operation")
	ErrMissingPaymentRef   = errors.New("payment reference is required")
)

// LedgerService is the credit accounting engine. Every multi-row mutation
// runs in a single transaction, and every balance precondition is part of the
// UPDATE predicate so that two concurrent requests can never both spend the
// same credit.
type LedgerService struct {
	db *database.DB
}

func NewLedgerService(db *database.DB) *LedgerService {
	return &LedgerService{db: db}
}

// Deduct removes amount credits from the payer and appends a usage event in
// the same transaction. On any failure nothing is written, and the caller
// must not proceed with the metered work.
func (s *LedgerService) Deduct(ctx context.Context, payer models.Payer, amount int64) (*models.UsageEvent, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var teamID *uuid.UUID
	switch payer.Kind {
	case models.PayerPersonal:
		if err := s.deductPersonal(ctx, tx, payer.UserID, amount); err != nil {
			return nil, err
		}
	case models.PayerTeamWallet:
		teamID = &payer.TeamID
		if err := s.deductTeamWallet(ctx, tx, payer.TeamID, amount); err != nil {
			return nil, err
		}
	case models.PayerMemberAllocation:
		teamID = &payer.TeamID
		if err := s.deductMemberAllocation(ctx, tx, payer.TeamID, payer.UserID, amount); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown payer kind %q", payer.Kind)
	}

	event := models.UsageEvent{
		UserID:    payer.UserID,
		TeamID:    teamID,
		PayerKind: payer.Kind,
		Amount:    amount,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO usage_events (user_id, team_id, payer_kind, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, payer.UserID, teamID, payer.Kind, amount).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record usage event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &event, nil
}

func (s *LedgerService) deductPersonal(ctx context.Context, tx pgx.Tx, userID uuid.UUID, amount int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE user_credit_balances
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrAccountNotFound
	}
	return ErrInsufficientCredits
}

func (s *LedgerService) deductTeamWallet(ctx context.Context, tx pgx.Tx, teamID uuid.UUID, amount int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE teams
		SET wallet = wallet - $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND wallet >= $2
	`, teamID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return s.classifyTeamFailure(ctx, tx, teamID)
}

func (s *LedgerService) deductMemberAllocation(ctx context.Context, tx pgx.Tx, teamID, userID uuid.UUID, amount int64) error {
	if err := s.requireActiveTeam(ctx, tx, teamID); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE team_membership
		SET used = used + $3
		WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL AND allocated - used >= $3
	`, teamID, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM team_membership
			WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
		)
	`, teamID, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotAMember
	}
	return ErrInsufficientCredits
}

// requireActiveTeam distinguishes a missing team from a soft-deleted one.
func (s *LedgerService) requireActiveTeam(ctx context.Context, tx pgx.Tx, teamID uuid.UUID) error {
	var deletedAt *time.Time
	err := tx.QueryRow(ctx, `SELECT deleted_at FROM teams WHERE id = $1`, teamID).Scan(&deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if deletedAt != nil {
		return ErrTeamDeleted
	}
	return nil
}

// classifyTeamFailure explains why a conditional wallet update matched no row.
func (s *LedgerService) classifyTeamFailure(ctx context.Context, tx pgx.Tx, teamID uuid.UUID) error {
	if err := s.requireActiveTeam(ctx, tx, teamID); err != nil {
		return err
	}
	return ErrInsufficientCredits
}

// TopUpPersonal credits a user's personal balance, exactly once per payment
// reference. A reference that was already completed is a silent no-op.
func (s *LedgerService) TopUpPersonal(ctx context.Context, userID uuid.UUID, amount int64, paymentRef string, priceUSD float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if paymentRef == "" {
		return ErrMissingPaymentRef
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The RETURNING row only appears when this call freshly completed the
	// purchase; a second delivery of the same reference matches nothing.
	var purchaseID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO user_credit_purchases (user_id, amount, price_usd, payment_ref, status, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', NOW())
		ON CONFLICT (payment_ref) DO UPDATE
		SET status = 'completed', completed_at = NOW()
		WHERE user_credit_purchases.status = 'pending'
		RETURNING id
	`, userID, amount, priceUSD, paymentRef).Scan(&purchaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_credit_balances (user_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET balance = user_credit_balances.balance + EXCLUDED.balance, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to apply credits: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TopUpTeamWallet credits a team wallet, exactly once per payment reference.
func (s *LedgerService) TopUpTeamWallet(ctx context.Context, teamID uuid.UUID, amount int64, paymentRef string, priceUSD float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if paymentRef == "" {
		return ErrMissingPaymentRef
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var purchaseID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO team_purchases (team_id, amount, price_usd, payment_ref, status, completed_at)
		VALUES ($1, $2, $3, $4, 'completed', NOW())
		ON CONFLICT (payment_ref) DO UPDATE
		SET status = 'completed', completed_at = NOW()
		WHERE team_purchases.status = 'pending'
		RETURNING id
	`, teamID, amount, priceUSD, paymentRef).Scan(&purchaseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE teams SET wallet = wallet + $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, teamID, amount)
	if err != nil {
		return fmt.Errorf("failed to apply credits: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.classifyTeamFailure(ctx, tx, teamID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TransferPersonalToTeam moves credits from the owner's personal balance into
// the team wallet. Both sides move or neither does.
func (s *LedgerService) TransferPersonalToTeam(ctx context.Context, userID, teamID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerID uuid.UUID
	var deletedAt *time.Time
	err = tx.QueryRow(ctx, `SELECT owner_id, deleted_at FROM teams WHERE id = $1`, teamID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if deletedAt != nil {
		return ErrTeamDeleted
	}
	if ownerID != userID {
		return ErrNotTeamOwner
	}

	tag, err := tx.Exec(ctx, `
		UPDATE user_credit_balances
		SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientCredits
	}

	tag, err = tx.Exec(ctx, `
		UPDATE teams SET wallet = wallet + $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, teamID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamDeleted
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AllocateToMember grants credits to a member. Owners and admins draw from
// the team wallet; agents draw from their own unspent allocation and may only
// fund photographers. A soft-deleted target membership is reactivated first,
// with its allocation reset to zero and its used history kept.
func (s *LedgerService) AllocateToMember(ctx context.Context, teamID, allocatorID, targetUserID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ownerID uuid.UUID
	var deletedAt *time.Time
	err = tx.QueryRow(ctx, `SELECT owner_id, deleted_at FROM teams WHERE id = $1`, teamID).Scan(&ownerID, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}
	if deletedAt != nil {
		return ErrTeamDeleted
	}

	allocatorRole := models.RoleOwner
	if ownerID != allocatorID {
		err = tx.QueryRow(ctx, `
			SELECT role FROM team_membership
			WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
		`, teamID, allocatorID).Scan(&allocatorRole)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotAMember
			}
			return err
		}
	}

	var targetID uuid.UUID
	var targetRole models.Role
	var targetDeletedAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT id, role, deleted_at FROM team_membership
		WHERE team_id = $1 AND user_id = $2
	`, teamID, targetUserID).Scan(&targetID, &targetRole, &targetDeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotAMember
		}
		return err
	}

	if !models.CanAllocateTo(allocatorRole, targetRole) {
		return ErrForbiddenRole
	}

	// A removed member being funded again is implicitly re-admitted.
	if targetDeletedAt != nil {
		_, err = tx.Exec(ctx, `
			UPDATE team_membership
			SET deleted_at = NULL, allocated = 0, joined_at = NOW()
			WHERE id = $1
		`, targetID)
		if err != nil {
			return fmt.Errorf("failed to reactivate membership: %w", err)
		}
	}

	if models.AllocatesFromWallet(allocatorRole) {
		tag, err := tx.Exec(ctx, `
			UPDATE teams SET wallet = wallet - $2, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL AND wallet >= $2
		`, teamID, amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientCredits
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE team_membership SET allocated = allocated - $3
			WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL AND allocated - used >= $3
		`, teamID, allocatorID, amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInsufficientCredits
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE team_membership SET allocated = allocated + $2
		WHERE id = $1
	`, targetID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit member allocation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReclaimOnRemoval returns a member's unused allocation to the team wallet
// and soft-deletes the membership, as one atomic unit. The used counter is
// kept for auditing. Returns how many credits went back to the wallet.
func (s *LedgerService) ReclaimOnRemoval(ctx context.Context, teamID, memberID uuid.UUID) (int64, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.requireActiveTeam(ctx, tx, teamID); err != nil {
		return 0, err
	}

	var allocated, used int64
	err = tx.QueryRow(ctx, `
		UPDATE team_membership SET deleted_at = NOW()
		WHERE team_id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING allocated, used
	`, teamID, memberID).Scan(&allocated, &used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotAMember
		}
		return 0, err
	}

	unused := allocated - used
	if unused < 0 {
		unused = 0
	}

	if unused > 0 {
		tag, err := tx.Exec(ctx, `
			UPDATE teams SET wallet = wallet + $2, updated_at = NOW()
			WHERE id = $1 AND deleted_at IS NULL
		`, teamID, unused)
		if err != nil {
			return 0, err
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrTeamDeleted
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return unused, nil
}

// GetPersonalBalance reads the user's balance. Users without a balance row
// simply have zero credits. The value is a snapshot: it may trail an
// in-flight deduction and must only be used for display.
func (s *LedgerService) GetPersonalBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := s.db.Pool.QueryRow(ctx, `
		SELECT balance FROM user_credit_balances WHERE user_id = $1
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

// GetTeamCredits returns the wallet plus a per-member snapshot, for display.
func (s *LedgerService) GetTeamCredits(ctx context.Context, teamID uuid.UUID) (int64, []models.MemberCredits, error) {
	var wallet int64
	var deletedAt *time.Time
	err := s.db.Pool.QueryRow(ctx, `
		SELECT wallet, deleted_at FROM teams WHERE id = $1
	`, teamID).Scan(&wallet, &deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, ErrAccountNotFound
		}
		return 0, nil, err
	}
	if deletedAt != nil {
		return 0, nil, ErrTeamDeleted
	}

	rows, err := s.db.Pool.Query(ctx, `
		SELECT tm.user_id, u.name, u.email, tm.role, tm.allocated, tm.used,
		       GREATEST(tm.allocated - tm.used, 0)
		FROM team_membership tm
		JOIN users u ON tm.user_id = u.id
		WHERE tm.team_id = $1 AND tm.deleted_at IS NULL
		ORDER BY tm.created_at
	`, teamID)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	var members []models.MemberCredits
	for rows.Next() {
		var mc models.MemberCredits
		if err := rows.Scan(&mc.UserID, &mc.Name, &mc.Email, &mc.Role, &mc.Allocated, &mc.Used, &mc.Remaining); err != nil {
			return 0, nil, err
		}
		members = append(members, mc)
	}
	return wallet, members, rows.Err()
}

// FailStalePendingPurchases marks purchases that never received a payment
// confirmation as failed. Safe to run repeatedly.
func (s *LedgerService) FailStalePendingPurchases(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	var total int64
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE user_credit_purchases SET status = 'failed'
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	total += tag.RowsAffected()

	tag, err = s.db.Pool.Exec(ctx, `
		UPDATE team_purchases SET status = 'failed'
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return total, err
	}
	total += tag.RowsAffected()

	return total, nil
}
