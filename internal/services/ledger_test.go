package services

import (
	"context"
	"testing"
	"time"

	"github.com/elevatespaces/staging-api/internal/database"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedgerService(t *testing.T) (*LedgerService, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewLedgerService(db), mock
}

func TestLedgerService_Deduct_InvalidAmount(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerPersonal, UserID: uuid.New()}, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Deduct(ctx, models.Payer{Kind: models.PayerPersonal, UserID: uuid.New()}, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_Personal_Success(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mock.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, pgxmock.AnyArg(), models.PayerPersonal, int64(3)).
		WillReturnRows(eventRows)

	mock.ExpectCommit()

	event, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerPersonal, UserID: userID}, 3)

	require.NoError(t, err)
	assert.Equal(t, eventID, event.ID)
	assert.Equal(t, models.PayerPersonal, event.PayerKind)
	assert.Nil(t, event.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_Personal_Insufficient(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	existsRows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(userID).
		WillReturnRows(existsRows)

	mock.ExpectRollback()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerPersonal, UserID: userID}, 100)

	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_Personal_AccountNotFound(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	existsRows := pgxmock.NewRows([]string{"exists"}).AddRow(false)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(userID).
		WillReturnRows(existsRows)

	mock.ExpectRollback()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerPersonal, UserID: userID}, 1)

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_TeamWallet_Success(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mock.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, &teamID, models.PayerTeamWallet, int64(1)).
		WillReturnRows(eventRows)

	mock.ExpectCommit()

	event, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerTeamWallet, UserID: userID, TeamID: teamID}, 1)

	require.NoError(t, err)
	require.NotNil(t, event.TeamID)
	assert.Equal(t, teamID, *event.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_TeamWallet_Deleted(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()
	deletedAt := time.Now()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(&deletedAt)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectRollback()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerTeamWallet, UserID: uuid.New(), TeamID: teamID}, 1)

	assert.ErrorIs(t, err, ErrTeamDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_TeamWallet_NotFound(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnError(pgx.ErrNoRows)

	mock.ExpectRollback()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerTeamWallet, UserID: uuid.New(), TeamID: teamID}, 1)

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_MemberAllocation_Success(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(nil)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectExec(`UPDATE team_membership SET used`).
		WithArgs(teamID, userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mock.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, &teamID, models.PayerMemberAllocation, int64(1)).
		WillReturnRows(eventRows)

	mock.ExpectCommit()

	event, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerMemberAllocation, UserID: userID, TeamID: teamID}, 1)

	require.NoError(t, err)
	assert.Equal(t, models.PayerMemberAllocation, event.PayerKind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_MemberAllocation_Insufficient(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(nil)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectExec(`UPDATE team_membership SET used`).
		WithArgs(teamID, userID, int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	existsRows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(teamID, userID).
		WillReturnRows(existsRows)

	mock.ExpectRollback()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerMemberAllocation, UserID: userID, TeamID: teamID}, 10)

	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_Deduct_MemberAllocation_NotAMember(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(nil)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectExec(`UPDATE team_membership SET used`).
		WithArgs(teamID, userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	existsRows := pgxmock.NewRows([]string{"exists"}).AddRow(false)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(teamID, userID).
		WillReturnRows(existsRows)

	mock.ExpectRollback()

	_, err := svc.Deduct(ctx, models.Payer{Kind: models.PayerMemberAllocation, UserID: userID, TeamID: teamID}, 1)

	assert.ErrorIs(t, err, ErrNotAMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TopUpPersonal_Success(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	purchaseID := uuid.New()

	mock.ExpectBegin()

	purchaseRows := pgxmock.NewRows([]string{"id"}).AddRow(purchaseID)
	mock.ExpectQuery(`INSERT INTO user_credit_purchases`).
		WithArgs(userID, int64(100), 19.99, "sess_abc").
		WillReturnRows(purchaseRows)

	mock.ExpectExec(`INSERT INTO user_credit_balances`).
		WithArgs(userID, int64(100)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectCommit()

	err := svc.TopUpPersonal(ctx, userID, 100, "sess_abc", 19.99)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TopUpPersonal_DuplicateRef(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()

	// A ref that already completed matches no row: silent no-op.
	mock.ExpectQuery(`INSERT INTO user_credit_purchases`).
		WithArgs(userID, int64(100), 19.99, "sess_abc").
		WillReturnError(pgx.ErrNoRows)

	mock.ExpectRollback()

	err := svc.TopUpPersonal(ctx, userID, 100, "sess_abc", 19.99)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TopUpPersonal_MissingRef(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()

	err := svc.TopUpPersonal(ctx, uuid.New(), 100, "", 19.99)

	assert.ErrorIs(t, err, ErrMissingPaymentRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TopUpTeamWallet_Success(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()
	purchaseID := uuid.New()

	mock.ExpectBegin()

	purchaseRows := pgxmock.NewRows([]string{"id"}).AddRow(purchaseID)
	mock.ExpectQuery(`INSERT INTO team_purchases`).
		WithArgs(teamID, int64(500), 89.99, "sess_team").
		WillReturnRows(purchaseRows)

	mock.ExpectExec(`UPDATE teams SET wallet = wallet \+`).
		WithArgs(teamID, int64(500)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectCommit()

	err := svc.TopUpTeamWallet(ctx, teamID, 500, "sess_team", 89.99)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TransferPersonalToTeam_Success(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(userID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`UPDATE teams SET wallet = wallet \+`).
		WithArgs(teamID, int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectCommit()

	err := svc.TransferPersonalToTeam(ctx, userID, teamID, 50)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TransferPersonalToTeam_NotOwner(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(uuid.New(), nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectRollback()

	err := svc.TransferPersonalToTeam(ctx, userID, teamID, 50)

	assert.ErrorIs(t, err, ErrNotTeamOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TransferPersonalToTeam_Insufficient(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(userID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(5000)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	mock.ExpectRollback()

	err := svc.TransferPersonalToTeam(ctx, userID, teamID, 5000)

	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_TransferPersonalToTeam_RollbackOnWalletFailure(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(userID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	// The wallet update fails, so the balance decrement must not survive.
	mock.ExpectExec(`UPDATE teams SET wallet = wallet \+`).
		WithArgs(teamID, int64(50)).
		WillReturnError(assert.AnError)

	mock.ExpectRollback()

	err := svc.TransferPersonalToTeam(ctx, userID, teamID, 50)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AllocateToMember_OwnerFromWallet(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	targetID := uuid.New()
	teamID := uuid.New()
	membershipID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(ownerID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	targetRows := pgxmock.NewRows([]string{"id", "role", "deleted_at"}).
		AddRow(membershipID, models.RolePhotographer, nil)
	mock.ExpectQuery(`SELECT id, role, deleted_at FROM team_membership`).
		WithArgs(teamID, targetID).
		WillReturnRows(targetRows)

	mock.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`UPDATE team_membership SET allocated = allocated \+`).
		WithArgs(membershipID, int64(50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectCommit()

	err := svc.AllocateToMember(ctx, teamID, ownerID, targetID, 50)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AllocateToMember_AgentToPhotographer(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	agentID := uuid.New()
	targetID := uuid.New()
	teamID := uuid.New()
	membershipID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(uuid.New(), nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	agentRows := pgxmock.NewRows([]string{"role"}).AddRow(models.RoleAgent)
	mock.ExpectQuery(`SELECT role FROM team_membership`).
		WithArgs(teamID, agentID).
		WillReturnRows(agentRows)

	targetRows := pgxmock.NewRows([]string{"id", "role", "deleted_at"}).
		AddRow(membershipID, models.RolePhotographer, nil)
	mock.ExpectQuery(`SELECT id, role, deleted_at FROM team_membership`).
		WithArgs(teamID, targetID).
		WillReturnRows(targetRows)

	// Agents spend their own unspent allocation, not the wallet.
	mock.ExpectExec(`UPDATE team_membership SET allocated = allocated -`).
		WithArgs(teamID, agentID, int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`UPDATE team_membership SET allocated = allocated \+`).
		WithArgs(membershipID, int64(10)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectCommit()

	err := svc.AllocateToMember(ctx, teamID, agentID, targetID, 10)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AllocateToMember_AgentToMember_Forbidden(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	agentID := uuid.New()
	targetID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(uuid.New(), nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	agentRows := pgxmock.NewRows([]string{"role"}).AddRow(models.RoleAgent)
	mock.ExpectQuery(`SELECT role FROM team_membership`).
		WithArgs(teamID, agentID).
		WillReturnRows(agentRows)

	targetRows := pgxmock.NewRows([]string{"id", "role", "deleted_at"}).
		AddRow(uuid.New(), models.RoleMember, nil)
	mock.ExpectQuery(`SELECT id, role, deleted_at FROM team_membership`).
		WithArgs(teamID, targetID).
		WillReturnRows(targetRows)

	mock.ExpectRollback()

	err := svc.AllocateToMember(ctx, teamID, agentID, targetID, 10)

	assert.ErrorIs(t, err, ErrForbiddenRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AllocateToMember_ReactivatesRemovedMember(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	targetID := uuid.New()
	teamID := uuid.New()
	membershipID := uuid.New()
	removedAt := time.Now().Add(-time.Hour)

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(ownerID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	targetRows := pgxmock.NewRows([]string{"id", "role", "deleted_at"}).
		AddRow(membershipID, models.RoleMember, &removedAt)
	mock.ExpectQuery(`SELECT id, role, deleted_at FROM team_membership`).
		WithArgs(teamID, targetID).
		WillReturnRows(targetRows)

	mock.ExpectExec(`UPDATE team_membership\s+SET deleted_at = NULL, allocated = 0`).
		WithArgs(membershipID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(20)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectExec(`UPDATE team_membership SET allocated = allocated \+`).
		WithArgs(membershipID, int64(20)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectCommit()

	err := svc.AllocateToMember(ctx, teamID, ownerID, targetID, 20)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_AllocateToMember_WalletInsufficient(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	ownerID := uuid.New()
	targetID := uuid.New()
	teamID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(ownerID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	targetRows := pgxmock.NewRows([]string{"id", "role", "deleted_at"}).
		AddRow(uuid.New(), models.RoleMember, nil)
	mock.ExpectQuery(`SELECT id, role, deleted_at FROM team_membership`).
		WithArgs(teamID, targetID).
		WillReturnRows(targetRows)

	mock.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(9999)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	mock.ExpectRollback()

	err := svc.AllocateToMember(ctx, teamID, ownerID, targetID, 9999)

	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_ReclaimOnRemoval_ReturnsUnused(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()
	memberID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(nil)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	memberRows := pgxmock.NewRows([]string{"allocated", "used"}).AddRow(int64(100), int64(30))
	mock.ExpectQuery(`UPDATE team_membership SET deleted_at = NOW`).
		WithArgs(teamID, memberID).
		WillReturnRows(memberRows)

	mock.ExpectExec(`UPDATE teams SET wallet = wallet \+`).
		WithArgs(teamID, int64(70)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	mock.ExpectCommit()

	reclaimed, err := svc.ReclaimOnRemoval(ctx, teamID, memberID)

	require.NoError(t, err)
	assert.Equal(t, int64(70), reclaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_ReclaimOnRemoval_NothingUnused(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()
	memberID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(nil)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	// Reactivation can leave used above allocated; nothing goes back.
	memberRows := pgxmock.NewRows([]string{"allocated", "used"}).AddRow(int64(30), int64(50))
	mock.ExpectQuery(`UPDATE team_membership SET deleted_at = NOW`).
		WithArgs(teamID, memberID).
		WillReturnRows(memberRows)

	mock.ExpectCommit()

	reclaimed, err := svc.ReclaimOnRemoval(ctx, teamID, memberID)

	require.NoError(t, err)
	assert.Equal(t, int64(0), reclaimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_ReclaimOnRemoval_NotAMember(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()
	memberID := uuid.New()

	mock.ExpectBegin()

	teamRows := pgxmock.NewRows([]string{"deleted_at"}).AddRow(nil)
	mock.ExpectQuery(`SELECT deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	mock.ExpectQuery(`UPDATE team_membership SET deleted_at = NOW`).
		WithArgs(teamID, memberID).
		WillReturnError(pgx.ErrNoRows)

	mock.ExpectRollback()

	_, err := svc.ReclaimOnRemoval(ctx, teamID, memberID)

	assert.ErrorIs(t, err, ErrNotAMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_GetPersonalBalance_NoRow(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectQuery(`SELECT balance FROM user_credit_balances`).
		WithArgs(userID).
		WillReturnError(pgx.ErrNoRows)

	balance, err := svc.GetPersonalBalance(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_GetTeamCredits(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()
	teamID := uuid.New()
	memberID := uuid.New()

	teamRows := pgxmock.NewRows([]string{"wallet", "deleted_at"}).AddRow(int64(150), nil)
	mock.ExpectQuery(`SELECT wallet, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	memberRows := pgxmock.NewRows([]string{"user_id", "name", "email", "role", "allocated", "used", "remaining"}).
		AddRow(memberID, "Pat", "pat@example.com", models.RolePhotographer, int64(50), int64(3), int64(47))
	mock.ExpectQuery(`SELECT tm.user_id, u.name, u.email`).
		WithArgs(teamID).
		WillReturnRows(memberRows)

	wallet, members, err := svc.GetTeamCredits(ctx, teamID)

	require.NoError(t, err)
	assert.Equal(t, int64(150), wallet)
	require.Len(t, members, 1)
	assert.Equal(t, int64(47), members[0].Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerService_FailStalePendingPurchases(t *testing.T) {
	svc, mock := setupLedgerService(t)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE user_credit_purchases SET status = 'failed'`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	mock.ExpectExec(`UPDATE team_purchases SET status = 'failed'`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	n, err := svc.FailStalePendingPurchases(ctx, 24*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
