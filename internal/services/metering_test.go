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

type capturingPublisher struct {
	events []*models.UsageEvent
	err    error
}

func (p *capturingPublisher) PublishUsageRecorded(_ context.Context, event *models.UsageEvent) error {
	p.events = append(p.events, event)
	return p.err
}

func setupMeteringService(t *testing.T) (*MeteringService, pgxmock.PgxPoolIface, *capturingPublisher) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	publisher := &capturingPublisher{}
	ledger := NewLedgerService(db)
	return NewMeteringService(db, ledger, publisher), mock, publisher
}

func TestMeteringService_ResolvePayer_NoTeam(t *testing.T) {
	svc, mock, _ := setupMeteringService(t)
	ctx := context.Background()
	userID := uuid.New()

	payer, err := svc.ResolvePayer(ctx, userID, nil)

	require.NoError(t, err)
	assert.Equal(t, models.PayerPersonal, payer.Kind)
	assert.Equal(t, userID, payer.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_ResolvePayer_Owner(t *testing.T) {
	svc, mock, _ := setupMeteringService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(userID, nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	payer, err := svc.ResolvePayer(ctx, userID, &teamID)

	require.NoError(t, err)
	assert.Equal(t, models.PayerTeamWallet, payer.Kind)
	assert.Equal(t, teamID, payer.TeamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_ResolvePayer_Member(t *testing.T) {
	svc, mock, _ := setupMeteringService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(uuid.New(), nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	memberRows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(teamID, userID).
		WillReturnRows(memberRows)

	payer, err := svc.ResolvePayer(ctx, userID, &teamID)

	require.NoError(t, err)
	assert.Equal(t, models.PayerMemberAllocation, payer.Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_ResolvePayer_NotAMember(t *testing.T) {
	svc, mock, _ := setupMeteringService(t)
	ctx := context.Background()
	userID := uuid.New()
	teamID := uuid.New()

	teamRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(uuid.New(), nil)
	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(teamRows)

	memberRows := pgxmock.NewRows([]string{"exists"}).AddRow(false)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(teamID, userID).
		WillReturnRows(memberRows)

	_, err := svc.ResolvePayer(ctx, userID, &teamID)

	assert.ErrorIs(t, err, ErrNotAMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_ResolvePayer_TeamNotFound(t *testing.T) {
	svc, mock, _ := setupMeteringService(t)
	ctx := context.Background()
	teamID := uuid.New()

	mock.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnError(pgx.ErrNoRows)

	_, err := svc.ResolvePayer(ctx, uuid.New(), &teamID)

	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_ChargeForGeneration_Personal(t *testing.T) {
	svc, mock, publisher := setupMeteringService(t)
	ctx := context.Background()
	userID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mock.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, pgxmock.AnyArg(), models.PayerPersonal, int64(1)).
		WillReturnRows(eventRows)

	mock.ExpectCommit()

	event, err := svc.ChargeForGeneration(ctx, userID, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(1), event.Amount)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, eventID, publisher.events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_ChargeForGeneration_InsufficientDoesNotPublish(t *testing.T) {
	svc, mock, publisher := setupMeteringService(t)
	ctx := context.Background()
	userID := uuid.New()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	existsRows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(userID).
		WillReturnRows(existsRows)

	mock.ExpectRollback()

	_, err := svc.ChargeForGeneration(ctx, userID, nil)

	assert.ErrorIs(t, err, ErrInsufficientCredits)
	assert.Empty(t, publisher.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeteringService_Charge_PublisherFailureDoesNotFailCharge(t *testing.T) {
	svc, mock, publisher := setupMeteringService(t)
	publisher.err = assert.AnError
	ctx := context.Background()
	userID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()

	mock.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(2)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mock.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, pgxmock.AnyArg(), models.PayerPersonal, int64(2)).
		WillReturnRows(eventRows)

	mock.ExpectCommit()

	event, err := svc.Charge(ctx, userID, nil, 2)

	require.NoError(t, err)
	assert.Equal(t, eventID, event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
