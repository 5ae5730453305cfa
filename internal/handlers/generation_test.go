package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/elevatespaces/staging-api/internal/middleware"
	"github.com/elevatespaces/staging-api/internal/models"
	"github.com/elevatespaces/staging-api/internal/services"
	"github.com/elevatespaces/staging-api/pkg/dto"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	driftmw "github.com/m1z23r/drift/pkg/middleware"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerationTestApp(t *testing.T) (http.Handler, pgxmock.PgxPoolIface, *services.JWTService) {
	t.Helper()
	db, mockPool := newMockDB(t)
	ledger := services.NewLedgerService(db)
	metering := services.NewMeteringService(db, ledger, nil)
	handler := NewGenerationHandler(metering, noCache())
	jwtSvc := newTestJWTService()

	app := drift.New()
	app.Use(driftmw.BodyParser())
	app.Use(middleware.Auth(jwtSvc))
	app.Post("/generations", handler.Create)

	return app, mockPool, jwtSvc
}

func TestGenerationHandler_Create_PersonalPayer(t *testing.T) {
	app, mockPool, jwtSvc := newGenerationTestApp(t)

	userID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mockPool.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, pgxmock.AnyArg(), models.PayerPersonal, int64(1)).
		WillReturnRows(eventRows)
	mockPool.ExpectCommit()

	token := generateTestToken(t, jwtSvc, userID, "user@example.com")
	rec := authedJSON(t, app, http.MethodPost, "/generations", token, dto.GenerationRequest{
		ImageURL: "https://cdn.example.com/empty-room.jpg",
		RoomType: "living_room",
		Style:    "scandinavian",
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var response dto.GenerationResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, eventID, response.EventID)
	assert.Equal(t, models.PayerPersonal, response.PayerKind)
	assert.Equal(t, int64(1), response.Charged)
	assert.Equal(t, "queued", response.Status)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGenerationHandler_Create_InsufficientCredits(t *testing.T) {
	app, mockPool, jwtSvc := newGenerationTestApp(t)

	userID := uuid.New()

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE user_credit_balances`).
		WithArgs(userID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	existsRows := pgxmock.NewRows([]string{"exists"}).AddRow(true)
	mockPool.ExpectQuery(`SELECT EXISTS`).
		WithArgs(userID).
		WillReturnRows(existsRows)
	mockPool.ExpectRollback()

	token := generateTestToken(t, jwtSvc, userID, "user@example.com")
	rec := authedJSON(t, app, http.MethodPost, "/generations", token, dto.GenerationRequest{
		ImageURL: "https://cdn.example.com/empty-room.jpg",
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient credits")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGenerationHandler_Create_TeamWalletPayer(t *testing.T) {
	app, mockPool, jwtSvc := newGenerationTestApp(t)

	userID := uuid.New()
	teamID := uuid.New()
	eventID := uuid.New()
	now := time.Now()

	ownerRows := pgxmock.NewRows([]string{"owner_id", "deleted_at"}).AddRow(userID, nil)
	mockPool.ExpectQuery(`SELECT owner_id, deleted_at FROM teams`).
		WithArgs(teamID).
		WillReturnRows(ownerRows)

	mockPool.ExpectBegin()
	mockPool.ExpectExec(`UPDATE teams SET wallet = wallet -`).
		WithArgs(teamID, int64(1)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	eventRows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(eventID, now)
	mockPool.ExpectQuery(`INSERT INTO usage_events`).
		WithArgs(userID, &teamID, models.PayerTeamWallet, int64(1)).
		WillReturnRows(eventRows)
	mockPool.ExpectCommit()

	token := generateTestToken(t, jwtSvc, userID, "owner@example.com")
	rec := authedJSON(t, app, http.MethodPost, "/generations", token, dto.GenerationRequest{
		ImageURL: "https://cdn.example.com/empty-room.jpg",
		TeamID:   &teamID,
	})

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var response dto.GenerationResponse
	err := json.Unmarshal(rec.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, models.PayerTeamWallet, response.PayerKind)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGenerationHandler_Create_MissingImageURL(t *testing.T) {
	app, mockPool, jwtSvc := newGenerationTestApp(t)

	token := generateTestToken(t, jwtSvc, uuid.New(), "user@example.com")
	rec := authedJSON(t, app, http.MethodPost, "/generations", token, dto.GenerationRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "image_url is required")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
