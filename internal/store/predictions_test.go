// internal/store/predictions_test.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	commonerrors "retention-workers/internal/common/errors"
	"retention-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	return db, mock
}

func createTestPrediction() *models.ChurnPrediction {
	return &models.ChurnPrediction{
		ID:               "pred-123",
		ClientID:         "client-123",
		OrganizationID:   "org-1",
		ChurnProbability: 0.72,
		RiskLevel:        models.RiskLevelHigh,
		LifecycleStage:   models.StageAtRisk,
		DaysToChurn:      45,
		Confidence:       0.8,
		PrimaryRiskFactors: []models.ChurnRiskFactor{
			{Factor: "late_payments", Category: models.CategoryPayment, Impact: 0.8},
		},
		Model:     models.ModelInfo{Version: "1.0.0", NextUpdate: time.Now().Add(24 * time.Hour)},
		CreatedAt: time.Now(),
	}
}

// ==========================
// Save Tests
// ==========================

func TestPredictionStore_SavePrediction(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	p := createTestPrediction()

	mock.ExpectExec("INSERT INTO churn_predictions").
		WithArgs(p.ID, p.ClientID, p.OrganizationID, p.ChurnProbability, p.RiskLevel,
			p.LifecycleStage, p.DaysToChurn, p.Confidence, p.Model.NextUpdate,
			sqlmock.AnyArg(), p.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewPredictionStore(db)
	err := store.SavePrediction(context.Background(), p)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionStore_SavePrediction_DBError(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO churn_predictions").
		WillReturnError(sql.ErrConnDone)

	store := NewPredictionStore(db)
	err := store.SavePrediction(context.Background(), createTestPrediction())

	assert.Error(t, err)
	var stdErr *commonerrors.StandardError
	assert.ErrorAs(t, err, &stdErr)
}

// ==========================
// Read Tests
// ==========================

func TestPredictionStore_GetPrediction(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	p := createTestPrediction()
	payload, _ := json.Marshal(p)

	mock.ExpectQuery("SELECT payload FROM churn_predictions WHERE id").
		WithArgs("pred-123").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	store := NewPredictionStore(db)
	got, err := store.GetPrediction(context.Background(), "pred-123")

	assert.NoError(t, err)
	assert.Equal(t, "pred-123", got.ID)
	assert.Equal(t, models.RiskLevelHigh, got.RiskLevel)
	assert.Len(t, got.PrimaryRiskFactors, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionStore_GetPrediction_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT payload FROM churn_predictions WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	store := NewPredictionStore(db)
	got, err := store.GetPrediction(context.Background(), "missing")

	assert.Error(t, err)
	assert.Nil(t, got)

	var stdErr *commonerrors.StandardError
	assert.ErrorAs(t, err, &stdErr)
	assert.Equal(t, commonerrors.ErrCodePredictionNotFound, stdErr.Code)
}

func TestPredictionStore_LatestPrediction(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	p := createTestPrediction()
	payload, _ := json.Marshal(p)

	mock.ExpectQuery("SELECT payload FROM churn_predictions").
		WithArgs("client-123").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow(payload))

	store := NewPredictionStore(db)
	got, err := store.LatestPrediction(context.Background(), "client-123")

	assert.NoError(t, err)
	assert.Equal(t, "client-123", got.ClientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Population Queries
// ==========================

func TestPredictionStore_ClientIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM clients").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).
			AddRow("client-1").
			AddRow("client-2").
			AddRow("client-3"))

	store := NewPredictionStore(db)
	ids, err := store.ClientIDs(context.Background(), "org-1")

	assert.NoError(t, err)
	assert.Equal(t, []string{"client-1", "client-2", "client-3"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionStore_ClientIDs_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM clients").
		WithArgs("org-empty").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPredictionStore(db)
	ids, err := store.ClientIDs(context.Background(), "org-empty")

	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestPredictionStore_StaleClients(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery("SELECT DISTINCT ON \\(client_id\\) client_id").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"client_id"}).
			AddRow("client-7").
			AddRow("client-9"))

	store := NewPredictionStore(db)
	ids, err := store.StaleClients(context.Background(), 10)

	assert.NoError(t, err)
	assert.Equal(t, []string{"client-7", "client-9"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
