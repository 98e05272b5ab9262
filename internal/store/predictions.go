// internal/store/predictions.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/models"
)

// PredictionStore persists churn predictions. Scalar columns carry the
// queryable fields; the full prediction (factors, signals, patterns) is
// stored as a JSON payload column, read back verbatim.
type PredictionStore struct {
	db *sql.DB
}

func NewPredictionStore(db *sql.DB) *PredictionStore {
	return &PredictionStore{db: db}
}

func (s *PredictionStore) SavePrediction(ctx context.Context, p *models.ChurnPrediction) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal prediction", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO churn_predictions
			(id, client_id, organization_id, churn_probability, risk_level,
			 lifecycle_stage, days_to_churn, confidence, next_update, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.ClientID, p.OrganizationID, p.ChurnProbability, p.RiskLevel,
		p.LifecycleStage, p.DaysToChurn, p.Confidence, p.Model.NextUpdate, payload, p.CreatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert prediction", err)
	}
	return nil
}

func (s *PredictionStore) GetPrediction(ctx context.Context, id string) (*models.ChurnPrediction, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT payload FROM churn_predictions WHERE id = $1`, id), id)
}

func (s *PredictionStore) LatestPrediction(ctx context.Context, clientID string) (*models.ChurnPrediction, error) {
	return s.scanOne(s.db.QueryRowContext(ctx, `
		SELECT payload FROM churn_predictions
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, clientID), clientID)
}

// ClientIDs returns every active client in the organization, the batch
// prediction population.
func (s *PredictionStore) ClientIDs(ctx context.Context, orgID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM clients
		WHERE organization_id = $1 AND status = 'active'
		ORDER BY id`, orgID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list clients", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan client id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("iterate clients", err)
	}
	return ids, nil
}

// StaleClients returns clients whose latest prediction's next_update
// has passed, the population for the background re-scoring ticker.
func (s *PredictionStore) StaleClients(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (client_id) client_id
		FROM churn_predictions
		WHERE next_update < NOW()
		ORDER BY client_id, created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list stale clients", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan stale client", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PredictionStore) scanOne(row *sql.Row, ref string) (*models.ChurnPrediction, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewPredictionNotFoundError(ref)
		}
		return nil, errors.NewQueryExecutionFailedError("read prediction", err)
	}

	var p models.ChurnPrediction
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewQueryExecutionFailedError("unmarshal prediction", err)
	}
	return &p, nil
}
