// internal/store/plans.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/models"
)

// PlanStore persists retention plans. Every status change writes an
// immutable row to retention_plan_transitions; the plan row itself only
// holds the current status.
type PlanStore struct {
	db *sql.DB
}

func NewPlanStore(db *sql.DB) *PlanStore {
	return &PlanStore{db: db}
}

func (s *PlanStore) SavePlan(ctx context.Context, p *models.RetentionPlan) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return errors.NewQueryExecutionFailedError("marshal plan", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO retention_plans
			(id, prediction_id, client_id, organization_id, risk_level,
			 status, assigned_to, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.PredictionID, p.ClientID, p.OrganizationID, p.RiskLevel,
		p.Status, p.AssignedTo, payload, p.CreatedAt,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert plan", err)
	}
	return nil
}

func (s *PlanStore) GetPlan(ctx context.Context, id string) (*models.RetentionPlan, error) {
	var payload []byte
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, status FROM retention_plans WHERE id = $1`, id,
	).Scan(&payload, &status)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewPlanNotFoundError(id)
		}
		return nil, errors.NewQueryExecutionFailedError("read plan", err)
	}

	var p models.RetentionPlan
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, errors.NewQueryExecutionFailedError("unmarshal plan", err)
	}
	// The status column is authoritative; the payload is a snapshot
	// from creation time.
	p.Status = models.PlanStatus(status)
	return &p, nil
}

// TransitionPlan moves the plan from one status to another atomically
// and appends the audit row. A mismatch on the expected current status
// fails the whole transition.
func (s *PlanStore) TransitionPlan(ctx context.Context, id string, from, to models.PlanStatus, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewQueryExecutionFailedError("begin transition", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE retention_plans SET status = $1 WHERE id = $2 AND status = $3`,
		to, id, from,
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("update plan status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewQueryExecutionFailedError("check plan update", err)
	}
	if affected == 0 {
		return errors.NewQueryExecutionFailedError("transition plan",
			fmt.Errorf("plan %s is not in status %s", id, from))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO retention_plan_transitions
			(plan_id, from_status, to_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, from, to, reason, time.Now(),
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert plan transition", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewQueryExecutionFailedError("commit transition", err)
	}
	return nil
}

// Transitions returns the audit history for one plan, oldest first.
func (s *PlanStore) Transitions(ctx context.Context, id string) ([]models.PlanTransition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plan_id, from_status, to_status, reason, created_at
		FROM retention_plan_transitions
		WHERE plan_id = $1
		ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list plan transitions", err)
	}
	defer rows.Close()

	var transitions []models.PlanTransition
	for rows.Next() {
		var t models.PlanTransition
		if err := rows.Scan(&t.PlanID, &t.From, &t.To, &t.Reason, &t.Timestamp); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan plan transition", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
