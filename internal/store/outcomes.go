// internal/store/outcomes.go
package store

import (
	"context"
	"database/sql"
	"time"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/models"
)

// OutcomeStore backs the analytics aggregator's Source interface and
// records tactic outcomes for the prevention-effectiveness feedback
// loop.
type OutcomeStore struct {
	db *sql.DB
}

func NewOutcomeStore(db *sql.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

// RecordOutcome persists one dispatched tactic's result into
// intervention_outcomes.
func (s *OutcomeStore) RecordOutcome(ctx context.Context, plan *models.RetentionPlan, outcome models.TacticOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intervention_outcomes
			(plan_id, client_id, organization_id, tactic_id, tactic_type,
			 status, detail, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		plan.ID, plan.ClientID, plan.OrganizationID, outcome.TacticID,
		outcome.Type, outcome.Status, outcome.Detail, outcome.Duration, time.Now(),
	)
	if err != nil {
		return errors.NewQueryExecutionFailedError("insert intervention outcome", err)
	}
	return nil
}

func (s *OutcomeStore) ClientCounts(ctx context.Context, orgID string, period models.AnalyticsPeriod) (int, int, error) {
	var total, churned int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE churned_at >= $2 AND churned_at < $3)
		FROM clients
		WHERE organization_id = $1 AND created_at < $3`,
		orgID, period.Start, period.End,
	).Scan(&total, &churned)
	if err != nil {
		return 0, 0, errors.NewQueryExecutionFailedError("count clients", err)
	}
	return total, churned, nil
}

func (s *OutcomeStore) RevenueCounts(ctx context.Context, orgID string, period models.AnalyticsPeriod) (float64, float64, error) {
	var starting, lost sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(monthly_revenue), 0),
		       COALESCE(SUM(monthly_revenue) FILTER (WHERE churned_at >= $2 AND churned_at < $3), 0)
		FROM clients
		WHERE organization_id = $1 AND created_at < $2`,
		orgID, period.Start, period.End,
	).Scan(&starting, &lost)
	if err != nil {
		return 0, 0, errors.NewQueryExecutionFailedError("sum revenue", err)
	}
	return starting.Float64, lost.Float64, nil
}

// RiskDistribution buckets the latest prediction per client.
func (s *OutcomeStore) RiskDistribution(ctx context.Context, orgID string) (map[models.RiskLevel]int, map[models.LifecycleStage]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (client_id) risk_level, lifecycle_stage
		FROM churn_predictions
		WHERE organization_id = $1
		ORDER BY client_id, created_at DESC`, orgID)
	if err != nil {
		return nil, nil, errors.NewQueryExecutionFailedError("read risk distribution", err)
	}
	defer rows.Close()

	risk := make(map[models.RiskLevel]int)
	stage := make(map[models.LifecycleStage]int)
	for rows.Next() {
		var r, st string
		if err := rows.Scan(&r, &st); err != nil {
			return nil, nil, errors.NewQueryExecutionFailedError("scan distribution row", err)
		}
		risk[models.RiskLevel(r)]++
		stage[models.LifecycleStage(st)]++
	}
	return risk, stage, rows.Err()
}

// Cohorts groups clients by acquisition month and counts churn within
// the period per cohort.
func (s *OutcomeStore) Cohorts(ctx context.Context, orgID string, period models.AnalyticsPeriod) ([]models.CohortAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(acquired_at, 'YYYY-MM') AS cohort,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE churned_at >= $2 AND churned_at < $3)
		FROM clients
		WHERE organization_id = $1
		GROUP BY cohort
		ORDER BY cohort`, orgID, period.Start, period.End)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("read cohorts", err)
	}
	defer rows.Close()

	var cohorts []models.CohortAnalysis
	for rows.Next() {
		var c models.CohortAnalysis
		if err := rows.Scan(&c.Cohort, &c.ClientCount, &c.ChurnedCount); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan cohort row", err)
		}
		cohorts = append(cohorts, c)
	}
	return cohorts, rows.Err()
}

func (s *OutcomeStore) InterventionStats(ctx context.Context, orgID string, period models.AnalyticsPeriod) (int, int, float64, float64, error) {
	var attempted, succeeded int
	var preserved, cost sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COALESCE(SUM(revenue_preserved), 0),
		       COALESCE(SUM(cost), 0)
		FROM intervention_outcomes
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3`,
		orgID, period.Start, period.End,
	).Scan(&attempted, &succeeded, &preserved, &cost)
	if err != nil {
		return 0, 0, 0, 0, errors.NewQueryExecutionFailedError("read intervention stats", err)
	}
	return attempted, succeeded, preserved.Float64, cost.Float64, nil
}

func (s *OutcomeStore) RecoveryStats(ctx context.Context, orgID string, period models.AnalyticsPeriod) (int, int, float64, error) {
	var contacted, recovered int
	var revenue sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE recovered_at IS NOT NULL),
		       COALESCE(SUM(recovered_revenue), 0)
		FROM recovery_attempts
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3`,
		orgID, period.Start, period.End,
	).Scan(&contacted, &recovered, &revenue)
	if err != nil {
		return 0, 0, 0, errors.NewQueryExecutionFailedError("read recovery stats", err)
	}
	return contacted, recovered, revenue.Float64, nil
}

// LabeledOutcomes compares each client's last prediction before the
// period against whether they actually churned in it. "Predicted
// churn" means the model put them at critical or high risk. Clients
// that never churned have a NULL churned_at; COALESCE keeps them in
// the matrix as retained instead of letting FILTER drop the NULL rows.
func (s *OutcomeStore) LabeledOutcomes(ctx context.Context, orgID string, period models.AnalyticsPeriod) (int, int, int, int, error) {
	var tp, fp, tn, fn int
	err := s.db.QueryRowContext(ctx, `
		WITH labeled AS (
			SELECT DISTINCT ON (p.client_id)
			       p.risk_level IN ('critical', 'high') AS predicted,
			       COALESCE(c.churned_at >= $2 AND c.churned_at < $3, false) AS churned
			FROM churn_predictions p
			JOIN clients c ON c.id = p.client_id
			WHERE p.organization_id = $1 AND p.created_at < $2
			ORDER BY p.client_id, p.created_at DESC
		)
		SELECT COUNT(*) FILTER (WHERE predicted AND churned),
		       COUNT(*) FILTER (WHERE predicted AND NOT churned),
		       COUNT(*) FILTER (WHERE NOT predicted AND NOT churned),
		       COUNT(*) FILTER (WHERE NOT predicted AND churned)
		FROM labeled`,
		orgID, period.Start, period.End,
	).Scan(&tp, &fp, &tn, &fn)
	if err != nil {
		return 0, 0, 0, 0, errors.NewQueryExecutionFailedError("read labeled outcomes", err)
	}
	return tp, fp, tn, fn, nil
}

func (s *OutcomeStore) MonthlyChurnTrend(ctx context.Context, orgID string, period models.AnalyticsPeriod) ([]models.TrendPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(churned_at, 'YYYY-MM') AS month, COUNT(*)
		FROM clients
		WHERE organization_id = $1 AND churned_at >= $2 AND churned_at < $3
		GROUP BY month
		ORDER BY month`, orgID, period.Start, period.End)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("read churn trend", err)
	}
	defer rows.Close()

	var trend []models.TrendPoint
	for rows.Next() {
		var p models.TrendPoint
		var count int
		if err := rows.Scan(&p.Period, &count); err != nil {
			return nil, errors.NewQueryExecutionFailedError("scan trend row", err)
		}
		p.Value = float64(count)
		trend = append(trend, p)
	}
	return trend, rows.Err()
}
