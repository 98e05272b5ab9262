// internal/engine/analytics/aggregator.go
package analytics

import (
	"context"
	"time"

	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// Source provides the raw counts and sums the aggregator turns into
// period metrics. Implemented by the outcomes store.
type Source interface {
	ClientCounts(ctx context.Context, orgID string, period models.AnalyticsPeriod) (total, churned int, err error)
	RevenueCounts(ctx context.Context, orgID string, period models.AnalyticsPeriod) (startingMRR, lostMRR float64, err error)
	RiskDistribution(ctx context.Context, orgID string) (map[models.RiskLevel]int, map[models.LifecycleStage]int, error)
	Cohorts(ctx context.Context, orgID string, period models.AnalyticsPeriod) ([]models.CohortAnalysis, error)
	InterventionStats(ctx context.Context, orgID string, period models.AnalyticsPeriod) (attempted, succeeded int, preserved, cost float64, err error)
	RecoveryStats(ctx context.Context, orgID string, period models.AnalyticsPeriod) (contacted, recovered int, revenue float64, err error)
	LabeledOutcomes(ctx context.Context, orgID string, period models.AnalyticsPeriod) (tp, fp, tn, fn int, err error)
	MonthlyChurnTrend(ctx context.Context, orgID string, period models.AnalyticsPeriod) ([]models.TrendPoint, error)
}

// driftThreshold flags the model when accuracy falls below this level
// on a meaningful sample.
const (
	driftThreshold  = 0.7
	driftSampleSize = 20
)

// Aggregator computes fresh period-scoped analytics snapshots. Every
// ratio is zero-guarded: an empty organization yields zero rates and an
// InsufficientData flag, never NaN.
type Aggregator struct {
	source Source
	logger logger.Logger
}

func NewAggregator(source Source, log logger.Logger) *Aggregator {
	return &Aggregator{source: source, logger: log}
}

// Generate builds the full snapshot for one organization and period.
// Sub-metric query failures degrade that section to zeros instead of
// failing the whole snapshot; only the core client counts are fatal.
func (a *Aggregator) Generate(ctx context.Context, orgID string, period models.AnalyticsPeriod) (*models.ChurnAnalytics, error) {
	total, churned, err := a.source.ClientCounts(ctx, orgID, period)
	if err != nil {
		return nil, err
	}

	churnRate := safeDiv(float64(churned), float64(total))

	out := &models.ChurnAnalytics{
		OrganizationID:   orgID,
		Period:           period,
		TotalClients:     total,
		ChurnedClients:   churned,
		ChurnRate:        churnRate,
		RetentionRate:    retentionRate(total, churnRate),
		InsufficientData: total == 0,
		GeneratedAt:      time.Now(),
	}

	if startingMRR, lostMRR, err := a.source.RevenueCounts(ctx, orgID, period); err != nil {
		a.warn("revenue counts", orgID, err)
	} else {
		out.RevenueChurnRate = safeDiv(lostMRR, startingMRR)
		out.Financial = models.FinancialImpact{
			LostMRR:   lostMRR,
			LostARR:   lostMRR * 12,
			NetImpact: -lostMRR,
		}
	}

	if risk, stage, err := a.source.RiskDistribution(ctx, orgID); err != nil {
		a.warn("risk distribution", orgID, err)
		out.RiskDistribution = map[models.RiskLevel]int{}
		out.StageDistribution = map[models.LifecycleStage]int{}
	} else {
		out.RiskDistribution = risk
		out.StageDistribution = stage
	}

	if cohorts, err := a.source.Cohorts(ctx, orgID, period); err != nil {
		a.warn("cohorts", orgID, err)
	} else {
		for i := range cohorts {
			cohorts[i].ChurnRate = safeDiv(float64(cohorts[i].ChurnedCount), float64(cohorts[i].ClientCount))
		}
		out.Cohorts = cohorts
	}

	if attempted, succeeded, preserved, cost, err := a.source.InterventionStats(ctx, orgID, period); err != nil {
		a.warn("intervention stats", orgID, err)
	} else {
		out.Prevention = models.PreventionEffectiveness{
			Attempted:        attempted,
			Succeeded:        succeeded,
			SuccessRate:      safeDiv(float64(succeeded), float64(attempted)),
			RevenuePreserved: preserved,
			Cost:             cost,
			ROI:              safeDiv(preserved-cost, cost),
		}
		out.Financial.RevenuePreserved = preserved
		out.Financial.NetImpact = preserved - out.Financial.LostMRR
	}

	if contacted, recovered, revenue, err := a.source.RecoveryStats(ctx, orgID, period); err != nil {
		a.warn("recovery stats", orgID, err)
	} else {
		out.Recovery = models.RecoveryMetrics{
			ChurnedContacted: contacted,
			Recovered:        recovered,
			RecoveryRate:     safeDiv(float64(recovered), float64(contacted)),
			RecoveredRevenue: revenue,
		}
	}

	if tp, fp, tn, fn, err := a.source.LabeledOutcomes(ctx, orgID, period); err != nil {
		a.warn("labeled outcomes", orgID, err)
	} else {
		out.Model = modelPerformance(tp, fp, tn, fn)
	}

	if trend, err := a.source.MonthlyChurnTrend(ctx, orgID, period); err != nil {
		a.warn("churn trend", orgID, err)
	} else {
		out.ChurnTrend = trend
	}

	return out, nil
}

// modelPerformance computes the confusion-matrix metrics against the
// labeled holdout. Precision/recall degrade to 0 on an empty class.
func modelPerformance(tp, fp, tn, fn int) models.ModelPerformance {
	sample := tp + fp + tn + fn
	accuracy := safeDiv(float64(tp+tn), float64(sample))
	return models.ModelPerformance{
		Accuracy:      accuracy,
		Precision:     safeDiv(float64(tp), float64(tp+fp)),
		Recall:        safeDiv(float64(tp), float64(tp+fn)),
		SampleSize:    sample,
		DriftDetected: sample >= driftSampleSize && accuracy < driftThreshold,
		EvaluatedAt:   time.Now(),
	}
}

// retentionRate is 1 - churn rate, but an empty period has nothing to
// retain and reports 0 rather than a misleading 100%.
func retentionRate(total int, churnRate float64) float64 {
	if total == 0 {
		return 0
	}
	return 1 - churnRate
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (a *Aggregator) warn(section, orgID string, err error) {
	a.logger.Warn("analytics section degraded", map[string]interface{}{
		"section":        section,
		"organizationId": orgID,
		"error":          err.Error(),
	})
}
