// internal/engine/classify/classify.go
package classify

import (
	"retention-workers/internal/common/config"
	"retention-workers/internal/models"
)

// RiskLevelFor maps a churn probability onto its risk tier. The
// threshold bands partition [0,1]: every probability lands in exactly
// one level. Thresholds are validated strictly decreasing at startup,
// so this function never has to re-check ordering.
func RiskLevelFor(probability float64, t config.RiskThresholds) models.RiskLevel {
	switch {
	case probability >= t.Critical:
		return models.RiskLevelCritical
	case probability >= t.High:
		return models.RiskLevelHigh
	case probability >= t.Medium:
		return models.RiskLevelMedium
	case probability >= t.Low:
		return models.RiskLevelLow
	default:
		return models.RiskLevelMinimal
	}
}

// highImpactThreshold is the impact above which a factor counts toward
// lifecycle-stage severity.
const highImpactThreshold = 0.7

// StageFor derives the lifecycle stage from signal diversity rather
// than probability. The two axes are deliberately independent: a
// numerically moderate probability with many distinct negative signals
// still surfaces as behaviorally at risk.
func StageFor(factors []models.ChurnRiskFactor, signals []models.BehavioralSignal) models.LifecycleStage {
	highImpact := 0
	for _, f := range factors {
		if f.Impact > highImpactThreshold {
			highImpact++
		}
	}

	negative := 0
	for _, s := range signals {
		if s.Polarity == models.PolarityNegative {
			negative++
		}
	}

	switch {
	case highImpact >= 3 || negative >= 5:
		return models.StageCriticalRisk
	case highImpact >= 2 || negative >= 3:
		return models.StageAtRisk
	case highImpact >= 1 || negative >= 2:
		return models.StageWarningSigns
	default:
		return models.StageHealthy
	}
}

// RiskTrendFor compares the new probability against the prior run.
func RiskTrendFor(probability float64, prior *models.ChurnPrediction) models.RiskTrend {
	if prior == nil {
		return models.RiskTrendStable
	}
	switch {
	case probability > prior.ChurnProbability+0.05:
		return models.RiskTrendIncreasing
	case probability < prior.ChurnProbability-0.05:
		return models.RiskTrendDecreasing
	default:
		return models.RiskTrendStable
	}
}
