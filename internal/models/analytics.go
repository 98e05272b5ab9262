// internal/models/analytics.go
package models

import "time"

// AnalyticsPeriod bounds a ChurnAnalytics computation.
type AnalyticsPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the period length in whole days, at least 1.
func (p AnalyticsPeriod) Days() int {
	d := int(p.End.Sub(p.Start).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// CohortAnalysis tracks churn for clients acquired in the same period.
type CohortAnalysis struct {
	Cohort         string             `json:"cohort"` // acquisition period, e.g. "2026-01"
	ClientCount    int                `json:"clientCount"`
	ChurnedCount   int                `json:"churnedCount"`
	ChurnRate      float64            `json:"churnRate"`
	RetentionByAge map[string]float64 `json:"retentionByAge,omitempty"` // age bucket -> retention rate
}

// PreventionEffectiveness measures the intervention feedback loop.
type PreventionEffectiveness struct {
	Attempted        int     `json:"attempted"`
	Succeeded        int     `json:"succeeded"`
	SuccessRate      float64 `json:"successRate"`
	RevenuePreserved float64 `json:"revenuePreserved"`
	Cost             float64 `json:"cost"`
	ROI              float64 `json:"roi"` // (preserved - cost) / cost
}

// RecoveryMetrics tracks clients won back after churning.
type RecoveryMetrics struct {
	ChurnedContacted int     `json:"churnedContacted"`
	Recovered        int     `json:"recovered"`
	RecoveryRate     float64 `json:"recoveryRate"`
	RecoveredRevenue float64 `json:"recoveredRevenue"`
}

// ModelPerformance tracks prediction quality against labeled outcomes.
type ModelPerformance struct {
	Accuracy      float64   `json:"accuracy"`
	Precision     float64   `json:"precision"`
	Recall        float64   `json:"recall"`
	SampleSize    int       `json:"sampleSize"`
	DriftDetected bool      `json:"driftDetected"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}

// FinancialImpact aggregates the revenue consequences of churn in the
// period.
type FinancialImpact struct {
	LostMRR          float64 `json:"lostMrr"`
	LostARR          float64 `json:"lostArr"`
	RevenuePreserved float64 `json:"revenuePreserved"`
	NetImpact        float64 `json:"netImpact"`
}

// TrendPoint is one sample of a period-over-period series.
type TrendPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
}

// ChurnAnalytics is a fresh, immutable period-scoped snapshot.
type ChurnAnalytics struct {
	OrganizationID    string                     `json:"organizationId"`
	Period            AnalyticsPeriod            `json:"period"`
	TotalClients      int                        `json:"totalClients"`
	ChurnedClients    int                        `json:"churnedClients"`
	ChurnRate         float64                    `json:"churnRate"`
	RevenueChurnRate  float64                    `json:"revenueChurnRate"`
	RetentionRate     float64                    `json:"retentionRate"`
	RiskDistribution  map[RiskLevel]int          `json:"riskDistribution"`
	StageDistribution map[LifecycleStage]int     `json:"stageDistribution"`
	Cohorts           []CohortAnalysis           `json:"cohorts,omitempty"`
	Prevention        PreventionEffectiveness    `json:"prevention"`
	Recovery          RecoveryMetrics            `json:"recovery"`
	Model             ModelPerformance           `json:"model"`
	Financial         FinancialImpact            `json:"financial"`
	ChurnTrend        []TrendPoint               `json:"churnTrend,omitempty"`
	GeneratedAt       time.Time                  `json:"generatedAt"`
	InsufficientData  bool                       `json:"insufficientData"`
}
