// internal/models/prediction.go
package models

import "time"

// RiskLevel buckets a churn probability into an actionable tier.
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMinimal  RiskLevel = "minimal"
)

// LifecycleStage is the qualitative health axis, derived from signal
// diversity rather than the probability thresholds.
type LifecycleStage string

const (
	StageHealthy      LifecycleStage = "healthy"
	StageWarningSigns LifecycleStage = "warning_signs"
	StageAtRisk       LifecycleStage = "at_risk"
	StageCriticalRisk LifecycleStage = "critical_risk"
	StageChurned      LifecycleStage = "churned"
	StageRecovered    LifecycleStage = "recovered"
)

// FactorCategory groups risk factors by signal source.
type FactorCategory string

const (
	CategoryUsage          FactorCategory = "usage"
	CategoryPayment        FactorCategory = "payment"
	CategorySupport        FactorCategory = "support"
	CategoryEngagement     FactorCategory = "engagement"
	CategoryCompetitive    FactorCategory = "competitive"
	CategoryOrganizational FactorCategory = "organizational"
)

// AllCategories lists every factor category in weight order.
var AllCategories = []FactorCategory{
	CategoryUsage,
	CategoryEngagement,
	CategoryPayment,
	CategorySupport,
	CategoryCompetitive,
	CategoryOrganizational,
}

// Trend direction for factors, signals, and the overall risk.
type Trend string

const (
	TrendImproving     Trend = "improving"
	TrendStable        Trend = "stable"
	TrendDeteriorating Trend = "deteriorating"
)

// RiskTrend describes where the overall risk is heading.
type RiskTrend string

const (
	RiskTrendIncreasing RiskTrend = "increasing"
	RiskTrendStable     RiskTrend = "stable"
	RiskTrendDecreasing RiskTrend = "decreasing"
)

// SignalPolarity marks whether a behavioral signal argues for or
// against churn.
type SignalPolarity string

const (
	PolarityPositive SignalPolarity = "positive"
	PolarityNegative SignalPolarity = "negative"
	PolarityNeutral  SignalPolarity = "neutral"
)

// ChurnRiskFactor is one identified contributor to churn risk. Factors
// are owned by the prediction that produced them and are never
// persisted independently.
type ChurnRiskFactor struct {
	Factor      string         `json:"factor"`
	Category    FactorCategory `json:"category"`
	Impact      float64        `json:"impact"`     // clamped to [0,1]
	Confidence  float64        `json:"confidence"` // clamped to [0,1]
	Trend       Trend          `json:"trend"`
	Description string         `json:"description"`
	Evidence    []string       `json:"evidence,omitempty"`
	Timeframe   string         `json:"timeframe,omitempty"`
}

// BehavioralSignal is a qualitative observation such as "reduced
// session frequency".
type BehavioralSignal struct {
	Signal       string         `json:"signal"`
	Polarity     SignalPolarity `json:"polarity"`
	Strength     float64        `json:"strength"` // [0,1]
	Frequency    int            `json:"frequency"`
	LastOccurred time.Time      `json:"lastOccurred"`
	Trend        Trend          `json:"trend"`
}

// EngagementMetrics is a numeric engagement snapshot, computed fresh
// per prediction and never mutated afterwards.
type EngagementMetrics struct {
	LoginFrequency     float64            `json:"loginFrequency"` // logins per week
	SessionDuration    float64            `json:"sessionDuration"`
	FeatureUsage       map[string]float64 `json:"featureUsage,omitempty"`
	SupportInteraction int                `json:"supportInteraction"`
	DocumentActivity   int                `json:"documentActivity"`
	PortalActivity     int                `json:"portalActivity"`
	APIUsage           int                `json:"apiUsage"`
	OverallScore       float64            `json:"overallScore"` // [0,1]
	Trend              Trend              `json:"trend"`
}

// UsagePattern compares a metric's current value against its history,
// seasonally adjusted.
type UsagePattern struct {
	Metric             string  `json:"metric"`
	CurrentValue       float64 `json:"currentValue"`
	HistoricalValue    float64 `json:"historicalValue"`
	TrendPercent       float64 `json:"trendPercent"` // (current-historical)/historical
	SeasonallyAdjusted float64 `json:"seasonallyAdjusted"`
	Benchmark          float64 `json:"benchmark"`
	Variance           float64 `json:"variance"`
}

// RevenueAtRisk breaks the client's revenue exposure out by horizon.
type RevenueAtRisk struct {
	Monthly  float64 `json:"monthly"`
	Annual   float64 `json:"annual"`
	Lifetime float64 `json:"lifetime"`
}

// FeatureImportance explains one feature's contribution to the score.
type FeatureImportance struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
	Value   float64 `json:"value"`
}

// ModelInfo records provenance for a prediction run.
type ModelInfo struct {
	Algorithm  string    `json:"algorithm"`
	Version    string    `json:"version"`
	Features   []string  `json:"features,omitempty"`
	Accuracy   float64   `json:"accuracy"`
	CreatedAt  time.Time `json:"createdAt"`
	NextUpdate time.Time `json:"nextUpdate"`
}

// ChurnPrediction is the central artifact of a scoring run. A new run
// supersedes the previous prediction rather than mutating it; history
// is retained for cohort analytics.
type ChurnPrediction struct {
	ID                   string              `json:"id"`
	ClientID             string              `json:"clientId"`
	OrganizationID       string              `json:"organizationId"`
	ChurnProbability     float64             `json:"churnProbability"` // [0,1]
	RiskLevel            RiskLevel           `json:"riskLevel"`
	LifecycleStage       LifecycleStage      `json:"lifecycleStage"`
	DaysToChurn          int                 `json:"daysToChurn"`
	Confidence           float64             `json:"confidence"` // [0,1]
	RevenueAtRisk        RevenueAtRisk       `json:"revenueAtRisk"`
	ProfitAtRisk         float64             `json:"profitAtRisk"`
	PrimaryRiskFactors   []ChurnRiskFactor   `json:"primaryRiskFactors"`   // top 3 by impact
	SecondaryRiskFactors []ChurnRiskFactor   `json:"secondaryRiskFactors"` // remainder, original order
	RiskTrend            RiskTrend           `json:"riskTrend"`
	BehavioralSignals    []BehavioralSignal  `json:"behavioralSignals,omitempty"`
	Engagement           EngagementMetrics   `json:"engagement"`
	UsagePatterns        []UsagePattern      `json:"usagePatterns,omitempty"`
	FeatureImportances   []FeatureImportance `json:"featureImportances,omitempty"`
	DegradedSources      []string            `json:"degradedSources,omitempty"`
	Model                ModelInfo           `json:"model"`
	CreatedAt            time.Time           `json:"createdAt"`
}

// IsActionable reports whether the prediction should trigger a
// retention plan.
func (p *ChurnPrediction) IsActionable() bool {
	switch p.RiskLevel {
	case RiskLevelCritical, RiskLevelHigh, RiskLevelMedium:
		return true
	default:
		return false
	}
}

// AllRiskFactors returns primary then secondary factors.
func (p *ChurnPrediction) AllRiskFactors() []ChurnRiskFactor {
	out := make([]ChurnRiskFactor, 0, len(p.PrimaryRiskFactors)+len(p.SecondaryRiskFactors))
	out = append(out, p.PrimaryRiskFactors...)
	out = append(out, p.SecondaryRiskFactors...)
	return out
}
