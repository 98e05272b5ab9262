// internal/engine/behavior/analyzer.go
package behavior

import (
	"fmt"
	"time"

	"retention-workers/internal/models"
)

// Analyzer converts raw usage and engagement aggregates into discrete
// behavioral signals, an engagement snapshot, and usage-pattern
// comparisons. It holds no state; every method is a pure function of
// the bundle.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze runs all three derivations for one client bundle.
func (a *Analyzer) Analyze(bundle *models.SignalBundle) ([]models.BehavioralSignal, models.EngagementMetrics, []models.UsagePattern) {
	patterns := a.DerivePatterns(bundle)
	signals := a.DeriveSignals(bundle, patterns)
	engagement := a.ComputeEngagement(bundle)
	return signals, engagement, patterns
}

// DeriveSignals produces the qualitative observation list. Negative
// signals argue for churn, positive against; strength is [0,1].
func (a *Analyzer) DeriveSignals(bundle *models.SignalBundle, patterns []models.UsagePattern) []models.BehavioralSignal {
	var signals []models.BehavioralSignal
	now := time.Now()
	u := bundle.Usage

	for _, p := range patterns {
		switch {
		case p.TrendPercent <= -0.25:
			signals = append(signals, models.BehavioralSignal{
				Signal:       fmt.Sprintf("declining %s", p.Metric),
				Polarity:     models.PolarityNegative,
				Strength:     clamp01(-p.TrendPercent),
				Frequency:    1,
				LastOccurred: now,
				Trend:        models.TrendDeteriorating,
			})
		case p.TrendPercent >= 0.25:
			signals = append(signals, models.BehavioralSignal{
				Signal:       fmt.Sprintf("expanding %s", p.Metric),
				Polarity:     models.PolarityPositive,
				Strength:     clamp01(p.TrendPercent),
				Frequency:    1,
				LastOccurred: now,
				Trend:        models.TrendImproving,
			})
		}
	}

	if u.SessionTrendPercent <= -0.20 {
		signals = append(signals, models.BehavioralSignal{
			Signal:       "reduced session duration",
			Polarity:     models.PolarityNegative,
			Strength:     clamp01(-u.SessionTrendPercent),
			Frequency:    1,
			LastOccurred: now,
			Trend:        models.TrendDeteriorating,
		})
	}

	if bundle.Payments.OnTimeRate < 0.8 {
		signals = append(signals, models.BehavioralSignal{
			Signal:       "late payment pattern",
			Polarity:     models.PolarityNegative,
			Strength:     clamp01(1 - bundle.Payments.OnTimeRate),
			Frequency:    2,
			LastOccurred: bundle.Payments.LastPayment,
			Trend:        models.TrendDeteriorating,
		})
	}

	if bundle.Support.EscalatedTickets > 0 {
		signals = append(signals, models.BehavioralSignal{
			Signal:       "support escalations",
			Polarity:     models.PolarityNegative,
			Strength:     clamp01(float64(bundle.Support.EscalatedTickets) * 0.3),
			Frequency:    bundle.Support.EscalatedTickets,
			LastOccurred: now,
			Trend:        models.TrendDeteriorating,
		})
	}

	if bundle.Support.SatisfactionScore >= 0.85 {
		signals = append(signals, models.BehavioralSignal{
			Signal:       "high support satisfaction",
			Polarity:     models.PolarityPositive,
			Strength:     bundle.Support.SatisfactionScore,
			Frequency:    1,
			LastOccurred: now,
			Trend:        models.TrendStable,
		})
	}

	if bundle.Competitive.ThreatLevel >= 0.5 {
		signals = append(signals, models.BehavioralSignal{
			Signal:       "evaluating competitors",
			Polarity:     models.PolarityNegative,
			Strength:     bundle.Competitive.ThreatLevel,
			Frequency:    len(bundle.Competitive.Evidence),
			LastOccurred: now,
			Trend:        models.TrendDeteriorating,
		})
	}

	if bundle.Organizational.Downsizing {
		signals = append(signals, models.BehavioralSignal{
			Signal:       "client firm downsizing",
			Polarity:     models.PolarityNegative,
			Strength:     0.7,
			Frequency:    1,
			LastOccurred: now,
			Trend:        models.TrendDeteriorating,
		})
	}

	return signals
}

// Engagement composite weights. Each sub-score is clamped before
// weighting so no single metric can push the composite outside [0,1].
const (
	loginWeight    = 0.40
	adoptionWeight = 0.35
	activityWeight = 0.25

	healthyLoginsPerWeek = 5.0
	healthyActivityCount = 50.0
)

// ComputeEngagement builds the bounded [0,1] engagement snapshot.
func (a *Analyzer) ComputeEngagement(bundle *models.SignalBundle) models.EngagementMetrics {
	u := bundle.Usage

	loginScore := clamp01(u.LoginsPerWeek / healthyLoginsPerWeek)

	adoptionScore := 0.0
	if u.OfferedFeatureCount > 0 {
		adoptionScore = clamp01(float64(u.ActiveFeatureCount) / float64(u.OfferedFeatureCount))
	}

	activityScore := clamp01(float64(u.PortalSessions+u.APICalls) / healthyActivityCount)

	overall := clamp01(loginScore*loginWeight + adoptionScore*adoptionWeight + activityScore*activityWeight)

	trend := models.TrendStable
	switch {
	case u.HistoricalLogins > 0 && u.LoginsPerWeek < u.HistoricalLogins*0.8:
		trend = models.TrendDeteriorating
	case u.HistoricalLogins > 0 && u.LoginsPerWeek > u.HistoricalLogins*1.2:
		trend = models.TrendImproving
	}

	return models.EngagementMetrics{
		LoginFrequency:     u.LoginsPerWeek,
		SessionDuration:    u.AvgSessionMinutes,
		FeatureUsage:       u.FeatureUsage,
		SupportInteraction: bundle.Support.TicketsLast90Days,
		DocumentActivity:   u.DocumentsProcessed,
		PortalActivity:     u.PortalSessions,
		APIUsage:           u.APICalls,
		OverallScore:       overall,
		Trend:              trend,
	}
}

// DerivePatterns compares each tracked metric against its historical
// value. The current reading is seasonally adjusted first so expected
// cyclic troughs do not register as decline.
func (a *Analyzer) DerivePatterns(bundle *models.SignalBundle) []models.UsagePattern {
	u := bundle.Usage
	month := u.ObservedMonth

	metrics := []struct {
		name       string
		current    float64
		historical float64
		benchmark  float64
	}{
		{"logins", u.LoginsPerWeek, u.HistoricalLogins, healthyLoginsPerWeek},
		{"documents", float64(u.DocumentsProcessed), u.HistoricalDocuments, 0},
		{"portal_sessions", float64(u.PortalSessions), u.HistoricalPortal, 0},
		{"api_calls", float64(u.APICalls), u.HistoricalAPICalls, 0},
	}

	patterns := make([]models.UsagePattern, 0, len(metrics))
	for _, m := range metrics {
		adjusted := SeasonalAdjust(m.current, month)

		trend := 0.0
		if m.historical != 0 {
			trend = (adjusted - m.historical) / m.historical
		}

		patterns = append(patterns, models.UsagePattern{
			Metric:             m.name,
			CurrentValue:       m.current,
			HistoricalValue:    m.historical,
			TrendPercent:       trend,
			SeasonallyAdjusted: adjusted,
			Benchmark:          m.benchmark,
			Variance:           adjusted - m.historical,
		})
	}
	return patterns
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
