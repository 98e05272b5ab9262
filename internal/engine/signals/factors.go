// internal/engine/signals/factors.go
package signals

import (
	"fmt"
	"time"

	"retention-workers/internal/models"
)

// DeriveRiskFactors normalizes the heterogeneous bundle into the common
// ChurnRiskFactor representation. Impact and confidence are always
// clamped to [0,1]. Neutral (degraded) sources produce no factors.
func DeriveRiskFactors(bundle *models.SignalBundle) []models.ChurnRiskFactor {
	var factors []models.ChurnRiskFactor

	factors = append(factors, usageFactors(bundle)...)
	factors = append(factors, engagementFactors(bundle)...)
	factors = append(factors, paymentFactors(bundle)...)
	factors = append(factors, supportFactors(bundle)...)
	factors = append(factors, competitiveFactors(bundle)...)
	factors = append(factors, organizationalFactors(bundle)...)

	for i := range factors {
		factors[i].Impact = clamp01(factors[i].Impact)
		factors[i].Confidence = clamp01(factors[i].Confidence)
	}
	return factors
}

func usageFactors(b *models.SignalBundle) []models.ChurnRiskFactor {
	var out []models.ChurnRiskFactor
	u := b.Usage

	if u.HistoricalLogins > 0 && u.LoginsPerWeek < u.HistoricalLogins {
		decline := (u.HistoricalLogins - u.LoginsPerWeek) / u.HistoricalLogins
		if decline >= 0.15 {
			out = append(out, models.ChurnRiskFactor{
				Factor:      "login_decline",
				Category:    models.CategoryUsage,
				Impact:      decline,
				Confidence:  0.85,
				Trend:       models.TrendDeteriorating,
				Description: "Login frequency has fallen below the client's historical baseline",
				Evidence: []string{
					fmt.Sprintf("current %.1f logins/week vs historical %.1f", u.LoginsPerWeek, u.HistoricalLogins),
				},
				Timeframe: "90 days",
			})
		}
	}

	if u.OfferedFeatureCount > 0 {
		adoption := float64(u.ActiveFeatureCount) / float64(u.OfferedFeatureCount)
		if adoption < 0.4 {
			out = append(out, models.ChurnRiskFactor{
				Factor:      "low_feature_adoption",
				Category:    models.CategoryUsage,
				Impact:      (0.4 - adoption) / 0.4 * 0.7,
				Confidence:  0.75,
				Trend:       models.TrendStable,
				Description: "Client uses a small share of the features available on their plan",
				Evidence: []string{
					fmt.Sprintf("%d of %d offered features active", u.ActiveFeatureCount, u.OfferedFeatureCount),
				},
				Timeframe: "current period",
			})
		}
	}

	if u.HistoricalDocuments > 0 && float64(u.DocumentsProcessed) < u.HistoricalDocuments*0.6 {
		decline := 1 - float64(u.DocumentsProcessed)/u.HistoricalDocuments
		out = append(out, models.ChurnRiskFactor{
			Factor:      "document_volume_decline",
			Category:    models.CategoryUsage,
			Impact:      decline * 0.8,
			Confidence:  0.7,
			Trend:       models.TrendDeteriorating,
			Description: "Document processing volume has dropped sharply against the baseline",
			Evidence: []string{
				fmt.Sprintf("%d documents vs historical %.0f", u.DocumentsProcessed, u.HistoricalDocuments),
			},
			Timeframe: "90 days",
		})
	}

	return out
}

func engagementFactors(b *models.SignalBundle) []models.ChurnRiskFactor {
	var out []models.ChurnRiskFactor
	u := b.Usage

	if !u.LastActivity.IsZero() {
		idleDays := time.Since(u.LastActivity).Hours() / 24
		if idleDays > 14 {
			out = append(out, models.ChurnRiskFactor{
				Factor:      "engagement_lapse",
				Category:    models.CategoryEngagement,
				Impact:      (idleDays - 14) / 60,
				Confidence:  0.9,
				Trend:       models.TrendDeteriorating,
				Description: "No portal or API activity recorded recently",
				Evidence: []string{
					fmt.Sprintf("%.0f days since last activity", idleDays),
				},
				Timeframe: "current",
			})
		}
	}

	if u.HistoricalPortal > 0 && float64(u.PortalSessions) < u.HistoricalPortal*0.5 {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "portal_engagement_drop",
			Category:    models.CategoryEngagement,
			Impact:      1 - float64(u.PortalSessions)/u.HistoricalPortal,
			Confidence:  0.7,
			Trend:       models.TrendDeteriorating,
			Description: "Portal sessions are well below the historical norm",
			Evidence: []string{
				fmt.Sprintf("%d sessions vs historical %.0f", u.PortalSessions, u.HistoricalPortal),
			},
			Timeframe: "90 days",
		})
	}

	return out
}

func paymentFactors(b *models.SignalBundle) []models.ChurnRiskFactor {
	var out []models.ChurnRiskFactor
	p := b.Payments

	if p.OnTimeRate < 0.9 {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "late_payments",
			Category:    models.CategoryPayment,
			Impact:      (0.9 - p.OnTimeRate) / 0.9,
			Confidence:  0.9,
			Trend:       paymentTrend(p.Trend),
			Description: "Payments are arriving late more often than the acceptable rate",
			Evidence: []string{
				fmt.Sprintf("on-time rate %.0f%%", p.OnTimeRate*100),
			},
			Timeframe: "12 months",
		})
	}

	if b.Profile.MonthlyRevenue > 0 && p.OutstandingBalance > b.Profile.MonthlyRevenue {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "outstanding_balance",
			Category:    models.CategoryPayment,
			Impact:      p.OutstandingBalance / (b.Profile.MonthlyRevenue * 3),
			Confidence:  0.85,
			Trend:       models.TrendDeteriorating,
			Description: "Outstanding balance exceeds one month of recurring revenue",
			Evidence: []string{
				fmt.Sprintf("balance $%.0f against $%.0f MRR", p.OutstandingBalance, b.Profile.MonthlyRevenue),
			},
			Timeframe: "current",
		})
	}

	if p.DownGraded {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "plan_downgrade",
			Category:    models.CategoryPayment,
			Impact:      0.6,
			Confidence:  0.95,
			Trend:       models.TrendDeteriorating,
			Description: "Client downgraded their subscription tier",
			Timeframe:   "12 months",
		})
	}

	return out
}

func supportFactors(b *models.SignalBundle) []models.ChurnRiskFactor {
	var out []models.ChurnRiskFactor
	s := b.Support

	if s.SatisfactionScore < 0.6 {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "low_satisfaction",
			Category:    models.CategorySupport,
			Impact:      (0.6 - s.SatisfactionScore) / 0.6,
			Confidence:  0.8,
			Trend:       paymentTrend(s.Trend),
			Description: "Support satisfaction is below the healthy range",
			Evidence: []string{
				fmt.Sprintf("satisfaction %.2f", s.SatisfactionScore),
			},
			Timeframe: "90 days",
		})
	}

	if s.EscalatedTickets > 0 {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "escalated_tickets",
			Category:    models.CategorySupport,
			Impact:      float64(s.EscalatedTickets) * 0.25,
			Confidence:  0.9,
			Trend:       models.TrendDeteriorating,
			Description: "Open escalations indicate unresolved service problems",
			Evidence: []string{
				fmt.Sprintf("%d escalated of %d open tickets", s.EscalatedTickets, s.OpenTickets),
			},
			Timeframe: "current",
		})
	}

	return out
}

func competitiveFactors(b *models.SignalBundle) []models.ChurnRiskFactor {
	if b.Competitive.ThreatLevel < 0.3 {
		return nil
	}
	return []models.ChurnRiskFactor{{
		Factor:      "competitive_pressure",
		Category:    models.CategoryCompetitive,
		Impact:      b.Competitive.ThreatLevel,
		Confidence:  0.6,
		Trend:       models.TrendDeteriorating,
		Description: "Competitive-intelligence feed reports active displacement risk",
		Evidence:    b.Competitive.Evidence,
		Timeframe:   "current",
	}}
}

func organizationalFactors(b *models.SignalBundle) []models.ChurnRiskFactor {
	var out []models.ChurnRiskFactor
	o := b.Organizational

	if o.LeadershipChange {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "leadership_change",
			Category:    models.CategoryOrganizational,
			Impact:      0.5,
			Confidence:  0.7,
			Trend:       models.TrendStable,
			Description: "Decision-maker turnover at the client firm",
			Timeframe:   "6 months",
		})
	}
	if o.Downsizing {
		out = append(out, models.ChurnRiskFactor{
			Factor:      "client_downsizing",
			Category:    models.CategoryOrganizational,
			Impact:      0.7,
			Confidence:  0.75,
			Trend:       models.TrendDeteriorating,
			Description: "Client firm is reducing headcount",
			Timeframe:   "6 months",
		})
	}
	return out
}

// paymentTrend maps a source trend to the factor trend, defaulting to
// stable for unknown values.
func paymentTrend(t models.Trend) models.Trend {
	switch t {
	case models.TrendImproving, models.TrendDeteriorating:
		return t
	default:
		return models.TrendStable
	}
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
