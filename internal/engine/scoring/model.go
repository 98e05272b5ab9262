// internal/engine/scoring/model.go
package scoring

import (
	"math"

	"retention-workers/internal/common/config"
	"retention-workers/internal/models"
)

// IndeterminateDaysToChurn is the sentinel returned when no risk factor
// is deteriorating: extrapolating a horizon from stable inputs would
// produce a spurious finite estimate.
const IndeterminateDaysToChurn = 3650

// Per-signal probability adjustment scale. A maximally strong, maximally
// frequent negative signal moves the probability by this much.
const signalAdjustment = 0.04

// signalFrequencyCap bounds how much repeated occurrences of one signal
// can amplify its adjustment.
const signalFrequencyCap = 5

// Model combines category-weighted factor impacts and behavioral-signal
// adjustments into a churn probability. Weights are immutable config
// constructed at startup; the model itself carries no mutable state and
// is safe for concurrent use.
type Model struct {
	cfg config.ScoringConfig
}

func NewModel(cfg config.ScoringConfig) *Model {
	return &Model{cfg: cfg}
}

// Result is one scoring pass over a client's inputs.
type Result struct {
	Probability float64
	Confidence  float64
	DaysToChurn int
	Importances []models.FeatureImportance
}

// Score produces the probability, confidence, churn horizon, and
// explainability breakdown. prior is the client's previous prediction,
// used only for run-to-run consistency in the confidence term; nil is
// fine.
func (m *Model) Score(
	factors []models.ChurnRiskFactor,
	signals []models.BehavioralSignal,
	prior *models.ChurnPrediction,
) Result {
	categoryScores := m.categoryScores(factors)

	base := 0.0
	importances := make([]models.FeatureImportance, 0, len(models.AllCategories))
	for _, cat := range models.AllCategories {
		w := m.categoryWeight(cat)
		v := categoryScores[cat]
		base += w * v
		importances = append(importances, models.FeatureImportance{
			Feature: string(cat),
			Weight:  w,
			Value:   v,
		})
	}

	probability := clamp01(base + m.signalDelta(signals))

	populated := 0
	for _, v := range categoryScores {
		if v > 0 {
			populated++
		}
	}

	return Result{
		Probability: probability,
		Confidence:  m.confidence(populated, probability, prior),
		DaysToChurn: estimateDaysToChurn(factors),
		Importances: importances,
	}
}

// categoryScores folds factor impacts into one [0,1] score per
// category. The fold is a confidence-weighted mean, which is monotone
// in every individual impact: raising any factor's impact can only
// raise its category score.
func (m *Model) categoryScores(factors []models.ChurnRiskFactor) map[models.FactorCategory]float64 {
	sums := make(map[models.FactorCategory]float64)
	weights := make(map[models.FactorCategory]float64)
	for _, f := range factors {
		conf := f.Confidence
		if conf <= 0 {
			conf = 0.5
		}
		sums[f.Category] += f.Impact * conf
		weights[f.Category] += conf
	}

	scores := make(map[models.FactorCategory]float64, len(sums))
	for cat, sum := range sums {
		scores[cat] = clamp01(sum / weights[cat])
	}
	return scores
}

// signalDelta is the behavioral adjustment: negative signals push the
// probability up, positive signals pull it down, proportional to
// strength x capped frequency.
func (m *Model) signalDelta(signals []models.BehavioralSignal) float64 {
	delta := 0.0
	for _, s := range signals {
		freq := s.Frequency
		if freq < 1 {
			freq = 1
		}
		if freq > signalFrequencyCap {
			freq = signalFrequencyCap
		}
		magnitude := s.Strength * float64(freq) / signalFrequencyCap * signalAdjustment

		switch s.Polarity {
		case models.PolarityNegative:
			delta += magnitude
		case models.PolarityPositive:
			delta -= magnitude
		}
	}
	return delta
}

// confidence combines data coverage (populated categories out of six)
// with run-to-run consistency against the prior prediction. Sparse data
// yields a low-confidence prediction rather than no prediction.
func (m *Model) confidence(populatedCategories int, probability float64, prior *models.ChurnPrediction) float64 {
	coverage := float64(populatedCategories) / float64(len(models.AllCategories))

	consistency := 0.5
	if prior != nil {
		consistency = 1 - math.Min(math.Abs(probability-prior.ChurnProbability)*2, 1)
	}

	conf := coverage*0.7 + consistency*0.3

	if populatedCategories < m.cfg.MinCategories {
		// Below the floor the score is still produced, but its
		// confidence must communicate the sparsity.
		conf = math.Min(conf, 0.3)
	}
	return clamp01(conf)
}

// estimateDaysToChurn extrapolates from the dominant deteriorating
// factor: the harder it is deteriorating, the shorter the horizon.
func estimateDaysToChurn(factors []models.ChurnRiskFactor) int {
	dominant := -1.0
	for _, f := range factors {
		if f.Trend == models.TrendDeteriorating && f.Impact > dominant {
			dominant = f.Impact
		}
	}
	if dominant < 0 {
		return IndeterminateDaysToChurn
	}

	days := int((1 - dominant) * 180)
	if days < 14 {
		days = 14
	}
	return days
}

func (m *Model) categoryWeight(cat models.FactorCategory) float64 {
	w := m.cfg.Weights
	switch cat {
	case models.CategoryUsage:
		return w.Usage
	case models.CategoryEngagement:
		return w.Engagement
	case models.CategoryPayment:
		return w.Payment
	case models.CategorySupport:
		return w.Support
	case models.CategoryCompetitive:
		return w.Competitive
	case models.CategoryOrganizational:
		return w.Organizational
	default:
		return 0
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
