// internal/engine/scoring/model_test.go
package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retention-workers/internal/common/config"
	"retention-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Weights: config.CategoryWeights{
			Usage:          0.25,
			Engagement:     0.20,
			Payment:        0.20,
			Support:        0.15,
			Competitive:    0.10,
			Organizational: 0.10,
		},
		MinCategories: 3,
	}
}

func createTestFactors() []models.ChurnRiskFactor {
	return []models.ChurnRiskFactor{
		{Factor: "login_decline", Category: models.CategoryUsage, Impact: 0.6, Confidence: 0.85, Trend: models.TrendDeteriorating},
		{Factor: "engagement_lapse", Category: models.CategoryEngagement, Impact: 0.5, Confidence: 0.9, Trend: models.TrendDeteriorating},
		{Factor: "late_payments", Category: models.CategoryPayment, Impact: 0.4, Confidence: 0.9, Trend: models.TrendStable},
		{Factor: "low_satisfaction", Category: models.CategorySupport, Impact: 0.3, Confidence: 0.8, Trend: models.TrendStable},
	}
}

// ==========================
// Core Scoring Tests
// ==========================

func TestModel_Score_Bounds(t *testing.T) {
	model := NewModel(createTestScoringConfig())

	tests := []struct {
		name    string
		factors []models.ChurnRiskFactor
		signals []models.BehavioralSignal
	}{
		{"no inputs", nil, nil},
		{"typical factors", createTestFactors(), nil},
		{
			"maximal factors everywhere",
			[]models.ChurnRiskFactor{
				{Category: models.CategoryUsage, Impact: 1, Confidence: 1},
				{Category: models.CategoryEngagement, Impact: 1, Confidence: 1},
				{Category: models.CategoryPayment, Impact: 1, Confidence: 1},
				{Category: models.CategorySupport, Impact: 1, Confidence: 1},
				{Category: models.CategoryCompetitive, Impact: 1, Confidence: 1},
				{Category: models.CategoryOrganizational, Impact: 1, Confidence: 1},
			},
			[]models.BehavioralSignal{
				{Polarity: models.PolarityNegative, Strength: 1, Frequency: 10},
				{Polarity: models.PolarityNegative, Strength: 1, Frequency: 10},
			},
		},
		{
			"strong positive signals only",
			nil,
			[]models.BehavioralSignal{
				{Polarity: models.PolarityPositive, Strength: 1, Frequency: 5},
				{Polarity: models.PolarityPositive, Strength: 1, Frequency: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := model.Score(tt.factors, tt.signals, nil)
			assert.GreaterOrEqual(t, result.Probability, 0.0)
			assert.LessOrEqual(t, result.Probability, 1.0)
			assert.GreaterOrEqual(t, result.Confidence, 0.0)
			assert.LessOrEqual(t, result.Confidence, 1.0)
		})
	}
}

func TestModel_Score_Deterministic(t *testing.T) {
	model := NewModel(createTestScoringConfig())
	factors := createTestFactors()
	signals := []models.BehavioralSignal{
		{Signal: "late payment pattern", Polarity: models.PolarityNegative, Strength: 0.4, Frequency: 2},
	}

	first := model.Score(factors, signals, nil)
	for i := 0; i < 10; i++ {
		again := model.Score(factors, signals, nil)
		assert.Equal(t, first.Probability, again.Probability)
		assert.Equal(t, first.Confidence, again.Confidence)
		assert.Equal(t, first.DaysToChurn, again.DaysToChurn)
	}
}

// Raising any single factor's impact while holding everything else fixed
// must never lower the probability.
func TestModel_Score_MonotoneInImpact(t *testing.T) {
	model := NewModel(createTestScoringConfig())
	signals := []models.BehavioralSignal{
		{Polarity: models.PolarityNegative, Strength: 0.5, Frequency: 1},
	}

	base := createTestFactors()
	baseline := model.Score(base, signals, nil).Probability

	for i := range base {
		for _, bump := range []float64{0.05, 0.2, 0.4} {
			raised := createTestFactors()
			raised[i].Impact = clamp01(raised[i].Impact + bump)

			got := model.Score(raised, signals, nil).Probability
			assert.GreaterOrEqual(t, got, baseline,
				"raising factor %q impact by %.2f lowered the probability", base[i].Factor, bump)
		}
	}
}

func TestModel_Score_SignalPolarity(t *testing.T) {
	model := NewModel(createTestScoringConfig())
	factors := createTestFactors()

	neutral := model.Score(factors, nil, nil).Probability
	negative := model.Score(factors, []models.BehavioralSignal{
		{Polarity: models.PolarityNegative, Strength: 0.8, Frequency: 3},
	}, nil).Probability
	positive := model.Score(factors, []models.BehavioralSignal{
		{Polarity: models.PolarityPositive, Strength: 0.8, Frequency: 3},
	}, nil).Probability

	assert.Greater(t, negative, neutral)
	assert.Less(t, positive, neutral)
}

func TestModel_Score_SignalFrequencyCapped(t *testing.T) {
	model := NewModel(createTestScoringConfig())
	factors := createTestFactors()

	atCap := model.Score(factors, []models.BehavioralSignal{
		{Polarity: models.PolarityNegative, Strength: 1, Frequency: signalFrequencyCap},
	}, nil).Probability
	beyondCap := model.Score(factors, []models.BehavioralSignal{
		{Polarity: models.PolarityNegative, Strength: 1, Frequency: 100},
	}, nil).Probability

	assert.Equal(t, atCap, beyondCap)
}

// ==========================
// Feature Importance Tests
// ==========================

func TestModel_Score_Importances(t *testing.T) {
	model := NewModel(createTestScoringConfig())
	result := model.Score(createTestFactors(), nil, nil)

	assert.Len(t, result.Importances, len(models.AllCategories))

	weightSum := 0.0
	for _, imp := range result.Importances {
		weightSum += imp.Weight
		assert.GreaterOrEqual(t, imp.Value, 0.0)
		assert.LessOrEqual(t, imp.Value, 1.0)
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)
}

// ==========================
// Confidence Tests
// ==========================

func TestModel_Confidence(t *testing.T) {
	model := NewModel(createTestScoringConfig())

	t.Run("sparse data caps confidence", func(t *testing.T) {
		// Only two of six categories populated, below MinCategories.
		factors := []models.ChurnRiskFactor{
			{Category: models.CategoryUsage, Impact: 0.6, Confidence: 0.8},
			{Category: models.CategoryPayment, Impact: 0.5, Confidence: 0.8},
		}
		result := model.Score(factors, nil, nil)
		assert.LessOrEqual(t, result.Confidence, 0.3)
	})

	t.Run("full coverage beats sparse coverage", func(t *testing.T) {
		sparse := model.Score([]models.ChurnRiskFactor{
			{Category: models.CategoryUsage, Impact: 0.5, Confidence: 0.8},
		}, nil, nil)

		full := model.Score([]models.ChurnRiskFactor{
			{Category: models.CategoryUsage, Impact: 0.5, Confidence: 0.8},
			{Category: models.CategoryEngagement, Impact: 0.5, Confidence: 0.8},
			{Category: models.CategoryPayment, Impact: 0.5, Confidence: 0.8},
			{Category: models.CategorySupport, Impact: 0.5, Confidence: 0.8},
			{Category: models.CategoryCompetitive, Impact: 0.5, Confidence: 0.8},
			{Category: models.CategoryOrganizational, Impact: 0.5, Confidence: 0.8},
		}, nil, nil)

		assert.Greater(t, full.Confidence, sparse.Confidence)
	})

	t.Run("consistency with prior raises confidence", func(t *testing.T) {
		factors := createTestFactors()
		noPrior := model.Score(factors, nil, nil)

		consistent := model.Score(factors, nil, &models.ChurnPrediction{
			ChurnProbability: noPrior.Probability,
		})
		divergent := model.Score(factors, nil, &models.ChurnPrediction{
			ChurnProbability: clamp01(noPrior.Probability + 0.5),
		})

		assert.Greater(t, consistent.Confidence, divergent.Confidence)
	})
}

// ==========================
// Churn Horizon Tests
// ==========================

func TestEstimateDaysToChurn(t *testing.T) {
	tests := []struct {
		name     string
		factors  []models.ChurnRiskFactor
		expected int
	}{
		{
			name:     "no factors is indeterminate",
			factors:  nil,
			expected: IndeterminateDaysToChurn,
		},
		{
			name: "stable factors are indeterminate",
			factors: []models.ChurnRiskFactor{
				{Impact: 0.9, Trend: models.TrendStable},
				{Impact: 0.8, Trend: models.TrendImproving},
			},
			expected: IndeterminateDaysToChurn,
		},
		{
			name: "moderate deterioration",
			factors: []models.ChurnRiskFactor{
				{Impact: 0.5, Trend: models.TrendDeteriorating},
			},
			expected: 90,
		},
		{
			name: "dominant deteriorating factor wins",
			factors: []models.ChurnRiskFactor{
				{Impact: 0.25, Trend: models.TrendDeteriorating},
				{Impact: 0.75, Trend: models.TrendDeteriorating},
				{Impact: 0.95, Trend: models.TrendStable},
			},
			expected: 45,
		},
		{
			name: "extreme deterioration floors at 14 days",
			factors: []models.ChurnRiskFactor{
				{Impact: 1.0, Trend: models.TrendDeteriorating},
			},
			expected: 14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, estimateDaysToChurn(tt.factors))
		})
	}
}

// ==========================
// Category Fold Tests
// ==========================

func TestModel_CategoryScores(t *testing.T) {
	model := NewModel(createTestScoringConfig())

	t.Run("weighted mean within factor range", func(t *testing.T) {
		scores := model.categoryScores([]models.ChurnRiskFactor{
			{Category: models.CategoryUsage, Impact: 0.2, Confidence: 0.5},
			{Category: models.CategoryUsage, Impact: 0.8, Confidence: 0.5},
		})
		assert.InDelta(t, 0.5, scores[models.CategoryUsage], 1e-9)
	})

	t.Run("higher confidence factor dominates", func(t *testing.T) {
		scores := model.categoryScores([]models.ChurnRiskFactor{
			{Category: models.CategoryUsage, Impact: 0.2, Confidence: 0.1},
			{Category: models.CategoryUsage, Impact: 0.8, Confidence: 0.9},
		})
		assert.Greater(t, scores[models.CategoryUsage], 0.5)
	})

	t.Run("zero confidence falls back to default weight", func(t *testing.T) {
		scores := model.categoryScores([]models.ChurnRiskFactor{
			{Category: models.CategoryPayment, Impact: 0.6, Confidence: 0},
		})
		assert.InDelta(t, 0.6, scores[models.CategoryPayment], 1e-9)
	})
}
