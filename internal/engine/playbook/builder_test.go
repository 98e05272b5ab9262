// internal/engine/playbook/builder_test.go
package playbook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"retention-workers/internal/common/config"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/engine/scoring"
	"retention-workers/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestPlaybooks() config.PlaybooksConfig {
	return config.PlaybooksConfig{
		Critical: config.PlaybookConfig{
			ResponseTime:    "24 hours",
			EscalationLevel: "executive",
			ResourceTier:    "dedicated",
			Strategies:      []string{"executive_engagement", "custom_success_plan", "pricing_intervention"},
			Budget:          10000,
		},
		High: config.PlaybookConfig{
			ResponseTime:    "48 hours",
			EscalationLevel: "management",
			ResourceTier:    "priority",
			Strategies:      []string{"proactive_outreach", "value_demonstration"},
			Budget:          5000,
		},
		Medium: config.PlaybookConfig{
			ResponseTime:    "1 week",
			EscalationLevel: "team_lead",
			ResourceTier:    "standard",
			Strategies:      []string{"engagement_campaign"},
			Budget:          1500,
		},
	}
}

func createTestBuilder(t *testing.T) *Builder {
	return NewBuilder(createTestPlaybooks(), logger.NewTestLogger(t))
}

func createTestPrediction() *models.ChurnPrediction {
	return &models.ChurnPrediction{
		ID:               "pred-123",
		ClientID:         "client-123",
		OrganizationID:   "org-1",
		ChurnProbability: 0.72,
		RiskLevel:        models.RiskLevelHigh,
		DaysToChurn:      scoring.IndeterminateDaysToChurn,
		PrimaryRiskFactors: []models.ChurnRiskFactor{
			{Factor: "late_payments", Category: models.CategoryPayment, Impact: 0.8},
			{Factor: "login_decline", Category: models.CategoryUsage, Impact: 0.6},
			{Factor: "engagement_lapse", Category: models.CategoryEngagement, Impact: 0.3},
		},
	}
}

// ==========================
// Playbook Resolution Tests
// ==========================

func TestBuilder_PlaybookFor(t *testing.T) {
	builder := createTestBuilder(t)

	tests := []struct {
		level           models.RiskLevel
		wantErr         bool
		responseTime    string
		escalationLevel string
		strategies      int
	}{
		{models.RiskLevelCritical, false, "24 hours", "executive", 3},
		{models.RiskLevelHigh, false, "48 hours", "management", 2},
		{models.RiskLevelMedium, false, "1 week", "team_lead", 1},
		{models.RiskLevelLow, true, "", "", 0},
		{models.RiskLevelMinimal, true, "", "", 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			pb, err := builder.PlaybookFor(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, pb)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.responseTime, pb.ResponseTime)
			assert.Equal(t, tt.escalationLevel, pb.EscalationLevel)
			assert.Len(t, pb.Strategies, tt.strategies)
		})
	}
}

// ==========================
// Plan Construction Tests
// ==========================

func TestBuilder_Build(t *testing.T) {
	builder := createTestBuilder(t)
	prediction := createTestPrediction()

	plan, err := builder.Build(prediction, "csm-anna")

	assert.NoError(t, err)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "pred-123", plan.PredictionID)
	assert.Equal(t, "client-123", plan.ClientID)
	assert.Equal(t, models.RiskLevelHigh, plan.RiskLevel)
	assert.Equal(t, "proactive_outreach", plan.PrimaryStrategy)
	assert.Equal(t, []string{"value_demonstration"}, plan.SecondaryStrategies)
	assert.Equal(t, models.PlanPlanned, plan.Status)
	assert.Equal(t, "csm-anna", plan.AssignedTo)
	assert.InDelta(t, 5000, plan.Resources.Budget, 1e-9)
	assert.NotEmpty(t, plan.EscalationTriggers)
	assert.NotEmpty(t, plan.Contingencies)
}

func TestBuilder_Build_NonActionableLevels(t *testing.T) {
	builder := createTestBuilder(t)

	for _, level := range []models.RiskLevel{models.RiskLevelLow, models.RiskLevelMinimal} {
		prediction := createTestPrediction()
		prediction.RiskLevel = level

		plan, err := builder.Build(prediction, "csm-anna")
		assert.Error(t, err)
		assert.Nil(t, plan)
	}
}

func TestBuilder_Build_TacticsPerCategory(t *testing.T) {
	builder := createTestBuilder(t)
	prediction := createTestPrediction()

	plan, err := builder.Build(prediction, "csm-anna")
	assert.NoError(t, err)

	// One tactic per distinct primary-factor category.
	assert.Len(t, plan.Tactics, 3)

	byName := map[string]models.RetentionTactic{}
	for _, tac := range plan.Tactics {
		byName[tac.Name] = tac
	}
	assert.Contains(t, byName, "pricing_and_payment_review")
	assert.Contains(t, byName, "feature_adoption_nudge")
	assert.Contains(t, byName, "proactive_account_review")

	// Priority follows factor impact.
	assert.Equal(t, models.PriorityHigh, byName["pricing_and_payment_review"].Priority)
	assert.Equal(t, models.PriorityMedium, byName["feature_adoption_nudge"].Priority)
	assert.Equal(t, models.PriorityLow, byName["proactive_account_review"].Priority)
}

func TestBuilder_Build_DuplicateCategoriesCollapse(t *testing.T) {
	builder := createTestBuilder(t)
	prediction := createTestPrediction()
	prediction.PrimaryRiskFactors = []models.ChurnRiskFactor{
		{Factor: "late_payments", Category: models.CategoryPayment, Impact: 0.8},
		{Factor: "outstanding_balance", Category: models.CategoryPayment, Impact: 0.75},
		{Factor: "plan_downgrade", Category: models.CategoryPayment, Impact: 0.6},
	}

	plan, err := builder.Build(prediction, "csm-anna")
	assert.NoError(t, err)
	assert.Len(t, plan.Tactics, 1)
	assert.Equal(t, "pricing_and_payment_review", plan.Tactics[0].Name)
}

func TestBuilder_Build_TacticOrdering(t *testing.T) {
	builder := createTestBuilder(t)
	prediction := createTestPrediction()
	prediction.PrimaryRiskFactors = []models.ChurnRiskFactor{
		{Factor: "login_decline", Category: models.CategoryUsage, Impact: 0.3},          // impact 6, low -> 6
		{Factor: "leadership_change", Category: models.CategoryOrganizational, Impact: 0.8}, // impact 9, high -> 27
		{Factor: "low_satisfaction", Category: models.CategorySupport, Impact: 0.5},     // impact 8, medium -> 16
	}

	plan, err := builder.Build(prediction, "csm-anna")
	assert.NoError(t, err)
	assert.Len(t, plan.Tactics, 3)

	// Ordered by impact x priority weight descending.
	assert.Equal(t, "executive_sponsor_outreach", plan.Tactics[0].Name)
	assert.Equal(t, "service_recovery_review", plan.Tactics[1].Name)
	assert.Equal(t, "feature_adoption_nudge", plan.Tactics[2].Name)

	for i := 1; i < len(plan.Tactics); i++ {
		prev := plan.Tactics[i-1]
		cur := plan.Tactics[i]
		assert.GreaterOrEqual(t,
			prev.Impact*prev.Priority.PriorityWeight(),
			cur.Impact*cur.Priority.PriorityWeight())
	}
}

// ==========================
// Timeline Tests
// ==========================

func TestBuilder_Build_Timeline(t *testing.T) {
	t.Run("uncompressed when horizon is distant", func(t *testing.T) {
		builder := createTestBuilder(t)
		prediction := createTestPrediction()
		prediction.DaysToChurn = scoring.IndeterminateDaysToChurn

		plan, err := builder.Build(prediction, "csm-anna")
		assert.NoError(t, err)
		assert.False(t, plan.Timeline.Compressed)
		assert.Equal(t, 84, plan.Timeline.TotalDays) // 3+21+30+30
		assert.Len(t, plan.Timeline.Phases, 4)
	})

	t.Run("critical plans run a halved base schedule", func(t *testing.T) {
		builder := createTestBuilder(t)
		prediction := createTestPrediction()
		prediction.RiskLevel = models.RiskLevelCritical
		prediction.DaysToChurn = scoring.IndeterminateDaysToChurn

		plan, err := builder.Build(prediction, "csm-anna")
		assert.NoError(t, err)
		assert.False(t, plan.Timeline.Compressed)
		assert.Equal(t, 43, plan.Timeline.TotalDays) // 2+11+15+15
	})

	t.Run("compressed to fit the churn horizon", func(t *testing.T) {
		builder := createTestBuilder(t)
		prediction := createTestPrediction()
		prediction.DaysToChurn = 30

		plan, err := builder.Build(prediction, "csm-anna")
		assert.NoError(t, err)
		assert.True(t, plan.Timeline.Compressed)
		assert.LessOrEqual(t, plan.Timeline.TotalDays, 30)
		for _, phase := range plan.Timeline.Phases {
			assert.GreaterOrEqual(t, phase.DurationDays, 1)
		}
	})

	t.Run("horizon shorter than the phase count collapses phases", func(t *testing.T) {
		builder := createTestBuilder(t)
		prediction := createTestPrediction()
		prediction.DaysToChurn = 2

		plan, err := builder.Build(prediction, "csm-anna")
		assert.NoError(t, err)
		assert.True(t, plan.Timeline.Compressed)
		assert.Equal(t, 2, plan.Timeline.TotalDays)
		assert.Len(t, plan.Timeline.Phases, 2)
		for _, phase := range plan.Timeline.Phases {
			assert.Equal(t, 1, phase.DurationDays)
		}
	})

	t.Run("critical plan on a two-day horizon never overruns it", func(t *testing.T) {
		timeline := buildTimeline(models.RiskLevelCritical, nil, 2)

		assert.True(t, timeline.Compressed)
		assert.Equal(t, 2, timeline.TotalDays)
		assert.Len(t, timeline.Phases, 2)
	})

	t.Run("collapsed phases keep every tactic assignment", func(t *testing.T) {
		tactics := []models.RetentionTactic{
			{ID: "t-1"}, {ID: "t-2"}, {ID: "t-3"}, {ID: "t-4"},
		}
		timeline := buildTimeline(models.RiskLevelCritical, tactics, 2)

		var assigned []string
		for _, phase := range timeline.Phases {
			assigned = append(assigned, phase.TacticIDs...)
		}
		assert.ElementsMatch(t, []string{"t-1", "t-2", "t-3", "t-4"}, assigned)
	})

	t.Run("high priority tactics form the critical path", func(t *testing.T) {
		builder := createTestBuilder(t)
		prediction := createTestPrediction()

		plan, err := builder.Build(prediction, "csm-anna")
		assert.NoError(t, err)
		assert.Len(t, plan.Timeline.CriticalPath, 1)
	})
}

// ==========================
// Resource Allocation Tests
// ==========================

func TestPersonnelFor(t *testing.T) {
	tests := []struct {
		tier     string
		expected int
	}{
		{"dedicated", 3},
		{"priority", 2},
		{"standard", 1},
		{"", 1},
	}

	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			personnel := personnelFor(tt.tier, "csm-anna")
			assert.Len(t, personnel, tt.expected)
			assert.Equal(t, "csm-anna", personnel[0])
		})
	}
}

func TestResponseWindow(t *testing.T) {
	assert.Equal(t, "24 hours", responseWindow(models.RiskLevelCritical))
	assert.Equal(t, "48 hours", responseWindow(models.RiskLevelHigh))
	assert.Equal(t, "1 week", responseWindow(models.RiskLevelMedium))
}
