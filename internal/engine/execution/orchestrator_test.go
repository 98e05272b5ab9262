// internal/engine/execution/orchestrator_test.go
package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// ==========================
// Mock Handlers
// ==========================

type mockTacticHandler struct {
	tacticType models.TacticType
	dispatched []string
	err        error
	panicWith  interface{}
}

func (m *mockTacticHandler) Type() models.TacticType { return m.tacticType }

func (m *mockTacticHandler) Dispatch(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic) (string, error) {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	m.dispatched = append(m.dispatched, tactic.ID)
	if m.err != nil {
		return "", m.err
	}
	return "dispatched " + tactic.Name, nil
}

type mockEscalator struct {
	events []models.EscalationEvent
	err    error
}

func (m *mockEscalator) Escalate(ctx context.Context, event models.EscalationEvent) error {
	m.events = append(m.events, event)
	return m.err
}

type mockRecorder struct {
	outcomes []models.TacticOutcome
	err      error
}

func (m *mockRecorder) RecordOutcome(ctx context.Context, plan *models.RetentionPlan, outcome models.TacticOutcome) error {
	m.outcomes = append(m.outcomes, outcome)
	return m.err
}

// ==========================
// Test Helper Functions
// ==========================

func staticEscalationLevel(models.RiskLevel) string { return "management" }

func createTestOrchestrator(t *testing.T, handlers []TacticHandler, escalator Escalator, recorder OutcomeRecorder) *Orchestrator {
	return NewOrchestrator(handlers, escalator, recorder, staticEscalationLevel, logger.NewTestLogger(t))
}

func createTestPlan(tactics ...models.RetentionTactic) *models.RetentionPlan {
	return &models.RetentionPlan{
		ID:         "plan-123",
		ClientID:   "client-123",
		RiskLevel:  models.RiskLevelHigh,
		AssignedTo: "csm-anna",
		Tactics:    tactics,
	}
}

func tactic(id string, tacticType models.TacticType, priority models.TacticPriority) models.RetentionTactic {
	return models.RetentionTactic{
		ID:       id,
		Name:     id,
		Type:     tacticType,
		Priority: priority,
		Status:   models.TacticPending,
	}
}

// ==========================
// Execution Tests
// ==========================

func TestOrchestrator_Execute_AllSucceed(t *testing.T) {
	service := &mockTacticHandler{tacticType: models.TacticService}
	comms := &mockTacticHandler{tacticType: models.TacticCommunication}
	escalator := &mockEscalator{}
	recorder := &mockRecorder{}

	orch := createTestOrchestrator(t, []TacticHandler{service, comms}, escalator, recorder)
	plan := createTestPlan(
		tactic("t1", models.TacticService, models.PriorityHigh),
		tactic("t2", models.TacticCommunication, models.PriorityMedium),
	)

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Equal(t, models.PlanCompleted, result.Status)
	assert.Equal(t, 2, result.TacticsTotal)
	assert.Equal(t, 2, result.TacticsSucceed)
	assert.Zero(t, result.TacticsFailed)
	assert.Empty(t, result.Escalations)
	assert.Empty(t, escalator.events)
	assert.Len(t, recorder.outcomes, 2)

	for _, tac := range plan.Tactics {
		assert.Equal(t, models.TacticCompleted, tac.Status)
	}
}

// One failing tactic must not prevent the remaining tactics from running.
func TestOrchestrator_Execute_FailureIsolation(t *testing.T) {
	failing := &mockTacticHandler{tacticType: models.TacticService, err: errors.New("crm unreachable")}
	healthy := &mockTacticHandler{tacticType: models.TacticCommunication}

	orch := createTestOrchestrator(t, []TacticHandler{failing, healthy}, &mockEscalator{}, &mockRecorder{})
	plan := createTestPlan(
		tactic("t1", models.TacticService, models.PriorityLow),
		tactic("t2", models.TacticCommunication, models.PriorityMedium),
	)

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Equal(t, models.PlanCompleted, result.Status)
	assert.Equal(t, 1, result.TacticsFailed)
	assert.Equal(t, 1, result.TacticsSucceed)
	assert.Len(t, healthy.dispatched, 1, "second tactic must still run after the first fails")
	assert.Equal(t, models.TacticFailed, plan.Tactics[0].Status)
	assert.Equal(t, models.TacticCompleted, plan.Tactics[1].Status)
}

func TestOrchestrator_Execute_PanicIsolation(t *testing.T) {
	panicking := &mockTacticHandler{tacticType: models.TacticService, panicWith: "handler bug"}
	healthy := &mockTacticHandler{tacticType: models.TacticCommunication}

	orch := createTestOrchestrator(t, []TacticHandler{panicking, healthy}, &mockEscalator{}, &mockRecorder{})
	plan := createTestPlan(
		tactic("t1", models.TacticService, models.PriorityLow),
		tactic("t2", models.TacticCommunication, models.PriorityLow),
	)

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.TacticsFailed)
	assert.Equal(t, 1, result.TacticsSucceed)
	assert.Contains(t, result.Outcomes[0].Detail, "panicked")
}

func TestOrchestrator_Execute_MissingHandler(t *testing.T) {
	orch := createTestOrchestrator(t, nil, &mockEscalator{}, &mockRecorder{})
	plan := createTestPlan(tactic("t1", models.TacticPricing, models.PriorityMedium))

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.TacticsFailed)
	assert.Contains(t, result.Outcomes[0].Detail, "no handler registered")
}

func TestOrchestrator_Execute_BlockedTacticsSkipped(t *testing.T) {
	handler := &mockTacticHandler{tacticType: models.TacticService}
	orch := createTestOrchestrator(t, []TacticHandler{handler}, &mockEscalator{}, &mockRecorder{})

	blocked := tactic("t1", models.TacticService, models.PriorityHigh)
	blocked.Status = models.TacticBlocked
	plan := createTestPlan(blocked, tactic("t2", models.TacticService, models.PriorityLow))

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Equal(t, 1, result.TacticsTotal)
	assert.Len(t, result.Outcomes, 1)
	assert.Equal(t, "t2", result.Outcomes[0].TacticID)
	assert.Equal(t, models.TacticBlocked, plan.Tactics[0].Status)
}

// ==========================
// Escalation Tests
// ==========================

func TestOrchestrator_Execute_EscalationOnlyForHighPriority(t *testing.T) {
	tests := []struct {
		name        string
		priority    models.TacticPriority
		escalations int
	}{
		{"high priority failure escalates", models.PriorityHigh, 1},
		{"medium priority failure does not", models.PriorityMedium, 0},
		{"low priority failure does not", models.PriorityLow, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := &mockTacticHandler{tacticType: models.TacticService, err: errors.New("dispatch failed")}
			escalator := &mockEscalator{}

			orch := createTestOrchestrator(t, []TacticHandler{failing}, escalator, &mockRecorder{})
			plan := createTestPlan(tactic("t1", models.TacticService, tt.priority))

			result, err := orch.Execute(context.Background(), plan)

			assert.NoError(t, err)
			assert.Len(t, result.Escalations, tt.escalations)
			assert.Len(t, escalator.events, tt.escalations)
		})
	}
}

func TestOrchestrator_Execute_EscalationEvent(t *testing.T) {
	failing := &mockTacticHandler{tacticType: models.TacticService, err: errors.New("crm down")}
	escalator := &mockEscalator{}

	orch := createTestOrchestrator(t, []TacticHandler{failing}, escalator, &mockRecorder{})
	plan := createTestPlan(tactic("t1", models.TacticService, models.PriorityHigh))

	result, _ := orch.Execute(context.Background(), plan)

	event := result.Escalations[0]
	assert.Equal(t, "plan-123", event.PlanID)
	assert.Equal(t, "t1", event.TacticID)
	assert.Equal(t, "management", event.EscalationLevel)
	assert.Equal(t, "csm-anna", event.NotifiedOwner)
	assert.Contains(t, event.Reason, "crm down")
	assert.False(t, event.Timestamp.IsZero())
}

// The escalation must be recorded in the result even when the notifier
// itself is down: an unreachable SNS topic cannot hide that escalation
// was due.
func TestOrchestrator_Execute_EscalationRecordedWhenNotifierFails(t *testing.T) {
	failing := &mockTacticHandler{tacticType: models.TacticService, err: errors.New("dispatch failed")}
	escalator := &mockEscalator{err: errors.New("sns unreachable")}

	orch := createTestOrchestrator(t, []TacticHandler{failing}, escalator, &mockRecorder{})
	plan := createTestPlan(tactic("t1", models.TacticService, models.PriorityHigh))

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Len(t, result.Escalations, 1)
}

// ==========================
// Final Status Tests
// ==========================

func TestOrchestrator_Execute_FinalStatus(t *testing.T) {
	t.Run("all failed means plan failed", func(t *testing.T) {
		failing := &mockTacticHandler{tacticType: models.TacticService, err: errors.New("down")}
		orch := createTestOrchestrator(t, []TacticHandler{failing}, &mockEscalator{}, &mockRecorder{})
		plan := createTestPlan(
			tactic("t1", models.TacticService, models.PriorityLow),
			tactic("t2", models.TacticService, models.PriorityLow),
		)

		result, _ := orch.Execute(context.Background(), plan)
		assert.Equal(t, models.PlanFailed, result.Status)
	})

	t.Run("partial success still completes", func(t *testing.T) {
		failing := &mockTacticHandler{tacticType: models.TacticService, err: errors.New("down")}
		healthy := &mockTacticHandler{tacticType: models.TacticCommunication}
		orch := createTestOrchestrator(t, []TacticHandler{failing, healthy}, &mockEscalator{}, &mockRecorder{})
		plan := createTestPlan(
			tactic("t1", models.TacticService, models.PriorityLow),
			tactic("t2", models.TacticCommunication, models.PriorityLow),
		)

		result, _ := orch.Execute(context.Background(), plan)
		assert.Equal(t, models.PlanCompleted, result.Status)
	})

	t.Run("empty plan completes", func(t *testing.T) {
		orch := createTestOrchestrator(t, nil, &mockEscalator{}, &mockRecorder{})
		result, err := orch.Execute(context.Background(), createTestPlan())

		assert.NoError(t, err)
		assert.Equal(t, models.PlanCompleted, result.Status)
		assert.Zero(t, result.TacticsTotal)
	})
}

// Recorder failures are logged, never fatal.
func TestOrchestrator_Execute_RecorderFailureIgnored(t *testing.T) {
	handler := &mockTacticHandler{tacticType: models.TacticService}
	recorder := &mockRecorder{err: errors.New("insert failed")}

	orch := createTestOrchestrator(t, []TacticHandler{handler}, &mockEscalator{}, recorder)
	plan := createTestPlan(tactic("t1", models.TacticService, models.PriorityHigh))

	result, err := orch.Execute(context.Background(), plan)

	assert.NoError(t, err)
	assert.Equal(t, models.PlanCompleted, result.Status)
	assert.Len(t, recorder.outcomes, 1)
}
