// internal/workers/retention/execute-retention-plan/handler_test.go
package executeretentionplan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	commonerrors "retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// ==========================
// Mock Engine
// ==========================

type mockExecutor struct {
	result     *models.ExecutionResult
	err        error
	calledWith string
}

func (m *mockExecutor) ExecuteRetentionPlan(ctx context.Context, planID string) (*models.ExecutionResult, error) {
	m.calledWith = planID
	return m.result, m.err
}

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(engine Executor) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, engine, logger.NewNoOpLogger())
}

func createTestResult() *models.ExecutionResult {
	return &models.ExecutionResult{
		PlanID: "plan-123",
		Status: models.PlanCompleted,
		Outcomes: []models.TacticOutcome{
			{TacticID: "t1", Status: models.TacticCompleted},
			{TacticID: "t2", Status: models.TacticFailed},
		},
		TacticsTotal:   2,
		TacticsSucceed: 1,
		TacticsFailed:  1,
	}
}

// ==========================
// Execute Tests
// ==========================

func TestExecute_Success(t *testing.T) {
	engine := &mockExecutor{result: createTestResult()}
	handler := createTestHandler(engine)

	output, err := handler.Execute(context.Background(), &Input{PlanID: "plan-123"})

	assert.NoError(t, err)
	assert.Equal(t, "plan-123", engine.calledWith)
	assert.Equal(t, "completed", output.Status)
	assert.Equal(t, 1, output.Succeeded)
	assert.Equal(t, 1, output.Failed)
	assert.False(t, output.Escalated)
}

func TestExecute_FlagsEscalations(t *testing.T) {
	result := createTestResult()
	result.Escalations = []models.EscalationEvent{
		{PlanID: "plan-123", TacticID: "t2", EscalationLevel: "management"},
	}
	handler := createTestHandler(&mockExecutor{result: result})

	output, err := handler.Execute(context.Background(), &Input{PlanID: "plan-123"})

	assert.NoError(t, err)
	assert.True(t, output.Escalated)
}

func TestExecute_InputValidation(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
	}{
		{"nil input", nil},
		{"empty plan id", &Input{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := createTestHandler(&mockExecutor{})

			output, err := handler.Execute(context.Background(), tt.input)

			assert.Nil(t, output)
			assert.ErrorIs(t, err, ErrMissingPlanID)
		})
	}
}

func TestExecute_EngineError(t *testing.T) {
	engine := &mockExecutor{err: commonerrors.NewPlanNotFoundError("plan-x")}
	handler := createTestHandler(engine)

	output, err := handler.Execute(context.Background(), &Input{PlanID: "plan-x"})

	assert.Nil(t, output)
	assert.Error(t, err)
}

// ==========================
// Error Mapping Tests
// ==========================

func TestMapError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode string
	}{
		{"missing plan id", ErrMissingPlanID, "MISSING_PLAN_ID"},
		{"standard error keeps its code", commonerrors.NewPlanNotFoundError("x"), "PLAN_NOT_FOUND"},
		{"unknown error falls back", assert.AnError, "PLAN_EXECUTION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := mapError(tt.err)
			assert.Equal(t, tt.expectedCode, code)
		})
	}
}
