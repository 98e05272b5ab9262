// internal/workers/retention/create-retention-plan/handler.go
package createretentionplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

const (
	TaskType = "create-retention-plan"
)

var (
	ErrMissingPrediction = errors.New("MISSING_PREDICTION")
	ErrNotActionable     = errors.New("PREDICTION_NOT_ACTIONABLE")
)

// Planner is the slice of the engine this worker invokes.
type Planner interface {
	GetPrediction(ctx context.Context, id string) (*models.ChurnPrediction, error)
	CreateRetentionPlan(ctx context.Context, prediction *models.ChurnPrediction) (*models.RetentionPlan, error)
}

type Handler struct {
	config *Config
	engine Planner
	logger logger.Logger
}

func NewHandler(config *Config, engine Planner, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		engine: engine,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		code, retries := mapError(err)
		h.failJob(client, job, code, err.Error(), retries)
		return err
	}

	h.completeJob(client, job, output)
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || (input.Prediction == nil && input.PredictionID == "") {
		return nil, ErrMissingPrediction
	}

	prediction := input.Prediction
	if prediction == nil {
		var err error
		prediction, err = h.engine.GetPrediction(ctx, input.PredictionID)
		if err != nil {
			return nil, err
		}
	}

	if !prediction.IsActionable() {
		return nil, fmt.Errorf("%w: risk level %s", ErrNotActionable, prediction.RiskLevel)
	}

	plan, err := h.engine.CreateRetentionPlan(ctx, prediction)
	if err != nil {
		return nil, err
	}

	return &Output{
		Plan:       plan,
		PlanID:     plan.ID,
		Tactics:    len(plan.Tactics),
		Compressed: plan.Timeline.Compressed,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func mapError(err error) (string, int32) {
	var stdErr *commonerrors.StandardError
	if errors.As(err, &stdErr) {
		return string(stdErr.Code), int32(commonerrors.GetRetryCount(stdErr.Code))
	}
	switch {
	case errors.Is(err, ErrMissingPrediction):
		return "MISSING_PREDICTION", 0
	case errors.Is(err, ErrNotActionable):
		return "PREDICTION_NOT_ACTIONABLE", 0
	}
	return "PLAN_CREATION_FAILED", 0
}
