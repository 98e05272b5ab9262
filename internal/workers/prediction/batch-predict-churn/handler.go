// internal/workers/prediction/batch-predict-churn/handler.go
package batchpredictchurn

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
	TaskType = "batch-predict-churn"
)

var (
	ErrMissingOrganizationID = errors.New("MISSING_ORGANIZATION_ID")
)

// BatchPredictor is the slice of the engine this worker invokes.
type BatchPredictor interface {
	BatchPredict(ctx context.Context, orgID string) ([]*models.ChurnPrediction, error)
}

type Handler struct {
	config *Config
	engine BatchPredictor
	logger logger.Logger
}

func NewHandler(config *Config, engine BatchPredictor, log logger.Logger) *Handler {
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
	if input == nil || input.OrganizationID == "" {
		return nil, ErrMissingOrganizationID
	}

	predictions, err := h.engine.BatchPredict(ctx, input.OrganizationID)
	if err != nil {
		return nil, err
	}

	actionable := 0
	for _, p := range predictions {
		if p.IsActionable() {
			actionable++
		}
	}

	h.logger.Info("batch prediction complete", map[string]interface{}{
		"organizationId": input.OrganizationID,
		"scored":         len(predictions),
		"actionable":     actionable,
	})

	return &Output{
		Predictions: predictions,
		Scored:      len(predictions),
		Actionable:  actionable,
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
	if errors.Is(err, ErrMissingOrganizationID) {
		return "MISSING_ORGANIZATION_ID", 0
	}
	return "BATCH_PREDICTION_FAILED", 0
}
