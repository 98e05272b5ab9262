// internal/workers/prediction/predict-churn/handler.go
package predictchurn

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
	TaskType = "predict-churn"
)

var (
	ErrMissingClientID  = errors.New("MISSING_CLIENT_ID")
	ErrPredictionFailed = errors.New("PREDICTION_FAILED")
)

// Predictor is the slice of the engine this worker invokes.
type Predictor interface {
	Predict(ctx context.Context, clientID string) (*models.ChurnPrediction, error)
}

type Handler struct {
	config *Config
	engine Predictor
	logger logger.Logger
}

func NewHandler(config *Config, engine Predictor, log logger.Logger) *Handler {
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

// Execute runs the prediction outside the Zeebe plumbing, exported for
// direct invocation in tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.ClientID == "" {
		return nil, ErrMissingClientID
	}

	prediction, err := h.engine.Predict(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}

	return &Output{
		Prediction: prediction,
		RiskLevel:  string(prediction.RiskLevel),
		Stage:      string(prediction.LifecycleStage),
		Actionable: prediction.IsActionable(),
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
	if errors.Is(err, ErrMissingClientID) {
		return "MISSING_CLIENT_ID", 0
	}
	return "PREDICTION_FAILED", 0
}
