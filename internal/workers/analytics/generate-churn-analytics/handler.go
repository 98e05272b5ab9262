// internal/workers/analytics/generate-churn-analytics/handler.go
package generatechurnanalytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	commonerrors "retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

const (
	TaskType = "generate-churn-analytics"
)

var (
	ErrMissingOrganizationID = errors.New("MISSING_ORGANIZATION_ID")
	ErrInvalidPeriod         = errors.New("INVALID_PERIOD")
)

// AnalyticsGenerator is the slice of the engine this worker invokes.
type AnalyticsGenerator interface {
	GenerateAnalytics(ctx context.Context, orgID string, period models.AnalyticsPeriod) (*models.ChurnAnalytics, error)
}

type Handler struct {
	config *Config
	engine AnalyticsGenerator
	logger logger.Logger
}

func NewHandler(config *Config, engine AnalyticsGenerator, log logger.Logger) *Handler {
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

	period, err := h.resolvePeriod(input)
	if err != nil {
		return nil, err
	}

	analytics, err := h.engine.GenerateAnalytics(ctx, input.OrganizationID, period)
	if err != nil {
		return nil, err
	}

	return &Output{
		Analytics:     analytics,
		ChurnRate:     analytics.ChurnRate,
		RetentionRate: analytics.RetentionRate,
		Insufficient:  analytics.InsufficientData,
	}, nil
}

func (h *Handler) resolvePeriod(input *Input) (models.AnalyticsPeriod, error) {
	if input.PeriodStart == "" && input.PeriodEnd == "" {
		end := time.Now()
		return models.AnalyticsPeriod{
			Start: end.AddDate(0, 0, -h.config.DefaultPeriodDays),
			End:   end,
		}, nil
	}

	start, err := time.Parse(time.RFC3339, input.PeriodStart)
	if err != nil {
		return models.AnalyticsPeriod{}, fmt.Errorf("%w: periodStart: %v", ErrInvalidPeriod, err)
	}
	end, err := time.Parse(time.RFC3339, input.PeriodEnd)
	if err != nil {
		return models.AnalyticsPeriod{}, fmt.Errorf("%w: periodEnd: %v", ErrInvalidPeriod, err)
	}
	if !end.After(start) {
		return models.AnalyticsPeriod{}, fmt.Errorf("%w: end must be after start", ErrInvalidPeriod)
	}
	return models.AnalyticsPeriod{Start: start, End: end}, nil
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
	case errors.Is(err, ErrMissingOrganizationID):
		return "MISSING_ORGANIZATION_ID", 0
	case errors.Is(err, ErrInvalidPeriod):
		return "INVALID_PERIOD", 0
	}
	return "ANALYTICS_FAILED", 0
}
