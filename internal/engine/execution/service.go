// internal/engine/execution/service.go
package execution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"retention-workers/internal/common/crm"
	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// CRMService is the slice of the CRM API used for service tactics.
type CRMService interface {
	CreateTask(ctx context.Context, task *crm.Task) (string, error)
}

// ServiceHandler dispatches service-type tactics (account reviews,
// service recovery) by filing a CRM task for the assigned CSM. The
// human completes the task asynchronously.
type ServiceHandler struct {
	crm    CRMService
	logger logger.Logger
}

func NewServiceHandler(crmClient CRMService, log logger.Logger) *ServiceHandler {
	return &ServiceHandler{crm: crmClient, logger: log}
}

func (h *ServiceHandler) Type() models.TacticType {
	return models.TacticService
}

func (h *ServiceHandler) Dispatch(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic) (string, error) {
	dueDays := 7
	if tactic.Priority == models.PriorityHigh {
		dueDays = 2
	}

	taskID, err := h.crm.CreateTask(ctx, &crm.Task{
		Subject:     fmt.Sprintf("Retention: %s", strings.ReplaceAll(tactic.Name, "_", " ")),
		ClientID:    plan.ClientID,
		Owner:       plan.AssignedTo,
		Priority:    capitalize(string(tactic.Priority)),
		DueDate:     time.Now().AddDate(0, 0, dueDays).Format("2006-01-02"),
		Description: tactic.Description,
	})
	if err != nil {
		return "", errors.NewTacticExecutionFailedError(tactic.ID, err)
	}

	return fmt.Sprintf("crm task %s created for %s", taskID, plan.AssignedTo), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
