// internal/engine/execution/webhook.go
package execution

import (
	"context"
	"fmt"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/httpx"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// WebhookHandler dispatches product, pricing, and technical tactics to
// the owning subsystem's webhook endpoint. One instance serves one
// tactic type.
type WebhookHandler struct {
	tacticType models.TacticType
	endpoint   string
	client     *httpx.Client
	logger     logger.Logger
}

func NewWebhookHandler(tacticType models.TacticType, endpoint string, client *httpx.Client, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		tacticType: tacticType,
		endpoint:   endpoint,
		client:     client,
		logger:     log,
	}
}

func (h *WebhookHandler) Type() models.TacticType {
	return h.tacticType
}

type webhookPayload struct {
	PlanID          string   `json:"planId"`
	ClientID        string   `json:"clientId"`
	OrganizationID  string   `json:"organizationId"`
	TacticID        string   `json:"tacticId"`
	TacticName      string   `json:"tacticName"`
	Description     string   `json:"description"`
	Priority        string   `json:"priority"`
	SuccessCriteria []string `json:"successCriteria,omitempty"`
	Owner           string   `json:"owner"`
}

type webhookAck struct {
	Accepted  bool   `json:"accepted"`
	Reference string `json:"reference"`
}

func (h *WebhookHandler) Dispatch(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic) (string, error) {
	if h.endpoint == "" {
		return "", errors.NewTacticExecutionFailedError(tactic.ID,
			fmt.Errorf("no endpoint configured for %s tactics", h.tacticType))
	}

	payload := webhookPayload{
		PlanID:          plan.ID,
		ClientID:        plan.ClientID,
		OrganizationID:  plan.OrganizationID,
		TacticID:        tactic.ID,
		TacticName:      tactic.Name,
		Description:     tactic.Description,
		Priority:        string(tactic.Priority),
		SuccessCriteria: tactic.SuccessCriteria,
		Owner:           plan.AssignedTo,
	}

	var ack webhookAck
	if err := h.client.PostJSON(ctx, h.endpoint, payload, &ack); err != nil {
		return "", errors.NewTacticExecutionFailedError(tactic.ID, err)
	}
	if !ack.Accepted {
		return "", errors.NewTacticExecutionFailedError(tactic.ID,
			fmt.Errorf("%s subsystem rejected dispatch (ref %s)", h.tacticType, ack.Reference))
	}

	return fmt.Sprintf("dispatched to %s subsystem, ref %s", h.tacticType, ack.Reference), nil
}
