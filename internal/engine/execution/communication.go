// internal/engine/execution/communication.go
package execution

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// SESService is the slice of the SES API the dispatcher needs.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// CommunicationHandler dispatches communication-type tactics by
// emailing the assigned owner a briefing to run with the client.
// Delivery is SES's concern; this handler only reports dispatch.
type CommunicationHandler struct {
	ses       SESService
	fromEmail string
	logger    logger.Logger
}

func NewCommunicationHandler(sesClient SESService, fromEmail string, log logger.Logger) *CommunicationHandler {
	return &CommunicationHandler{ses: sesClient, fromEmail: fromEmail, logger: log}
}

func (h *CommunicationHandler) Type() models.TacticType {
	return models.TacticCommunication
}

func (h *CommunicationHandler) Dispatch(ctx context.Context, plan *models.RetentionPlan, tactic *models.RetentionTactic) (string, error) {
	subject := fmt.Sprintf("[Retention] %s for client %s", tactic.Name, plan.ClientID)
	body := fmt.Sprintf(
		"Plan %s (risk: %s)\nTactic: %s\n\n%s\n\nDeliverables: %v\nSuccess criteria: %v\nDue: %s",
		plan.ID, plan.RiskLevel, tactic.Name, tactic.Description,
		tactic.Deliverables, tactic.SuccessCriteria, tactic.Timeline,
	)

	_, err := h.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{plan.AssignedTo},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.fromEmail),
	})
	if err != nil {
		return "", errors.NewTacticExecutionFailedError(tactic.ID, err)
	}

	return fmt.Sprintf("briefing emailed to %s", plan.AssignedTo), nil
}
