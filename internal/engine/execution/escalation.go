// internal/engine/execution/escalation.go
package execution

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"retention-workers/internal/common/errors"
	"retention-workers/internal/common/logger"
	"retention-workers/internal/models"
)

// SNSService is the slice of the SNS API the notifier needs.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// EscalationNotifier fans an escalation out to the SNS escalation topic
// (consumed by on-call tooling for the named escalation level) and
// emails the plan owner directly via SES.
type EscalationNotifier struct {
	sns       SNSService
	ses       SESService
	topicARN  string
	fromEmail string
	logger    logger.Logger
}

func NewEscalationNotifier(snsClient SNSService, sesClient SESService, topicARN, fromEmail string, log logger.Logger) *EscalationNotifier {
	return &EscalationNotifier{
		sns:       snsClient,
		ses:       sesClient,
		topicARN:  topicARN,
		fromEmail: fromEmail,
		logger:    log,
	}
}

func (n *EscalationNotifier) Escalate(ctx context.Context, event models.EscalationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.NewEscalationFailedError(event.PlanID, err)
	}

	if n.sns != nil && n.topicARN != "" {
		_, err = n.sns.Publish(ctx, &sns.PublishInput{
			TopicArn: aws.String(n.topicARN),
			Subject:  aws.String(fmt.Sprintf("Retention escalation (%s)", event.EscalationLevel)),
			Message:  aws.String(string(payload)),
		})
		if err != nil {
			return errors.NewEscalationFailedError(event.PlanID, err)
		}
	}

	if n.ses != nil && event.NotifiedOwner != "" {
		body := fmt.Sprintf(
			"High-priority tactic %s failed on plan %s.\nReason: %s\nEscalated to: %s",
			event.TacticID, event.PlanID, event.Reason, event.EscalationLevel,
		)
		_, err = n.ses.SendEmail(ctx, &ses.SendEmailInput{
			Destination: &types.Destination{
				ToAddresses: []string{event.NotifiedOwner},
			},
			Message: &types.Message{
				Subject: &types.Content{Data: aws.String("Retention plan escalation")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
			Source: aws.String(n.fromEmail),
		})
		if err != nil {
			return errors.NewEscalationFailedError(event.PlanID, err)
		}
	}

	n.logger.Warn("escalation dispatched", map[string]interface{}{
		"planId":   event.PlanID,
		"tacticId": event.TacticID,
		"level":    event.EscalationLevel,
		"owner":    event.NotifiedOwner,
	})
	return nil
}
