// Package notify announces wizard events over AWS SNS and SES.
package notify

import (
	"context"
	"fmt"
	"strings"

	"card-program-wizard/internal/common/aws"
	"card-program-wizard/internal/common/errors"
	"card-program-wizard/internal/common/logger"
)

type ConfigurationEvent struct {
	ConfigurationID string  `json:"configuration_id"`
	ProgramName     string  `json:"program_name"`
	ProgramType     string  `json:"program_type"`
	ClientEmail     string  `json:"client_email,omitempty"`
	EstimatedCards  int     `json:"estimated_cards"`
	TotalFirstMonth float64 `json:"total_first_month"`
	CreatedAt       string  `json:"created_at"`
}

type FeedbackEvent struct {
	FeedbackID         string `json:"feedback_id"`
	SatisfactionRating int    `json:"satisfaction_rating"`
	EaseOfUseRating    *int   `json:"ease_of_use_rating,omitempty"`
	Comments           string `json:"comments,omitempty"`
	UserID             string `json:"user_id,omitempty"`
	SessionID          string `json:"session_id"`
}

type Notifier interface {
	ConfigurationCreated(ctx context.Context, event ConfigurationEvent) error
	FeedbackReceived(ctx context.Context, event FeedbackEvent) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) ConfigurationCreated(context.Context, ConfigurationEvent) error { return nil }
func (Nop) FeedbackReceived(context.Context, FeedbackEvent) error          { return nil }

type AWSConfig struct {
	TopicARN   string
	FromEmail  string
	Recipients []string
}

// AWSNotifier publishes configuration events on SNS and emails feedback
// through SES. Either client may be nil, which disables that channel.
type AWSNotifier struct {
	sns    *aws.SNSClient
	ses    *aws.SESClient
	config AWSConfig
	logger logger.Logger
}

func NewAWSNotifier(snsClient *aws.SNSClient, sesClient *aws.SESClient, cfg AWSConfig, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{
		sns:    snsClient,
		ses:    sesClient,
		config: cfg,
		logger: logger.ForComponent(log, "notify"),
	}
}

func (n *AWSNotifier) ConfigurationCreated(ctx context.Context, event ConfigurationEvent) error {
	if n.sns == nil || n.config.TopicARN == "" {
		return nil
	}

	msgID, err := n.sns.PublishJSON(ctx, n.config.TopicARN, "configuration.created", event)
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}
	n.logger.Info("configuration event published", map[string]interface{}{
		"configurationId": event.ConfigurationID,
		"messageId":       msgID,
	})
	return nil
}

func (n *AWSNotifier) FeedbackReceived(ctx context.Context, event FeedbackEvent) error {
	if n.ses == nil || n.config.FromEmail == "" || len(n.config.Recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Wizard feedback: %d/5", event.SatisfactionRating)
	msgID, err := n.ses.SendText(ctx, n.config.FromEmail, n.config.Recipients, subject, feedbackBody(event))
	if err != nil {
		return errors.NewNotificationSendFailedError("ses", err)
	}
	n.logger.Info("feedback email sent", map[string]interface{}{
		"feedbackId": event.FeedbackID,
		"messageId":  msgID,
	})
	return nil
}

func feedbackBody(event FeedbackEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feedback ID: %s\n", event.FeedbackID)
	fmt.Fprintf(&b, "Satisfaction: %d/5\n", event.SatisfactionRating)
	if event.EaseOfUseRating != nil {
		fmt.Fprintf(&b, "Ease of use: %d/5\n", *event.EaseOfUseRating)
	}
	if event.UserID != "" {
		fmt.Fprintf(&b, "User: %s\n", event.UserID)
	}
	fmt.Fprintf(&b, "Session: %s\n", event.SessionID)
	if event.Comments != "" {
		fmt.Fprintf(&b, "\nComments:\n%s\n", event.Comments)
	}
	return b.String()
}
