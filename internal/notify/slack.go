package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
)

// Slack sends notifications through an incoming webhook.
type Slack struct {
	webhookURL string
	logger     *slog.Logger
}

// NewSlack creates a Slack webhook provider.
func NewSlack(webhookURL string, logger *slog.Logger) *Slack {
	return &Slack{webhookURL: webhookURL, logger: logger}
}

func (s *Slack) Push(ctx context.Context, text string) error {
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

func (s *Slack) PushMarkdown(ctx context.Context, title, detail string) error {
	// Incoming webhooks render mrkdwn by default.
	msg := &slack.WebhookMessage{Text: "*" + title + "*\n" + detail}
	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
