package slack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
	"github.com/slack-go/slack"
)

// Notifier posts alerts to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

type NotifierDependencies struct {
	WebhookURL string
	HTTPClient *http.Client
}

func NewNotifier(deps NotifierDependencies) *Notifier {
	n := &Notifier{
		webhookURL: deps.WebhookURL,
		httpClient: deps.HTTPClient,
	}

	if n.httpClient == nil {
		n.httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	return n
}

func (n *Notifier) Name() string {
	return "slack"
}

func (n *Notifier) Notify(ctx context.Context, alert domain.Alert) error {
	if n.webhookURL == "" {
		return fmt.Errorf("slack: %w", domain.ErrNotifierDisabled)
	}

	msg := &slack.WebhookMessage{
		Text: alert.Message(),
	}

	if alert.PostURL != "" {
		msg.Attachments = []slack.Attachment{{
			Title:     alert.Subject(),
			TitleLink: alert.PostURL,
		}}
	}

	if err := slack.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post Slack webhook: %w", err)
	}

	log.Info().Str("post_id", alert.PostID).Msg("Alert sent to Slack")

	return nil
}
