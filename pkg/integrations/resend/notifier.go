package resend

import (
	"context"
	"fmt"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// Notifier e-mails alerts through Resend.
type Notifier struct {
	client *resend.Client
	from   string
	to     []string
}

type NotifierDependencies struct {
	APIKey string
	From   string
	To     []string

	// Client replaces the default Resend client. Used by tests.
	Client *resend.Client
}

func NewNotifier(deps NotifierDependencies) *Notifier {
	n := &Notifier{
		client: deps.Client,
		from:   deps.From,
		to:     deps.To,
	}

	if n.client == nil && deps.APIKey != "" {
		n.client = resend.NewClient(deps.APIKey)
	}

	return n
}

func (n *Notifier) Name() string {
	return "resend"
}

func (n *Notifier) Notify(ctx context.Context, alert domain.Alert) error {
	if n.client == nil || n.from == "" || len(n.to) == 0 {
		return fmt.Errorf("resend: %w", domain.ErrNotifierDisabled)
	}

	text := alert.Message()
	if alert.PostURL != "" {
		text += "\n\n" + alert.PostURL
	}

	response, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: alert.Subject(),
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	log.Info().
		Str("post_id", alert.PostID).
		Str("email_id", response.Id).
		Msg("Alert e-mailed")

	return nil
}
