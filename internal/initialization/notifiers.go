package initialization

import (
	"github.com/flowbaker/signalwatch/internal/config"
	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/flowbaker/signalwatch/pkg/integrations/discord"
	"github.com/flowbaker/signalwatch/pkg/integrations/notify"
	"github.com/flowbaker/signalwatch/pkg/integrations/resend"
	"github.com/flowbaker/signalwatch/pkg/integrations/slack"
	"github.com/flowbaker/signalwatch/pkg/integrations/telegram"

	"github.com/rs/zerolog/log"
)

// newNotifier fans out to every channel that has credentials. Telegram
// is the primary channel, so its absence is a warning.
func newNotifier(cfg *config.Config) *notify.Fanout {
	var notifiers []domain.Notifier

	if cfg.TelegramToken != "" && cfg.ChatID != "" {
		notifiers = append(notifiers, telegram.NewNotifier(telegram.NotifierDependencies{
			BotToken: cfg.TelegramToken,
			ChatID:   cfg.ChatID,
		}))
	} else {
		log.Warn().Msg("TELEGRAM_TOKEN or CHAT_ID not set, Telegram alerts disabled")
	}

	if cfg.SlackWebhookURL != "" {
		notifiers = append(notifiers, slack.NewNotifier(slack.NotifierDependencies{
			WebhookURL: cfg.SlackWebhookURL,
		}))
	}

	if cfg.DiscordBotToken != "" && cfg.DiscordChannelID != "" {
		notifiers = append(notifiers, discord.NewNotifier(discord.NotifierDependencies{
			BotToken:  cfg.DiscordBotToken,
			ChannelID: cfg.DiscordChannelID,
		}))
	}

	if cfg.ResendAPIKey != "" && cfg.AlertEmailFrom != "" && len(cfg.AlertEmailTo) > 0 {
		notifiers = append(notifiers, resend.NewNotifier(resend.NotifierDependencies{
			APIKey: cfg.ResendAPIKey,
			From:   cfg.AlertEmailFrom,
			To:     cfg.AlertEmailTo,
		}))
	}

	names := make([]string, len(notifiers))
	for i, n := range notifiers {
		names[i] = n.Name()
	}
	log.Info().Strs("notifiers", names).Msg("Notifiers configured")

	return notify.NewFanout(notifiers...)
}
