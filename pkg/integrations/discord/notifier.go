package discord

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
)

// Discord rejects message content longer than this.
const maxContentLength = 2000

// Notifier posts alerts to a Discord channel as a bot user.
type Notifier struct {
	token     string
	channelID string

	mu      sync.Mutex
	session *discordgo.Session
}

type NotifierDependencies struct {
	BotToken  string
	ChannelID string
}

func NewNotifier(deps NotifierDependencies) *Notifier {
	return &Notifier{
		token:     deps.BotToken,
		channelID: deps.ChannelID,
	}
}

func (n *Notifier) Name() string {
	return "discord"
}

func (n *Notifier) Notify(ctx context.Context, alert domain.Alert) error {
	if n.token == "" || n.channelID == "" {
		return fmt.Errorf("discord: %w", domain.ErrNotifierDisabled)
	}

	session, err := n.getSession()
	if err != nil {
		return err
	}

	sent, err := session.ChannelMessageSend(n.channelID, truncate(alert.Message(), maxContentLength), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send Discord message: %w", err)
	}

	log.Info().
		Str("post_id", alert.PostID).
		Str("message_id", sent.ID).
		Msg("Alert sent to Discord")

	return nil
}

func (n *Notifier) getSession() (*discordgo.Session, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.session != nil {
		return n.session, nil
	}

	session, err := discordgo.New(fmt.Sprintf("Bot %s", n.token))
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	n.session = session

	return session, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit-1]) + "…"
}
