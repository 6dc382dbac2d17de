package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendTimeout = 15 * time.Second

// Notifier posts alerts to a Telegram chat through a bot.
type Notifier struct {
	token       string
	chatID      string
	apiEndpoint string
	httpClient  *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

type NotifierDependencies struct {
	BotToken string

	// ChatID is a numeric chat id or an @channel username.
	ChatID string

	// APIEndpoint overrides tgbotapi.APIEndpoint. Used by tests.
	APIEndpoint string
	HTTPClient  *http.Client
}

func NewNotifier(deps NotifierDependencies) *Notifier {
	n := &Notifier{
		token:       deps.BotToken,
		chatID:      strings.TrimSpace(deps.ChatID),
		apiEndpoint: deps.APIEndpoint,
		httpClient:  deps.HTTPClient,
	}

	if n.apiEndpoint == "" {
		n.apiEndpoint = tgbotapi.APIEndpoint
	}
	if n.httpClient == nil {
		n.httpClient = &http.Client{Timeout: sendTimeout}
	}

	return n
}

func (n *Notifier) Name() string {
	return "telegram"
}

func (n *Notifier) Notify(ctx context.Context, alert domain.Alert) error {
	if n.token == "" || n.chatID == "" {
		return fmt.Errorf("telegram: %w", domain.ErrNotifierDisabled)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	bot, err := n.client()
	if err != nil {
		return err
	}

	sent, err := bot.Send(n.message(alert.Message()))
	if err != nil {
		return fmt.Errorf("failed to send Telegram message: %w", err)
	}

	log.Info().
		Str("post_id", alert.PostID).
		Int("message_id", sent.MessageID).
		Msg("Alert sent to Telegram")

	return nil
}

func (n *Notifier) message(text string) tgbotapi.MessageConfig {
	if chatID, err := strconv.ParseInt(n.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(chatID, text)
	}

	return tgbotapi.NewMessageToChannel(n.chatID, text)
}

// client connects the bot on first use so that building the notifier
// never touches the network.
func (n *Notifier) client() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.bot != nil {
		return n.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(n.token, n.apiEndpoint, n.httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot client: %w", err)
	}

	n.bot = bot

	return bot, nil
}
