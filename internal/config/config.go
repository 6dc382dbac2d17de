package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	ClassifierGroq        = "groq"
	ClassifierHuggingFace = "huggingface"
	ClassifierAnthropic   = "anthropic"
	ClassifierGemini      = "gemini"
)

// Config holds everything the monitor needs. Secrets arrive through the
// environment so the CI workflow can inject them.
type Config struct {
	// Secrets passed by the workflow
	TelegramToken string
	ChatID        string
	MongoDBURI    string
	HFAPIToken    string
	GroqAPIToken  string

	// Source
	SourceBaseURL    string
	AccountID        string
	ProxyURL         string
	ProxyAuto        bool
	CFClearance      string
	FetchMaxAttempts int
	FetchBackoff     time.Duration
	FetchTimeout     time.Duration

	// Classifier
	Classifier          string
	ConfidenceThreshold float64
	GroqAPIBase         string
	GroqModel           string
	HFAPIBase           string
	HFModel             string
	AnthropicAPIKey     string
	AnthropicModel      string
	GeminiAPIKey        string
	GeminiModel         string

	// Storage
	MongoDatabase string
	RedisURL      string

	// Optional notifiers
	SlackWebhookURL  string
	DiscordBotToken  string
	DiscordChannelID string
	ResendAPIKey     string
	AlertEmailFrom   string
	AlertEmailTo     []string

	// Serve mode
	Schedule    string
	HTTPAddress string
}

var envMappings = map[string]string{
	"TelegramToken":       "TELEGRAM_TOKEN",
	"ChatID":              "CHAT_ID",
	"MongoDBURI":          "MONGODB_URI",
	"HFAPIToken":          "HF_API_TOKEN",
	"GroqAPIToken":        "GROQ_API_TOKEN",
	"SourceBaseURL":       "SOURCE_BASE_URL",
	"AccountID":           "ACCOUNT_ID",
	"ProxyURL":            "PROXY_URL",
	"ProxyAuto":           "PROXY_AUTO",
	"CFClearance":         "CF_CLEARANCE",
	"FetchMaxAttempts":    "FETCH_MAX_ATTEMPTS",
	"FetchBackoff":        "FETCH_BACKOFF",
	"FetchTimeout":        "FETCH_TIMEOUT",
	"Classifier":          "CLASSIFIER",
	"ConfidenceThreshold": "CONFIDENCE_THRESHOLD",
	"GroqAPIBase":         "GROQ_API_BASE",
	"GroqModel":           "GROQ_MODEL",
	"HFAPIBase":           "HF_API_BASE",
	"HFModel":             "HF_MODEL",
	"AnthropicAPIKey":     "ANTHROPIC_API_KEY",
	"AnthropicModel":      "ANTHROPIC_MODEL",
	"GeminiAPIKey":        "GEMINI_API_KEY",
	"GeminiModel":         "GEMINI_MODEL",
	"MongoDatabase":       "MONGO_DATABASE",
	"RedisURL":            "REDIS_URL",
	"SlackWebhookURL":     "SLACK_WEBHOOK_URL",
	"DiscordBotToken":     "DISCORD_BOT_TOKEN",
	"DiscordChannelID":    "DISCORD_CHANNEL_ID",
	"ResendAPIKey":        "RESEND_API_KEY",
	"AlertEmailFrom":      "ALERT_EMAIL_FROM",
	"AlertEmailTo":        "ALERT_EMAIL_TO",
	"Schedule":            "SCHEDULE",
	"HTTPAddress":         "HTTP_ADDRESS",
}

// LoadConfig reads defaults, an optional signalwatch.yaml and the
// environment, in increasing order of precedence.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for configKey, envVar := range envMappings {
		if err := v.BindEnv(configKey, envVar); err != nil {
			log.Warn().Err(err).Msgf("Failed to bind environment variable %s for %s", envVar, configKey)
		}
	}

	v.SetConfigName("signalwatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.signalwatch")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("Config file not found, using environment variables and defaults")
	} else {
		log.Info().Msgf("Using config file: %s", v.ConfigFileUsed())
	}

	config := Config{
		TelegramToken:       v.GetString("TelegramToken"),
		ChatID:              v.GetString("ChatID"),
		MongoDBURI:          v.GetString("MongoDBURI"),
		HFAPIToken:          v.GetString("HFAPIToken"),
		GroqAPIToken:        v.GetString("GroqAPIToken"),
		SourceBaseURL:       v.GetString("SourceBaseURL"),
		AccountID:           v.GetString("AccountID"),
		ProxyURL:            v.GetString("ProxyURL"),
		ProxyAuto:           v.GetBool("ProxyAuto"),
		CFClearance:         v.GetString("CFClearance"),
		FetchMaxAttempts:    v.GetInt("FetchMaxAttempts"),
		FetchBackoff:        v.GetDuration("FetchBackoff"),
		FetchTimeout:        v.GetDuration("FetchTimeout"),
		Classifier:          strings.ToLower(strings.TrimSpace(v.GetString("Classifier"))),
		ConfidenceThreshold: v.GetFloat64("ConfidenceThreshold"),
		GroqAPIBase:         v.GetString("GroqAPIBase"),
		GroqModel:           v.GetString("GroqModel"),
		HFAPIBase:           v.GetString("HFAPIBase"),
		HFModel:             v.GetString("HFModel"),
		AnthropicAPIKey:     v.GetString("AnthropicAPIKey"),
		AnthropicModel:      v.GetString("AnthropicModel"),
		GeminiAPIKey:        v.GetString("GeminiAPIKey"),
		GeminiModel:         v.GetString("GeminiModel"),
		MongoDatabase:       v.GetString("MongoDatabase"),
		RedisURL:            v.GetString("RedisURL"),
		SlackWebhookURL:     v.GetString("SlackWebhookURL"),
		DiscordBotToken:     v.GetString("DiscordBotToken"),
		DiscordChannelID:    v.GetString("DiscordChannelID"),
		ResendAPIKey:        v.GetString("ResendAPIKey"),
		AlertEmailFrom:      v.GetString("AlertEmailFrom"),
		AlertEmailTo:        splitList(v.GetString("AlertEmailTo")),
		Schedule:            v.GetString("Schedule"),
		HTTPAddress:         v.GetString("HTTPAddress"),
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	log.Debug().
		Str("classifier", config.Classifier).
		Str("account_id", config.AccountID).
		Str("telegram", configured(config.TelegramToken != "" && config.ChatID != "")).
		Str("proxy", configured(config.ProxyURL != "")).
		Str("redis", configured(config.RedisURL != "")).
		Msg("Config loaded")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SourceBaseURL", "https://truthsocial.com")
	v.SetDefault("AccountID", "107780257626128497")
	v.SetDefault("ProxyAuto", true)
	v.SetDefault("FetchMaxAttempts", 5)
	v.SetDefault("FetchBackoff", 5*time.Second)
	v.SetDefault("FetchTimeout", 25*time.Second)

	v.SetDefault("Classifier", ClassifierGroq)
	v.SetDefault("ConfidenceThreshold", 0.80)
	v.SetDefault("GroqAPIBase", "https://api.groq.com/openai/v1")
	v.SetDefault("GroqModel", "llama3-70b-8192")
	v.SetDefault("HFAPIBase", "https://api-inference.huggingface.co")
	v.SetDefault("HFModel", "facebook/bart-large-mnli")
	v.SetDefault("AnthropicModel", "claude-3-5-haiku-latest")
	v.SetDefault("GeminiModel", "gemini-2.0-flash")

	v.SetDefault("MongoDatabase", "truth_social_monitor")

	v.SetDefault("Schedule", "*/5 * * * *")
	v.SetDefault("HTTPAddress", ":8080")
}

// validateConfig reports every missing variable at once.
func validateConfig(config *Config) error {
	var missingVars []string

	if config.MongoDBURI == "" {
		missingVars = append(missingVars, "MONGODB_URI")
	}

	switch config.Classifier {
	case ClassifierGroq:
		if config.GroqAPIToken == "" {
			missingVars = append(missingVars, "GROQ_API_TOKEN")
		}
	case ClassifierHuggingFace:
		if config.HFAPIToken == "" {
			missingVars = append(missingVars, "HF_API_TOKEN")
		}
	case ClassifierAnthropic:
		if config.AnthropicAPIKey == "" {
			missingVars = append(missingVars, "ANTHROPIC_API_KEY")
		}
	case ClassifierGemini:
		if config.GeminiAPIKey == "" {
			missingVars = append(missingVars, "GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown CLASSIFIER %q, expected one of groq, huggingface, anthropic, gemini", config.Classifier)
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrMissingConfig, strings.Join(missingVars, ", "))
	}

	if config.ConfidenceThreshold <= 0 || config.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be above 0 and at most 1, got %v", config.ConfidenceThreshold)
	}

	if config.FetchMaxAttempts < 1 {
		return fmt.Errorf("FETCH_MAX_ATTEMPTS must be at least 1, got %d", config.FetchMaxAttempts)
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}

	return "missing"
}
