package config

import (
	"testing"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	for _, env := range envMappings {
		t.Setenv(env, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("GROQ_API_TOKEN", "gsk_test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ClassifierGroq, cfg.Classifier)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.GroqAPIBase)
	assert.Equal(t, "llama3-70b-8192", cfg.GroqModel)
	assert.Equal(t, "107780257626128497", cfg.AccountID)
	assert.Equal(t, "truth_social_monitor", cfg.MongoDatabase)
	assert.Equal(t, "*/5 * * * *", cfg.Schedule)
	assert.Equal(t, ":8080", cfg.HTTPAddress)
	assert.Equal(t, 5, cfg.FetchMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.FetchBackoff)
	assert.Equal(t, 25*time.Second, cfg.FetchTimeout)
	assert.InDelta(t, 0.80, cfg.ConfidenceThreshold, 1e-9)
	assert.True(t, cfg.ProxyAuto)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("MONGODB_URI", "mongodb://db")
	t.Setenv("CLASSIFIER", "HuggingFace")
	t.Setenv("HF_API_TOKEN", "hf_test")
	t.Setenv("PROXY_AUTO", "false")
	t.Setenv("FETCH_BACKOFF", "250ms")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.5")
	t.Setenv("ALERT_EMAIL_TO", "a@example.com, b@example.com")
	t.Setenv("CHAT_ID", "@alerts")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ClassifierHuggingFace, cfg.Classifier)
	assert.False(t, cfg.ProxyAuto)
	assert.Equal(t, 250*time.Millisecond, cfg.FetchBackoff)
	assert.InDelta(t, 0.5, cfg.ConfidenceThreshold, 1e-9)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.AlertEmailTo)
	assert.Equal(t, "@alerts", cfg.ChatID)
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	isolate(t)

	_, err := LoadConfig()
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrMissingConfig)
	assert.Contains(t, err.Error(), "MONGODB_URI")
	assert.Contains(t, err.Error(), "GROQ_API_TOKEN")
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		return Config{
			MongoDBURI:          "mongodb://db",
			Classifier:          ClassifierGemini,
			GeminiAPIKey:        "key",
			ConfidenceThreshold: 0.8,
			FetchMaxAttempts:    5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing provider key",
			mutate:  func(c *Config) { c.GeminiAPIKey = "" },
			wantErr: "GEMINI_API_KEY",
		},
		{
			name:    "anthropic needs its key",
			mutate:  func(c *Config) { c.Classifier = ClassifierAnthropic },
			wantErr: "ANTHROPIC_API_KEY",
		},
		{
			name:    "unknown classifier",
			mutate:  func(c *Config) { c.Classifier = "eliza" },
			wantErr: "unknown CLASSIFIER",
		},
		{
			name:    "threshold out of range",
			mutate:  func(c *Config) { c.ConfidenceThreshold = 1.5 },
			wantErr: "CONFIDENCE_THRESHOLD",
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.ConfidenceThreshold = 0 },
			wantErr: "CONFIDENCE_THRESHOLD",
		},
		{
			name:    "threshold of one",
			mutate:  func(c *Config) { c.ConfidenceThreshold = 1 },
		},
		{
			name:    "no attempts",
			mutate:  func(c *Config) { c.FetchMaxAttempts = 0 },
			wantErr: "FETCH_MAX_ATTEMPTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)

			err := validateConfig(&c)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
