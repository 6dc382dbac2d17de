package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/types"
)

// Provider implements the LanguageModel interface for Anthropic Claude
type Provider struct {
	client anthropic.Client
	model  string
	config Config
}

// Config holds Anthropic-specific configuration
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
}

// New creates a new Anthropic provider
func New(apiKey, model string) *Provider {
	return NewWithConfig(Config{
		APIKey: apiKey,
		Model:  model,
	})
}

// NewWithConfig creates a new Anthropic provider with custom configuration
func NewWithConfig(config Config) *Provider {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}

	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		client: anthropic.NewClient(opts...),
		model:  config.Model,
		config: config,
	}
}

// ID returns the model identifier
func (p *Provider) ID() string {
	return fmt.Sprintf("anthropic:%s", p.model)
}

// Generate implements the Generate method of the LanguageModel interface
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (*types.GenerateResponse, error) {
	msgReq := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		Messages:    p.convertMessages(req.Messages),
		Temperature: anthropic.Float(float64(req.Temperature)),
	}

	if req.System != "" {
		msgReq.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	// Anthropic requires max_tokens
	switch {
	case req.MaxTokens > 0:
		msgReq.MaxTokens = int64(req.MaxTokens)
	case p.config.MaxTokens > 0:
		msgReq.MaxTokens = int64(p.config.MaxTokens)
	default:
		msgReq.MaxTokens = 1024
	}

	if len(req.Stop) > 0 {
		msgReq.StopSequences = req.Stop
	}

	resp, err := p.client.Messages.New(ctx, msgReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	if content.Len() == 0 {
		return nil, types.ErrEmptyResponse
	}

	return &types.GenerateResponse{
		Content:      content.String(),
		Model:        string(resp.Model),
		FinishReason: string(resp.StopReason),
		Usage: types.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func (p *Provider) convertMessages(messages []types.Message) []anthropic.MessageParam {
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		// system prompts travel in MessageNewParams.System
		if msg.Role == types.RoleSystem {
			continue
		}

		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == types.RoleAssistant {
			result = append(result, anthropic.NewAssistantMessage(block))
			continue
		}

		result = append(result, anthropic.NewUserMessage(block))
	}

	return result
}
