package gemini

import (
	"context"
	"fmt"

	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/types"
	"google.golang.org/genai"
)

// Provider implements the LanguageModel interface for Google Gemini
type Provider struct {
	client *genai.Client
	model  string

	MaxOutputTokens int32
}

// Config holds Gemini-specific configuration
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// New creates a new Gemini provider
func New(ctx context.Context, apiKey, model string) (*Provider, error) {
	return NewWithConfig(ctx, Config{
		APIKey: apiKey,
		Model:  model,
	})
}

// NewWithConfig creates a new Gemini provider with custom configuration
func NewWithConfig(ctx context.Context, config Config) (*Provider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}

	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Provider{
		client:          client,
		model:           config.Model,
		MaxOutputTokens: 1024,
	}, nil
}

func (p *Provider) ID() string {
	return fmt.Sprintf("gemini:%s", p.model)
}

// Generate implements the Generate method of the LanguageModel interface
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (*types.GenerateResponse, error) {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: p.MaxOutputTokens,
		Temperature:     genai.Ptr(req.Temperature),
	}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}

	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(req.System)},
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, p.convertMessages(req.Messages), config)
	if err != nil {
		return nil, fmt.Errorf("gemini api error: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]

	response := &types.GenerateResponse{
		FinishReason: mapFinishReason(candidate.FinishReason),
		Model:        p.model,
	}

	if resp.UsageMetadata != nil {
		response.Usage = types.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			response.Content += part.Text
		}
	}

	if response.Content == "" {
		return nil, types.ErrEmptyResponse
	}

	return response, nil
}

// convertMessages converts types.Message to Gemini content format
func (p *Provider) convertMessages(messages []types.Message) []*genai.Content {
	var result []*genai.Content

	for _, msg := range messages {
		// Skip system messages - they're handled separately via SystemInstruction
		if msg.Role == types.RoleSystem {
			continue
		}

		// Gemini uses "user" or "model"
		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}

		result = append(result, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return result
}

func mapFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop:
		return types.FinishReasonStop
	case genai.FinishReasonMaxTokens:
		return types.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return types.FinishReasonContentFilter
	default:
		return types.FinishReasonError
	}
}
