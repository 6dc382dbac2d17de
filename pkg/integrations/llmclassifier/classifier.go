package llmclassifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/types"
	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/rs/zerolog/log"
)

// Classifier asks a chat model to label a post bullish, bearish or neutral.
type Classifier struct {
	model provider.LanguageModel
}

type ClassifierDependencies struct {
	Model provider.LanguageModel
}

func New(deps ClassifierDependencies) (*Classifier, error) {
	if deps.Model == nil {
		return nil, types.ErrProviderNotSet
	}

	return &Classifier{model: deps.Model}, nil
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.Verdict, error) {
	resp, err := c.model.Generate(ctx, provider.GenerateRequest{
		System:      SystemPrompt,
		Messages:    []types.Message{types.UserMessage(UserPrompt(text))},
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to classify post with %s: %w", c.model.ID(), err)
	}

	verdict, err := ParseVerdict(resp.Content)
	if err != nil {
		if errors.Is(err, domain.ErrNoClassification) {
			log.Error().Str("model", c.model.ID()).Str("output", truncate(resp.Content, 200)).Msg("Unexpected classifier output")
		}
		return domain.Verdict{}, err
	}

	verdict.Model = c.model.ID()

	return verdict, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
