package initialization

import (
	"context"
	"fmt"

	"github.com/flowbaker/signalwatch/internal/config"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider/anthropic"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider/gemini"
	"github.com/flowbaker/signalwatch/pkg/ai-sdk/provider/openai"
	"github.com/flowbaker/signalwatch/pkg/domain"
	"github.com/flowbaker/signalwatch/pkg/integrations/huggingface"
	"github.com/flowbaker/signalwatch/pkg/integrations/llmclassifier"
)

type classifierFactory func(ctx context.Context, cfg *config.Config) (domain.Classifier, error)

var classifierFactories = map[string]classifierFactory{
	config.ClassifierGroq:        newGroqClassifier,
	config.ClassifierHuggingFace: newHuggingFaceClassifier,
	config.ClassifierAnthropic:   newAnthropicClassifier,
	config.ClassifierGemini:      newGeminiClassifier,
}

func newClassifier(ctx context.Context, cfg *config.Config) (domain.Classifier, error) {
	factory, ok := classifierFactories[cfg.Classifier]
	if !ok {
		return nil, fmt.Errorf("unknown classifier %q", cfg.Classifier)
	}

	return factory(ctx, cfg)
}

// Groq speaks the OpenAI chat API.
func newGroqClassifier(ctx context.Context, cfg *config.Config) (domain.Classifier, error) {
	return newLLMClassifier(openai.NewWithConfig(openai.Config{
		APIKey:  cfg.GroqAPIToken,
		Model:   cfg.GroqModel,
		BaseURL: cfg.GroqAPIBase,
	}))
}

func newAnthropicClassifier(ctx context.Context, cfg *config.Config) (domain.Classifier, error) {
	return newLLMClassifier(anthropic.NewWithConfig(anthropic.Config{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.AnthropicModel,
	}))
}

func newGeminiClassifier(ctx context.Context, cfg *config.Config) (domain.Classifier, error) {
	model, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}

	return newLLMClassifier(model)
}

func newHuggingFaceClassifier(ctx context.Context, cfg *config.Config) (domain.Classifier, error) {
	return huggingface.New(huggingface.ClassifierDependencies{
		APIToken: cfg.HFAPIToken,
		BaseURL:  cfg.HFAPIBase,
		Model:    cfg.HFModel,
	})
}

func newLLMClassifier(model provider.LanguageModel) (domain.Classifier, error) {
	return llmclassifier.New(llmclassifier.ClassifierDependencies{Model: model})
}
