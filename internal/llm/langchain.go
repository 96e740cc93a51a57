package llm

import (
	"context"
	"fmt"

	"github.com/proingenius/aria-banking/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// LangChainClient adapts a langchaingo model to Completer. It backs the
// providers that do not speak the OpenAI wire format.
type LangChainClient struct {
	model llms.Model
	name  string
}

// NewLangChainClient wraps an existing langchaingo model.
func NewLangChainClient(model llms.Model, name string) *LangChainClient {
	return &LangChainClient{model: model, name: name}
}

// Complete runs one GenerateContent call.
func (c *LangChainClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llms.TextParts(messageType(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	resp, err := c.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Content, nil
}

// Model returns the configured model name.
func (c *LangChainClient) Model() string {
	return c.name
}

func messageType(role string) schema.ChatMessageType {
	switch role {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

// New builds the Completer for the configured provider.
func New(cfg config.LLMConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewClient(Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultConfig().LLM.BaseURL {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return NewLangChainClient(model, cfg.Model), nil

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, ErrNotConfigured
		}
		model, err := anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return NewLangChainClient(model, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
