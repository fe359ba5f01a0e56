package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates chat clients for the configured provider
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatClient creates a new chat client based on the configuration
func (f *LLMFactory) CreateChatClient(ctx context.Context) (core.ChatClient, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger).CreateChatClient()
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger).CreateChatClient(ctx)
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger).CreateChatClient(ctx)
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", config.ErrConfiguration, llmConfig.Provider)
	}
}

// CreateIntentParser creates the intent extractor on top of chat
func (f *LLMFactory) CreateIntentParser(chat core.ChatClient) *core.IntentParser {
	llmConfig := f.cfg.GetLLM()
	return core.NewIntentParser(chat, llmConfig.ParserModel, llmConfig.ParserTemperature, llmConfig.MaxTokens, f.logger)
}

// CreateBodyWriter creates the body composer on top of chat
func (f *LLMFactory) CreateBodyWriter(chat core.ChatClient) *core.BodyWriter {
	llmConfig := f.cfg.GetLLM()
	return core.NewBodyWriter(chat, llmConfig.WriterModel, llmConfig.WriterTemperature, llmConfig.MaxTokens, f.logger)
}
