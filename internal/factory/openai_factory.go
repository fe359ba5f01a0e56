package factory

import (
	"fmt"

	"github.com/mikey/llm-email-agent/internal/adapters/openai"
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// OpenAIFactory creates OpenAI chat clients
type OpenAIFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOpenAIFactory creates a new OpenAI factory
func NewOpenAIFactory(cfg *config.Config, logger *zap.Logger) *OpenAIFactory {
	return &OpenAIFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatClient creates an OpenAI chat client
func (f *OpenAIFactory) CreateChatClient() (core.ChatClient, error) {
	openaiCfg := f.cfg.GetOpenAI()

	if openaiCfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", config.ErrConfiguration)
	}

	return openai.NewOpenAIClient(openaiCfg.APIKey, openaiCfg.BaseURL, f.logger), nil
}
