package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-email-agent/internal/adapters/gemini"
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
)

// GeminiFactory creates Gemini chat clients
type GeminiFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger) *GeminiFactory {
	return &GeminiFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateChatClient creates a Gemini chat client. The caller closes it.
func (f *GeminiFactory) CreateChatClient(ctx context.Context) (core.ChatClient, error) {
	geminiCfg := f.cfg.GetGemini()

	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required", config.ErrConfiguration)
	}

	return gemini.NewGeminiClient(ctx, geminiCfg.APIKey, f.logger)
}
