package factory

import (
	"github.com/mikey/llm-email-agent/internal/config"
	"github.com/mikey/llm-email-agent/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the prompt text processor and carries its limits
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{cfg: cfg, logger: logger}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// MaxPromptSize returns the byte limit applied to prompts, 0 for none
func (f *TextProcessorFactory) MaxPromptSize() int {
	if size := f.cfg.GetLLM().MaxPromptSize; size > 0 {
		return size
	}
	return 0
}
