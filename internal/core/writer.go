package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const writerSystemPrompt = "You write concise, polite emails. " +
	"Return JSON with keys: subject, plain, html. Respond only with the JSON object."

const writerUserFormat = `Recipient name: %s
Instruction / purpose: %s
Tone: %s
Length: 120-180 words. Avoid flowery language.`

// DefaultSubject is used when the model omits a subject
const DefaultSubject = "Hello"

type bodyReply struct {
	Subject optString `json:"subject"`
	Plain   optString `json:"plain"`
	Body    optString `json:"body"`
	HTML    optString `json:"html"`
}

// BodyWriter composes message bodies with an LLM
type BodyWriter struct {
	chat        ChatClient
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewBodyWriter creates a new body writer
func NewBodyWriter(chat ChatClient, model string, temperature float32, maxTokens int, logger *zap.Logger) *BodyWriter {
	return &BodyWriter{
		chat:        chat,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Compose drafts a subject, plain body and HTML body
func (w *BodyWriter) Compose(ctx context.Context, toName, instruction, tone string) (*ComposedBody, error) {
	if toName == "" {
		toName = "there"
	}
	if tone == "" {
		tone = DefaultTone
	}

	reply, err := w.chat.Complete(ctx, ChatRequest{
		Model:       w.model,
		System:      writerSystemPrompt,
		User:        fmt.Sprintf(writerUserFormat, toName, instruction, tone),
		Temperature: w.temperature,
		MaxTokens:   w.maxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompositionFailed, err)
	}

	var raw bodyReply
	if err := decodeObject(reply, &raw); err != nil {
		w.logger.Debug("Unparsable body reply", zap.String("reply", reply), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCompositionFailed, err)
	}

	body := &ComposedBody{
		Subject: string(raw.Subject),
		Plain:   string(raw.Plain),
		HTML:    string(raw.HTML),
	}
	if body.Subject == "" {
		body.Subject = DefaultSubject
	}
	if body.Plain == "" {
		body.Plain = string(raw.Body)
	}

	return body, nil
}
