package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

const parserSystemPrompt = "Extract email-send intent from a single user instruction. " +
	"Return compact JSON with keys: to_email, to_name, tone, cc, bcc, action, subject_override, notes. " +
	"action must be \"send\" or \"draft\". " +
	"cc/bcc must be comma-separated strings or empty. " +
	"If an item is missing, set it to an empty string. DO NOT invent emails. " +
	"Respond only with the JSON object."

// emailPattern finds the first address-shaped substring in a prompt
var emailPattern = regexp.MustCompile(`[\w\.-]+@[\w\.-]+\.\w+`)

// intentReply is the wire shape of the extraction reply
type intentReply struct {
	ToEmail         optString   `json:"to_email"`
	ToName          optString   `json:"to_name"`
	Tone            optString   `json:"tone"`
	Cc              addressList `json:"cc"`
	Bcc             addressList `json:"bcc"`
	Action          optString   `json:"action"`
	SubjectOverride optString   `json:"subject_override"`
	Notes           optString   `json:"notes"`
}

// IntentParser extracts send parameters with an LLM
type IntentParser struct {
	chat        ChatClient
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewIntentParser creates a new intent parser
func NewIntentParser(chat ChatClient, model string, temperature float32, maxTokens int, logger *zap.Logger) *IntentParser {
	return &IntentParser{
		chat:        chat,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Extract asks the LLM for the intent and normalizes the reply
func (p *IntentParser) Extract(ctx context.Context, prompt string) (*ExtractedIntent, error) {
	reply, err := p.chat.Complete(ctx, ChatRequest{
		Model:       p.model,
		System:      parserSystemPrompt,
		User:        prompt,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	var raw intentReply
	if err := decodeObject(reply, &raw); err != nil {
		p.logger.Debug("Unparsable intent reply", zap.String("reply", reply), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	intent := &ExtractedIntent{
		ToEmail:         strings.TrimSpace(string(raw.ToEmail)),
		ToName:          strings.TrimSpace(string(raw.ToName)),
		Tone:            strings.TrimSpace(string(raw.Tone)),
		Cc:              strings.TrimSpace(string(raw.Cc)),
		Bcc:             strings.TrimSpace(string(raw.Bcc)),
		Action:          ParseAction(string(raw.Action)),
		SubjectOverride: strings.TrimSpace(string(raw.SubjectOverride)),
		Notes:           strings.TrimSpace(string(raw.Notes)),
	}

	// Only the original prompt is scanned, never the model reply
	if intent.ToEmail == "" {
		if match := FindEmail(prompt); match != "" {
			p.logger.Debug("Recovered recipient from prompt", zap.String("to", match))
			intent.ToEmail = match
		}
	}
	if intent.Tone == "" {
		intent.Tone = DefaultTone
	}

	return intent, nil
}

// FindEmail returns the first address-shaped substring of text, or ""
func FindEmail(text string) string {
	return emailPattern.FindString(text)
}
