package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MissingRecipientMessage is the error text of the missing recipient result
const MissingRecipientMessage = "No recipient email found in the prompt."

// EmailAgentService runs the prompt to message pipeline
type EmailAgentService struct {
	extractor IntentExtractor
	composer  BodyComposer
	builder   MessageBuilder
	mailer    Mailer
	policy    RecipientPolicy
	history   HistoryRepository
	logger    *zap.Logger
	sender    string
}

// NewEmailAgentService creates a new email agent service. The sender is
// resolved once by the caller and reused for every run. policy and history
// may be nil.
func NewEmailAgentService(
	extractor IntentExtractor,
	composer BodyComposer,
	builder MessageBuilder,
	mailer Mailer,
	policy RecipientPolicy,
	history HistoryRepository,
	logger *zap.Logger,
	sender string,
) *EmailAgentService {
	return &EmailAgentService{
		extractor: extractor,
		composer:  composer,
		builder:   builder,
		mailer:    mailer,
		policy:    policy,
		history:   history,
		logger:    logger,
		sender:    sender,
	}
}

// Sender returns the address messages are sent from
func (s *EmailAgentService) Sender() string {
	return s.sender
}

// Run extracts, composes, builds and delivers a message for prompt.
// A prompt without a usable recipient yields a result with OK false and a
// nil error; every other failure is returned as an error.
func (s *EmailAgentService) Run(ctx context.Context, prompt string, useHTML bool) (*DeliveryResult, error) {
	intent, err := s.extractor.Extract(ctx, prompt)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Extracted intent",
		zap.String("to", intent.ToEmail),
		zap.String("action", string(intent.Action)),
		zap.String("tone", intent.Tone))

	if intent.ToEmail == "" {
		return s.reject(ctx, intent, MissingRecipientMessage), nil
	}
	if rejected := s.rejectedRecipient(intent); rejected != "" {
		s.logger.Info("Recipient rejected by policy", zap.String("recipient", rejected))
		return s.reject(ctx, intent, fmt.Sprintf("Recipient domain of %s is not allowed.", rejected)), nil
	}

	instruction := intent.Notes
	if instruction == "" {
		instruction = prompt
	}
	body, err := s.composer.Compose(ctx, intent.ToName, instruction, intent.Tone)
	if err != nil {
		return nil, err
	}

	subject := intent.SubjectOverride
	if subject == "" {
		subject = body.Subject
	}
	req := BuildRequest{
		To:       intent.ToEmail,
		Subject:  subject,
		BodyText: body.Plain,
		Cc:       intent.Cc,
		Bcc:      intent.Bcc,
		Sender:   s.sender,
	}
	if useHTML && body.HTML != "" {
		req.BodyHTML = body.HTML
	}
	msg, err := s.builder.Build(req)
	if err != nil {
		return nil, err
	}

	result := &DeliveryResult{
		OK:      true,
		Mode:    intent.Action,
		To:      intent.ToEmail,
		Subject: subject,
		Preview: &Preview{Plain: body.Plain},
	}
	switch intent.Action {
	case ActionDraft:
		id, err := s.mailer.CreateDraft(ctx, msg)
		if err != nil {
			return nil, err
		}
		result.DraftID = id
	default:
		id, err := s.mailer.Send(ctx, msg)
		if err != nil {
			return nil, err
		}
		result.MessageID = id
	}

	s.logger.Info("Message delivered",
		zap.String("mode", string(result.Mode)),
		zap.String("to", result.To),
		zap.String("id", result.ProviderID()))
	s.record(ctx, result)
	return result, nil
}

// rejectedRecipient returns the first To, Cc or Bcc address the policy refuses
func (s *EmailAgentService) rejectedRecipient(intent *ExtractedIntent) string {
	if s.policy == nil {
		return ""
	}
	for _, list := range []string{intent.ToEmail, intent.Cc, intent.Bcc} {
		for _, addr := range SplitAddresses(list) {
			if !s.policy.IsAllowed(addr) {
				return addr
			}
		}
	}
	return ""
}

func (s *EmailAgentService) reject(ctx context.Context, intent *ExtractedIntent, message string) *DeliveryResult {
	result := &DeliveryResult{OK: false, Error: message, Parsed: intent}
	s.record(ctx, result)
	return result
}

// record stores the run in the history repository if one is configured
func (s *EmailAgentService) record(ctx context.Context, result *DeliveryResult) {
	if s.history == nil {
		return
	}
	entry := &HistoryEntry{
		ID:         uuid.NewString(),
		Mode:       result.Mode,
		To:         result.To,
		Subject:    result.Subject,
		ProviderID: result.ProviderID(),
		OK:         result.OK,
		Error:      result.Error,
		CreatedAt:  time.Now().UTC(),
	}
	if !result.OK && result.Parsed != nil {
		entry.To = result.Parsed.ToEmail
		entry.Mode = result.Parsed.Action
	}
	if err := s.history.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record history", zap.Error(err))
	}
}

// SplitAddresses splits a comma separated address list, dropping blanks
func SplitAddresses(list string) []string {
	var out []string
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
