// Package gmail delivers messages through the Gmail REST API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mikey/llm-email-agent/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Transport sends and drafts messages for one Gmail account
type Transport struct {
	svc    *gmail.Service
	userID string
	logger *zap.Logger
}

// NewTransport creates a Gmail transport. opts normally carry an OAuth
// token source; userID "me" addresses the authenticated account.
func NewTransport(ctx context.Context, userID string, logger *zap.Logger, opts ...option.ClientOption) (*Transport, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	if userID == "" {
		userID = "me"
	}
	return &Transport{svc: svc, userID: userID, logger: logger}, nil
}

// Name returns the transport name
func (t *Transport) Name() string {
	return "gmail"
}

// SenderAddress returns the account's primary address
func (t *Transport) SenderAddress(ctx context.Context) (string, error) {
	profile, err := t.svc.Users.GetProfile(t.userID).Context(ctx).Do()
	if err != nil {
		return "", classifyError(err)
	}
	return profile.EmailAddress, nil
}

// Send submits the encoded message
func (t *Transport) Send(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	sent, err := t.svc.Users.Messages.Send(t.userID, &gmail.Message{Raw: msg.Raw}).Context(ctx).Do()
	if err != nil {
		return "", classifyError(err)
	}
	t.logger.Debug("Gmail message sent", zap.String("id", sent.Id), zap.String("thread_id", sent.ThreadId))
	return sent.Id, nil
}

// CreateDraft stores the encoded message in the account's drafts
func (t *Transport) CreateDraft(ctx context.Context, msg *core.OutboundMessage) (string, error) {
	draft, err := t.svc.Users.Drafts.Create(t.userID, &gmail.Draft{
		Message: &gmail.Message{Raw: msg.Raw},
	}).Context(ctx).Do()
	if err != nil {
		return "", classifyError(err)
	}
	t.logger.Debug("Gmail draft created", zap.String("id", draft.Id))
	return draft.Id, nil
}

// classifyError maps 403 and 429 responses to core.ErrRateLimited. Gmail
// reports quota exhaustion under both codes.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusForbidden, http.StatusTooManyRequests:
			return fmt.Errorf("%w: gmail HTTP %d: %w", core.ErrRateLimited, apiErr.Code, err)
		}
		return fmt.Errorf("%w: gmail HTTP %d: %w", core.ErrDeliveryFailed, apiErr.Code, err)
	}
	return fmt.Errorf("%w: gmail: %w", core.ErrDeliveryFailed, err)
}
