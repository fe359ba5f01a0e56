package core

import (
	"context"
	"time"
)

// ChatRequest is a single system+user exchange with an LLM
type ChatRequest struct {
	Model       string
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	JSONOnly    bool
}

// ChatClient defines the interface for interacting with LLM services
type ChatClient interface {
	// Complete returns the content of the first choice
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

// IntentExtractor turns an instruction into send parameters
type IntentExtractor interface {
	Extract(ctx context.Context, prompt string) (*ExtractedIntent, error)
}

// BodyComposer drafts the subject and body for a message
type BodyComposer interface {
	Compose(ctx context.Context, toName, instruction, tone string) (*ComposedBody, error)
}

// BuildRequest carries the inputs of the message builder
type BuildRequest struct {
	To          string
	Subject     string
	BodyHTML    string
	BodyText    string
	Cc          string
	Bcc         string
	Attachments []string
	Sender      string
}

// MessageBuilder encodes a message for transport
type MessageBuilder interface {
	Build(req BuildRequest) (*OutboundMessage, error)
}

// Mailer sends or stores built messages and returns the provider id
type Mailer interface {
	Send(ctx context.Context, msg *OutboundMessage) (string, error)
	CreateDraft(ctx context.Context, msg *OutboundMessage) (string, error)
}

// RecipientPolicy decides whether an address may be mailed
type RecipientPolicy interface {
	IsAllowed(address string) bool
}

// HistoryRepository defines the interface for recording pipeline runs
type HistoryRepository interface {
	// Record stores an entry
	Record(ctx context.Context, entry *HistoryEntry) error

	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]*HistoryEntry, error)

	// Prune removes entries created before the cutoff
	Prune(ctx context.Context, before time.Time) (int64, error)
}
