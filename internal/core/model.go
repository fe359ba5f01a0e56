package core

import (
	"strings"
	"time"
)

// Action tells the pipeline whether to send a message or keep it as a draft
type Action string

const (
	ActionSend  Action = "send"
	ActionDraft Action = "draft"
)

// ParseAction lower-cases s and coerces anything unrecognized to ActionSend
func ParseAction(s string) Action {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionDraft:
		return ActionDraft
	default:
		return ActionSend
	}
}

// DefaultTone is used when the instruction does not ask for a tone
const DefaultTone = "professional, friendly"

// ExtractedIntent holds the send parameters inferred from an instruction
type ExtractedIntent struct {
	ToEmail         string `json:"to_email"`
	ToName          string `json:"to_name"`
	Tone            string `json:"tone"`
	Cc              string `json:"cc"`
	Bcc             string `json:"bcc"`
	Action          Action `json:"action"`
	SubjectOverride string `json:"subject_override"`
	Notes           string `json:"notes"`
}

// ComposedBody is the generated subject and body text
type ComposedBody struct {
	Subject string `json:"subject"`
	Plain   string `json:"plain"`
	HTML    string `json:"html"`
}

// OutboundMessage is a transport-ready email. Raw is the base64url encoded
// RFC 822 byte stream.
type OutboundMessage struct {
	To          string
	Subject     string
	BodyHTML    string
	BodyText    string
	Cc          string
	Bcc         string
	Attachments []string
	Sender      string
	Raw         string
}

// Preview is the text shown back to the user after a run
type Preview struct {
	Plain string `json:"plain"`
}

// DeliveryResult is the uniform outcome of a pipeline run
type DeliveryResult struct {
	OK        bool             `json:"ok"`
	Mode      Action           `json:"mode,omitempty"`
	MessageID string           `json:"message_id,omitempty"`
	DraftID   string           `json:"draft_id,omitempty"`
	To        string           `json:"to,omitempty"`
	Subject   string           `json:"subject,omitempty"`
	Preview   *Preview         `json:"preview,omitempty"`
	Error     string           `json:"error,omitempty"`
	Parsed    *ExtractedIntent `json:"parsed,omitempty"`
}

// ProviderID returns the message or draft id, whichever is set
func (r *DeliveryResult) ProviderID() string {
	if r.DraftID != "" {
		return r.DraftID
	}
	return r.MessageID
}

// HistoryEntry is one recorded pipeline run
type HistoryEntry struct {
	ID         string    `json:"id"`
	Mode       Action    `json:"mode"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	ProviderID string    `json:"provider_id,omitempty"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
